package chat

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, row *chat.Message) (*chat.Message, error)
	GetByID(dbc dbctx.Context, id int64) (*chat.Message, error)
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*chat.Message, error)
	// ListBefore returns the newest limit messages with id < before (nil = no
	// upper bound), oldest first.
	ListBefore(dbc dbctx.Context, conversationID int64, before *int64, limit int) ([]*chat.Message, error)
	// ListAfter returns messages with id > after across conversationIDs in id
	// order. limit <= 0 means uncapped.
	ListAfter(dbc dbctx.Context, conversationIDs []int64, after int64, limit int) ([]*chat.Message, error)
	MaxID(dbc dbctx.Context, conversationIDs []int64) (int64, error)
	// LatestIDs maps conversation id to its largest message id.
	LatestIDs(dbc dbctx.Context, conversationIDs []int64) (map[int64]int64, error)
	SoftDelete(dbc dbctx.Context, id int64) (int64, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, row *chat.Message) (*chat.Message, error) {
	if row == nil {
		return nil, fmt.Errorf("missing message")
	}
	if row.ConversationID <= 0 {
		return nil, fmt.Errorf("missing conversation_id")
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = row.CreatedAt
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *messageRepo) GetByID(dbc dbctx.Context, id int64) (*chat.Message, error) {
	if id <= 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var out chat.Message
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *messageRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*chat.Message, error) {
	if len(ids) == 0 {
		return []*chat.Message{}, nil
	}
	var out []*chat.Message
	if err := dbc.DB(r.db).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) ListBefore(dbc dbctx.Context, conversationID int64, before *int64, limit int) ([]*chat.Message, error) {
	if conversationID <= 0 {
		return nil, fmt.Errorf("missing conversation_id")
	}
	q := dbc.DB(r.db).Where("conversation_id = ?", conversationID)
	if before != nil {
		q = q.Where("id < ?", *before)
	}
	q = q.Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*chat.Message
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *messageRepo) ListAfter(dbc dbctx.Context, conversationIDs []int64, after int64, limit int) ([]*chat.Message, error) {
	if len(conversationIDs) == 0 {
		return []*chat.Message{}, nil
	}
	q := dbc.DB(r.db).
		Where("conversation_id IN ?", conversationIDs).
		Where("id > ?", after).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*chat.Message
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) MaxID(dbc dbctx.Context, conversationIDs []int64) (int64, error) {
	if len(conversationIDs) == 0 {
		return 0, nil
	}
	var maxID int64
	if err := dbc.DB(r.db).
		Model(&chat.Message{}).
		Select("COALESCE(MAX(id), 0)").
		Where("conversation_id IN ?", conversationIDs).
		Scan(&maxID).Error; err != nil {
		return 0, err
	}
	return maxID, nil
}

func (r *messageRepo) LatestIDs(dbc dbctx.Context, conversationIDs []int64) (map[int64]int64, error) {
	out := map[int64]int64{}
	if len(conversationIDs) == 0 {
		return out, nil
	}
	type row struct {
		ConversationID int64
		MaxID          int64
	}
	var rows []row
	if err := dbc.DB(r.db).
		Model(&chat.Message{}).
		Select("conversation_id, MAX(id) AS max_id").
		Where("conversation_id IN ?", conversationIDs).
		Group("conversation_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, rr := range rows {
		out[rr.ConversationID] = rr.MaxID
	}
	return out, nil
}

func (r *messageRepo) SoftDelete(dbc dbctx.Context, id int64) (int64, error) {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&chat.Message{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
