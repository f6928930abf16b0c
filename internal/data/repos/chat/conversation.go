package chat

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
)

type ConversationRepo interface {
	Create(dbc dbctx.Context, row *chat.Conversation) (*chat.Conversation, error)
	GetByID(dbc dbctx.Context, id int64) (*chat.Conversation, error)
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*chat.Conversation, error)
	// FindDirect returns the live direct conversation for key, or nil.
	FindDirect(dbc dbctx.Context, directKey string) (*chat.Conversation, error)
	ListByUser(dbc dbctx.Context, userID int64) ([]*chat.Conversation, error)
	Touch(dbc dbctx.Context, id int64) error
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, log *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: log.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) Create(dbc dbctx.Context, row *chat.Conversation) (*chat.Conversation, error) {
	if row == nil {
		return nil, fmt.Errorf("missing conversation")
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

func (r *conversationRepo) GetByID(dbc dbctx.Context, id int64) (*chat.Conversation, error) {
	if id <= 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var out chat.Conversation
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *conversationRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*chat.Conversation, error) {
	if len(ids) == 0 {
		return []*chat.Conversation{}, nil
	}
	var out []*chat.Conversation
	if err := dbc.DB(r.db).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) FindDirect(dbc dbctx.Context, directKey string) (*chat.Conversation, error) {
	if directKey == "" {
		return nil, fmt.Errorf("missing direct_key")
	}
	var out []*chat.Conversation
	if err := dbc.DB(r.db).
		Where("kind = ? AND direct_key = ?", chat.KindDirect, directKey).
		Order("id ASC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *conversationRepo) ListByUser(dbc dbctx.Context, userID int64) ([]*chat.Conversation, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("missing user_id")
	}
	var out []*chat.Conversation
	if err := dbc.DB(r.db).
		Where("id IN (?)", dbc.DB(r.db).
			Model(&chat.Participant{}).
			Select("conversation_id").
			Where("user_id = ?", userID)).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) Touch(dbc dbctx.Context, id int64) error {
	return dbc.DB(r.db).
		Model(&chat.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
}
