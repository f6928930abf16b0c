package chat

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
)

type MessageReadRepo interface {
	// CreateIgnoreDuplicate inserts the receipt unless (message_id, user_id)
	// already exists, then returns the stored row.
	CreateIgnoreDuplicate(dbc dbctx.Context, messageID, userID int64, readAt time.Time) (*chat.MessageRead, error)
	Get(dbc dbctx.Context, messageID, userID int64) (*chat.MessageRead, error)
	ListByMessageIDs(dbc dbctx.Context, messageIDs []int64) ([]*chat.MessageRead, error)
}

type messageReadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageReadRepo(db *gorm.DB, log *logger.Logger) MessageReadRepo {
	return &messageReadRepo{db: db, log: log.With("repo", "MessageReadRepo")}
}

func (r *messageReadRepo) CreateIgnoreDuplicate(dbc dbctx.Context, messageID, userID int64, readAt time.Time) (*chat.MessageRead, error) {
	if readAt.IsZero() {
		readAt = time.Now().UTC()
	}
	row := &chat.MessageRead{MessageID: messageID, UserID: userID, ReadAt: readAt}
	if err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.Get(dbc, messageID, userID)
}

func (r *messageReadRepo) Get(dbc dbctx.Context, messageID, userID int64) (*chat.MessageRead, error) {
	var out chat.MessageRead
	if err := dbc.DB(r.db).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *messageReadRepo) ListByMessageIDs(dbc dbctx.Context, messageIDs []int64) ([]*chat.MessageRead, error) {
	if len(messageIDs) == 0 {
		return []*chat.MessageRead{}, nil
	}
	var out []*chat.MessageRead
	if err := dbc.DB(r.db).
		Where("message_id IN ?", messageIDs).
		Order("message_id ASC, read_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
