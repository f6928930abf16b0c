package chat

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
)

type ParticipantRepo interface {
	Create(dbc dbctx.Context, rows []*chat.Participant) ([]*chat.Participant, error)
	Exists(dbc dbctx.Context, conversationID, userID int64) (bool, error)
	Delete(dbc dbctx.Context, conversationID, userID int64) (int64, error)
	ListByConversationIDs(dbc dbctx.Context, conversationIDs []int64) ([]*chat.Participant, error)
	ConversationIDsByUser(dbc dbctx.Context, userID int64) ([]int64, error)
}

type participantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewParticipantRepo(db *gorm.DB, log *logger.Logger) ParticipantRepo {
	return &participantRepo{db: db, log: log.With("repo", "ParticipantRepo")}
}

func (r *participantRepo) Create(dbc dbctx.Context, rows []*chat.Participant) ([]*chat.Participant, error) {
	if len(rows) == 0 {
		return []*chat.Participant{}, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.JoinedAt.IsZero() {
			row.JoinedAt = now
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *participantRepo) Exists(dbc dbctx.Context, conversationID, userID int64) (bool, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&chat.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *participantRepo) Delete(dbc dbctx.Context, conversationID, userID int64) (int64, error) {
	res := dbc.DB(r.db).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&chat.Participant{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *participantRepo) ListByConversationIDs(dbc dbctx.Context, conversationIDs []int64) ([]*chat.Participant, error) {
	if len(conversationIDs) == 0 {
		return []*chat.Participant{}, nil
	}
	var out []*chat.Participant
	if err := dbc.DB(r.db).
		Where("conversation_id IN ?", conversationIDs).
		Order("conversation_id ASC, joined_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *participantRepo) ConversationIDsByUser(dbc dbctx.Context, userID int64) ([]int64, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("missing user_id")
	}
	var ids []int64
	if err := dbc.DB(r.db).
		Model(&chat.Participant{}).
		Joins("JOIN chat_conversations ON chat_conversations.id = chat_participants.conversation_id AND chat_conversations.deleted_at IS NULL").
		Where("chat_participants.user_id = ?", userID).
		Order("chat_participants.conversation_id ASC").
		Pluck("chat_participants.conversation_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
