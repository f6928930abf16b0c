package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/data/repos/chat"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
)

type ConversationRepo = chat.ConversationRepo
type ParticipantRepo = chat.ParticipantRepo
type MessageRepo = chat.MessageRepo
type MessageReadRepo = chat.MessageReadRepo

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return chat.NewConversationRepo(db, baseLog)
}
func NewParticipantRepo(db *gorm.DB, baseLog *logger.Logger) ParticipantRepo {
	return chat.NewParticipantRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return chat.NewMessageRepo(db, baseLog)
}
func NewMessageReadRepo(db *gorm.DB, baseLog *logger.Logger) MessageReadRepo {
	return chat.NewMessageReadRepo(db, baseLog)
}
