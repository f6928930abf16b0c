package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/data/repos"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
)

type Repos struct {
	Conversation repos.ConversationRepo
	Participant  repos.ParticipantRepo
	Message      repos.MessageRepo
	MessageRead  repos.MessageReadRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Conversation: repos.NewConversationRepo(db, log),
		Participant:  repos.NewParticipantRepo(db, log),
		Message:      repos.NewMessageRepo(db, log),
		MessageRead:  repos.NewMessageReadRepo(db, log),
	}
}
