package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/data/aggregates"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
	"github.com/yungbote/dbchat-backend/internal/realtime"
	"github.com/yungbote/dbchat-backend/internal/realtime/bus"
	"github.com/yungbote/dbchat-backend/internal/services"
)

type Services struct {
	Auth          services.AuthService
	Conversations services.ConversationService
	Messages      services.MessageService
	Poll          services.PollService
	Projection    services.ProjectionService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, watermark *realtime.Watermark, eventBus bus.Bus) Services {
	log.Info("Wiring services...")
	chatCfg := cfg.ChatService()
	tx := aggregates.NewGormTxRunner(db)

	messages := services.NewMessageService(db, log, chatCfg, tx, r.Conversation, r.Message, r.MessageRead, watermark, eventBus)
	return Services{
		Auth:          services.NewAuthService(log, cfg.JWTSecretKey),
		Conversations: services.NewConversationService(db, log, tx, r.Conversation, r.Participant, r.Message),
		Messages:      messages,
		Poll:          services.NewPollService(log, chatCfg, messages, watermark),
		Projection:    services.NewProjectionService(log, r.Participant, r.Message, r.MessageRead),
	}
}
