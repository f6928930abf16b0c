package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/http"
	httpH "github.com/yungbote/dbchat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dbchat-backend/internal/http/middleware"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
)

type Middleware struct {
	Auth        *httpMW.AuthMiddleware
	PollLimiter *httpMW.RateLimiter
	SendLimiter *httpMW.RateLimiter
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Conversation *httpH.ConversationHandler
	Message      *httpH.MessageHandler
	Poll         *httpH.PollHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, cfg Config, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:       httpH.NewHealthHandler(db),
		Conversation: httpH.NewConversationHandler(s.Conversations, s.Projection),
		Message:      httpH.NewMessageHandler(s.Conversations, s.Messages, s.Projection, cfg.Chat.PaginationMax),
		Poll:         httpH.NewPollHandler(s.Conversations, s.Messages, s.Poll),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config, s Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:        httpMW.NewAuthMiddleware(log, s.Auth),
		PollLimiter: httpMW.NewRateLimiter(cfg.Chat.PollRateLimit),
		SendLimiter: httpMW.NewRateLimiter(cfg.Chat.MessageRateLimit),
	}
}

func routerConfig(log *logger.Logger, cfg Config, h Handlers, mw Middleware) http.RouterConfig {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.RouterConfig{
		Log:                 log,
		ServiceName:         serviceName,
		CORSOrigins:         cfg.HTTP.CORSOrigins,
		AuthMiddleware:      mw.Auth,
		PollLimiter:         mw.PollLimiter,
		SendLimiter:         mw.SendLimiter,
		ConversationHandler: h.Conversation,
		MessageHandler:      h.Message,
		PollHandler:         h.Poll,
		HealthHandler:       h.Health,
	}
}
