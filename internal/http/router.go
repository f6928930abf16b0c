package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/dbchat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dbchat-backend/internal/http/middleware"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
)

const APIPrefix = "/api/dbchat"

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware
	PollLimiter    *httpMW.RateLimiter
	SendLimiter    *httpMW.RateLimiter

	ConversationHandler *httpH.ConversationHandler
	MessageHandler      *httpH.MessageHandler
	PollHandler         *httpH.PollHandler
	HealthHandler       *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group(APIPrefix)
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	sendLimit := limiter(cfg.SendLimiter)
	pollLimit := limiter(cfg.PollLimiter)

	// Conversations
	if h := cfg.ConversationHandler; h != nil {
		protected.GET("/conversations", h.List)
		protected.POST("/conversations", sendLimit, h.Create)
		protected.GET("/conversations/:id", h.Get)
		protected.POST("/conversations/:id/participants", h.AddParticipant)
		protected.DELETE("/conversations/:id/participants/:user_id", h.RemoveParticipant)
	}

	// Messages
	if h := cfg.MessageHandler; h != nil {
		protected.GET("/conversations/:id/messages", h.List)
		protected.POST("/conversations/:id/messages", sendLimit, h.Send)
		protected.POST("/messages/:id/read", h.MarkAsRead)
		protected.DELETE("/messages/:id", h.Delete)
	}

	// Long-poll
	if h := cfg.PollHandler; h != nil {
		protected.GET("/poll", pollLimit, h.Poll)
		protected.GET("/poll/cursor", h.Cursor)
	}

	return r
}

func limiter(rl *httpMW.RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.Middleware()
}
