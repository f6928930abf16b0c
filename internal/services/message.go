package services

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/data/aggregates"
	"github.com/yungbote/dbchat-backend/internal/data/repos"
	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/observability"
	"github.com/yungbote/dbchat-backend/internal/platform/ctxutil"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
	"github.com/yungbote/dbchat-backend/internal/realtime"
	"github.com/yungbote/dbchat-backend/internal/realtime/bus"
)

const busPublishTimeout = 2 * time.Second

type SendMessageInput struct {
	ConversationID int64
	SenderID       int64
	Body           string
	// Attachments is opaque JSON; empty or null means none.
	Attachments json.RawMessage
}

type MessageService interface {
	Send(dbc dbctx.Context, in SendMessageInput) (*chat.Message, error)
	MarkAsRead(dbc dbctx.Context, messageID, userID int64) (*chat.MessageRead, error)
	Get(dbc dbctx.Context, messageID int64) (*chat.Message, error)
	Delete(dbc dbctx.Context, messageID int64) error
	GetMessages(dbc dbctx.Context, conversationID int64, beforeMessageID *int64, limit int) ([]*chat.Message, error)
	GetNewMessages(dbc dbctx.Context, conversationIDs []int64, afterMessageID int64, limit int) ([]*chat.Message, error)
	GetLastMessageID(dbc dbctx.Context, conversationIDs []int64) (int64, error)
}

type messageService struct {
	db        *gorm.DB
	log       *logger.Logger
	cfg       ChatConfig
	tx        aggregates.TxRunner
	convRepo  repos.ConversationRepo
	msgRepo   repos.MessageRepo
	readRepo  repos.MessageReadRepo
	watermark *realtime.Watermark
	bus       bus.Bus
}

// NewMessageService wires the message core. watermark and eventBus may be nil.
func NewMessageService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg ChatConfig,
	tx aggregates.TxRunner,
	convRepo repos.ConversationRepo,
	msgRepo repos.MessageRepo,
	readRepo repos.MessageReadRepo,
	watermark *realtime.Watermark,
	eventBus bus.Bus,
) MessageService {
	if tx == nil {
		tx = aggregates.NewGormTxRunner(db)
	}
	return &messageService{
		db:        db,
		log:       baseLog.With("service", "MessageService"),
		cfg:       cfg.withDefaults(),
		tx:        tx,
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		readRepo:  readRepo,
		watermark: watermark,
		bus:       eventBus,
	}
}

func (s *messageService) Send(dbc dbctx.Context, in SendMessageInput) (*chat.Message, error) {
	const op = "message.send"
	ctx, span := observability.Tracer().Start(ctxutil.Default(dbc.Ctx), "chat.send")
	defer span.End()
	dbc.Ctx = ctx
	span.SetAttributes(attribute.Int64("chat.conversation_id", in.ConversationID))

	if in.SenderID <= 0 {
		return nil, chat.Validation(op, "invalid sender id")
	}
	if err := validateBody(op, in.Body, s.cfg.MessageMaxLength); err != nil {
		return nil, err
	}
	attachments, err := normalizeAttachments(op, in.Attachments)
	if err != nil {
		return nil, err
	}

	var out *chat.Message
	err = aggregates.Within(s.tx, dbc, func(inner dbctx.Context) error {
		if _, err := s.convRepo.GetByID(inner, in.ConversationID); err != nil {
			return notFoundAs(op, "conversation not found", err)
		}
		msg, err := s.msgRepo.Create(inner, &chat.Message{
			ConversationID: in.ConversationID,
			SenderID:       in.SenderID,
			Body:           in.Body,
			Attachments:    attachments,
		})
		if err != nil {
			return err
		}
		if err := s.convRepo.Touch(inner, in.ConversationID); err != nil {
			return err
		}
		out = msg
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, aggregates.MapError(op, err)
	}
	span.SetAttributes(attribute.Int64("chat.message_id", out.ID))

	// Inside a caller transaction the row is not visible yet; a waiter woken
	// early re-checks on its next interval.
	s.advance(ctx, out)
	s.log.Debug("Message sent",
		"conversation_id", out.ConversationID,
		"message_id", out.ID,
		"sender_id", out.SenderID,
		"request_id", ctxutil.RequestID(ctx),
	)
	return out, nil
}

func (s *messageService) advance(ctx context.Context, msg *chat.Message) {
	if s.watermark != nil {
		s.watermark.Advance(msg.ID)
	}
	if s.bus == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), busPublishTimeout)
	defer cancel()
	ev := bus.WatermarkEvent{MessageID: msg.ID, ConversationID: msg.ConversationID}
	if err := s.bus.Publish(pubCtx, ev); err != nil {
		s.log.Warn("Watermark publish failed", "message_id", msg.ID, "request_id", ctxutil.RequestID(ctx), "error", err)
	}
}

func (s *messageService) MarkAsRead(dbc dbctx.Context, messageID, userID int64) (*chat.MessageRead, error) {
	const op = "message.mark_as_read"
	if userID <= 0 {
		return nil, chat.Validation(op, "invalid user id")
	}
	if _, err := s.msgRepo.GetByID(dbc, messageID); err != nil {
		return nil, aggregates.MapError(op, notFoundAs(op, "message not found", err))
	}
	row, err := s.readRepo.CreateIgnoreDuplicate(dbc, messageID, userID, time.Now().UTC())
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return row, nil
}

func (s *messageService) Get(dbc dbctx.Context, messageID int64) (*chat.Message, error) {
	const op = "message.get"
	msg, err := s.msgRepo.GetByID(dbc, messageID)
	if err != nil {
		return nil, aggregates.MapError(op, notFoundAs(op, "message not found", err))
	}
	return msg, nil
}

func (s *messageService) Delete(dbc dbctx.Context, messageID int64) error {
	const op = "message.delete"
	n, err := s.msgRepo.SoftDelete(dbc, messageID)
	if err != nil {
		return aggregates.MapError(op, err)
	}
	if n == 0 {
		return chat.NotFound(op, "message not found")
	}
	s.log.Info("Message deleted", "message_id", messageID)
	return nil
}

func (s *messageService) GetMessages(dbc dbctx.Context, conversationID int64, beforeMessageID *int64, limit int) ([]*chat.Message, error) {
	const op = "message.get_messages"
	if conversationID <= 0 {
		return nil, chat.Validation(op, "invalid conversation id")
	}
	msgs, err := s.msgRepo.ListBefore(dbc, conversationID, beforeMessageID, s.cfg.clampLimit(limit))
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return msgs, nil
}

func (s *messageService) GetNewMessages(dbc dbctx.Context, conversationIDs []int64, afterMessageID int64, limit int) ([]*chat.Message, error) {
	if len(conversationIDs) == 0 {
		return []*chat.Message{}, nil
	}
	msgs, err := s.msgRepo.ListAfter(dbc, conversationIDs, afterMessageID, limit)
	if err != nil {
		return nil, aggregates.MapError("message.get_new_messages", err)
	}
	return msgs, nil
}

func (s *messageService) GetLastMessageID(dbc dbctx.Context, conversationIDs []int64) (int64, error) {
	if len(conversationIDs) == 0 {
		return 0, nil
	}
	id, err := s.msgRepo.MaxID(dbc, conversationIDs)
	if err != nil {
		return 0, aggregates.MapError("message.get_last_message_id", err)
	}
	return id, nil
}
