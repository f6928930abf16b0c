package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/observability"
	"github.com/yungbote/dbchat-backend/internal/platform/ctxutil"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
	"github.com/yungbote/dbchat-backend/internal/realtime"
)

type PollRequest struct {
	ConversationIDs []int64
	AfterMessageID  int64
	// Zero Timeout or CheckInterval selects the configured value.
	Timeout       time.Duration
	CheckInterval time.Duration
}

type PollResult struct {
	LastMessageID int64           `json:"last_message_id"`
	Messages      []*chat.Message `json:"messages"`
	TimedOut      bool            `json:"-"`
}

// PollService waits until messages newer than a cursor exist in any of the
// given conversations, or the timeout elapses.
type PollService interface {
	Poll(ctx context.Context, req PollRequest) (*PollResult, error)
}

type pollService struct {
	log       *logger.Logger
	cfg       ChatConfig
	messages  MessageService
	watermark *realtime.Watermark
}

// NewPollService builds the long-poll coordinator. A nil watermark leaves the
// check interval as the only wake source.
func NewPollService(baseLog *logger.Logger, cfg ChatConfig, messages MessageService, watermark *realtime.Watermark) PollService {
	return &pollService{
		log:       baseLog.With("service", "PollService"),
		cfg:       cfg.withDefaults(),
		messages:  messages,
		watermark: watermark,
	}
}

func (s *pollService) Poll(ctx context.Context, req PollRequest) (*PollResult, error) {
	const op = "poll"
	ctx, span := observability.Tracer().Start(ctxutil.Default(ctx), "chat.poll")
	defer span.End()

	if req.AfterMessageID < 0 {
		return nil, chat.Validation(op, "after_message_id must be >= 0")
	}
	empty := &PollResult{LastMessageID: req.AfterMessageID, Messages: []*chat.Message{}, TimedOut: true}
	if len(req.ConversationIDs) == 0 {
		return empty, nil
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.cfg.PollTimeout
	}
	interval := req.CheckInterval
	if interval <= 0 {
		interval = s.cfg.PollCheckInterval
	}
	span.SetAttributes(
		attribute.Int("chat.conversations", len(req.ConversationIDs)),
		attribute.Int64("chat.after_message_id", req.AfterMessageID),
	)

	dbc := dbctx.Context{Ctx: ctx}
	deadline := time.Now().Add(timeout)
	queries := 0
	for {
		// Take the wake channel before querying so a commit landing between
		// the query and the wait is not missed.
		wake := s.changed()
		queriedAt := time.Now()
		msgs, err := s.messages.GetNewMessages(dbc, req.ConversationIDs, req.AfterMessageID, s.cfg.PollBatchLimit)
		queries++
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if len(msgs) > 0 {
			span.SetAttributes(attribute.Int("chat.poll_queries", queries), attribute.Int("chat.messages", len(msgs)))
			return &PollResult{LastMessageID: chat.MaxID(msgs, req.AfterMessageID), Messages: msgs}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			span.SetAttributes(attribute.Int("chat.poll_queries", queries), attribute.Bool("chat.timed_out", true))
			return empty, nil
		}
		if err := s.wait(ctx, wake, queriedAt, min(interval, remaining), deadline); err != nil {
			return nil, err
		}
	}
}

// wait blocks until d elapses, the watermark moves, or ctx ends. A watermark
// wake is held back until PollMinRequery has passed since queriedAt.
func (s *pollService) wait(ctx context.Context, wake <-chan struct{}, queriedAt time.Time, d time.Duration, deadline time.Time) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	case <-wake:
	}

	floor := s.cfg.PollMinRequery - time.Since(queriedAt)
	if left := time.Until(deadline); floor > left {
		floor = left
	}
	if floor <= 0 {
		return nil
	}
	hold := time.NewTimer(floor)
	defer hold.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-hold.C:
		return nil
	}
}

func (s *pollService) changed() <-chan struct{} {
	if s.watermark == nil {
		return nil
	}
	return s.watermark.Changed()
}
