package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/data/aggregates"
	"github.com/yungbote/dbchat-backend/internal/data/repos"
	"github.com/yungbote/dbchat-backend/internal/data/repos/testutil"
	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
	"github.com/yungbote/dbchat-backend/internal/realtime"
)

type fixture struct {
	db        *gorm.DB
	watermark *realtime.Watermark
	convs     ConversationService
	msgs      MessageService
	poll      PollService
	proj      ProjectionService
}

func newFixture(t *testing.T, cfg ChatConfig, tx aggregates.TxRunner) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	if tx == nil {
		tx = aggregates.NewGormTxRunner(db)
	}

	convRepo := repos.NewConversationRepo(db, log)
	partRepo := repos.NewParticipantRepo(db, log)
	msgRepo := repos.NewMessageRepo(db, log)
	readRepo := repos.NewMessageReadRepo(db, log)
	wm := realtime.NewWatermark(log)

	msgs := NewMessageService(db, log, cfg, tx, convRepo, msgRepo, readRepo, wm, nil)
	return &fixture{
		db:        db,
		watermark: wm,
		convs:     NewConversationService(db, log, tx, convRepo, partRepo, msgRepo),
		msgs:      msgs,
		poll:      NewPollService(log, cfg, msgs, wm),
		proj:      NewProjectionService(log, partRepo, msgRepo, readRepo),
	}
}

func bg() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }

func (f *fixture) mustCreate(t *testing.T, kind chat.Kind, creator int64, ids ...int64) *chat.Conversation {
	t.Helper()
	c, err := f.convs.Create(bg(), CreateConversationInput{Kind: kind, ParticipantIDs: ids, CreatorID: creator})
	if err != nil {
		t.Fatalf("Create(%s, %v): %v", kind, ids, err)
	}
	return c
}

func (f *fixture) mustSend(t *testing.T, conversationID, senderID int64, body string) *chat.Message {
	t.Helper()
	m, err := f.msgs.Send(bg(), SendMessageInput{ConversationID: conversationID, SenderID: senderID, Body: body})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	return m
}

func (f *fixture) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func participantIDs(t *testing.T, db *gorm.DB, conversationID int64) map[int64]bool {
	t.Helper()
	var ids []int64
	if err := db.Model(&chat.Participant{}).Where("conversation_id = ?", conversationID).Pluck("user_id", &ids).Error; err != nil {
		t.Fatalf("participants: %v", err)
	}
	out := map[int64]bool{}
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// newFixtureOn rebuilds the services of f around a different tx runner.
func newFixtureOn(t *testing.T, f *fixture, tx aggregates.TxRunner) *fixture {
	t.Helper()
	log := testutil.Logger(t)
	convRepo := repos.NewConversationRepo(f.db, log)
	partRepo := repos.NewParticipantRepo(f.db, log)
	msgRepo := repos.NewMessageRepo(f.db, log)
	readRepo := repos.NewMessageReadRepo(f.db, log)
	msgs := NewMessageService(f.db, log, ChatConfig{}, tx, convRepo, msgRepo, readRepo, f.watermark, nil)
	return &fixture{
		db:        f.db,
		watermark: f.watermark,
		convs:     NewConversationService(f.db, log, tx, convRepo, partRepo, msgRepo),
		msgs:      msgs,
		poll:      NewPollService(log, ChatConfig{}, msgs, f.watermark),
		proj:      NewProjectionService(log, partRepo, msgRepo, readRepo),
	}
}

func dbctxOf(ctx context.Context) dbctx.Context { return dbctx.Context{Ctx: ctx} }

func nopLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.Nop()
}

// sendLater sends from another goroutine after d. Failures are reported with
// t.Errorf since FailNow must not run off the test goroutine.
func (f *fixture) sendLater(t *testing.T, d time.Duration, conversationID, senderID int64, body string) {
	t.Helper()
	done := make(chan struct{})
	t.Cleanup(func() { <-done })
	go func() {
		defer close(done)
		time.Sleep(d)
		if _, err := f.msgs.Send(bg(), SendMessageInput{ConversationID: conversationID, SenderID: senderID, Body: body}); err != nil {
			t.Errorf("Send: %v", err)
		}
	}()
}
