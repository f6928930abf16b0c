package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
)

func TestPollReturnsExistingMessagesImmediately(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	c := f.mustCreate(t, chat.KindDirect, 1, 2)
	m1 := f.mustSend(t, c.ID, 1, "a")
	m2 := f.mustSend(t, c.ID, 2, "b")

	start := time.Now()
	res, err := f.poll.Poll(context.Background(), PollRequest{ConversationIDs: []int64{c.ID}, AfterMessageID: 0, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Poll with pending data took %v", time.Since(start))
	}
	if res.TimedOut || res.LastMessageID != m2.ID || len(res.Messages) != 2 || res.Messages[0].ID != m1.ID {
		t.Fatalf("Poll: %+v", res)
	}
}

func TestPollTimesOutWithCursorUnchanged(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	c := f.mustCreate(t, chat.KindDirect, 1, 2)
	m := f.mustSend(t, c.ID, 1, "old")

	start := time.Now()
	res, err := f.poll.Poll(context.Background(), PollRequest{
		ConversationIDs: []int64{c.ID},
		AfterMessageID:  m.ID,
		Timeout:         300 * time.Millisecond,
		CheckInterval:   50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 300*time.Millisecond {
		t.Fatalf("Poll returned before timeout: %v", elapsed)
	}
	if !res.TimedOut || res.LastMessageID != m.ID || len(res.Messages) != 0 {
		t.Fatalf("Poll timeout result: %+v", res)
	}
}

func TestPollWakesOnSend(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	c := f.mustCreate(t, chat.KindGroup, 1, 2, 3)

	sent := make(chan *chat.Message, 1)
	go func() {
		time.Sleep(300 * time.Millisecond)
		m, err := f.msgs.Send(bg(), SendMessageInput{ConversationID: c.ID, SenderID: 2, Body: "late"})
		if err != nil {
			t.Errorf("Send: %v", err)
			sent <- nil
			return
		}
		sent <- m
	}()

	start := time.Now()
	res, err := f.poll.Poll(context.Background(), PollRequest{
		ConversationIDs: []int64{c.ID},
		Timeout:         time.Second,
		CheckInterval:   500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	elapsed := time.Since(start)
	m := <-sent
	if m == nil {
		t.Fatalf("send failed")
	}
	if res.TimedOut || len(res.Messages) != 1 || res.Messages[0].ID != m.ID || res.LastMessageID != m.ID {
		t.Fatalf("Poll result: %+v", res)
	}
	if elapsed >= time.Second {
		t.Fatalf("Poll took %v, expected return before timeout", elapsed)
	}
}

func TestPollWatermarkBeatsCheckInterval(t *testing.T) {
	f := newFixture(t, ChatConfig{PollMinRequery: 10 * time.Millisecond}, nil)
	c := f.mustCreate(t, chat.KindDirect, 1, 2)

	f.sendLater(t, 100*time.Millisecond, c.ID, 1, "wake")

	start := time.Now()
	res, err := f.poll.Poll(context.Background(), PollRequest{
		ConversationIDs: []int64{c.ID},
		Timeout:         10 * time.Second,
		CheckInterval:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("watermark wake too slow: %v", elapsed)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("Poll result: %+v", res)
	}
}

func TestPollIgnoresOtherConversations(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	mine := f.mustCreate(t, chat.KindDirect, 1, 2)
	theirs := f.mustCreate(t, chat.KindDirect, 3, 4)

	f.sendLater(t, 50*time.Millisecond, theirs.ID, 3, "not for you")

	res, err := f.poll.Poll(context.Background(), PollRequest{
		ConversationIDs: []int64{mine.ID},
		Timeout:         400 * time.Millisecond,
		CheckInterval:   100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !res.TimedOut || len(res.Messages) != 0 || res.LastMessageID != 0 {
		t.Fatalf("Poll result: %+v", res)
	}
}

func TestPollEmptyConversationsReturnsAtOnce(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	start := time.Now()
	res, err := f.poll.Poll(context.Background(), PollRequest{AfterMessageID: 7, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("Poll with no conversations waited %v", time.Since(start))
	}
	if !res.TimedOut || res.LastMessageID != 7 || res.Messages == nil || len(res.Messages) != 0 {
		t.Fatalf("Poll result: %+v", res)
	}
}

func TestPollCancellation(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	c := f.mustCreate(t, chat.KindDirect, 1, 2)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := f.poll.Poll(ctx, PollRequest{ConversationIDs: []int64{c.ID}, Timeout: 5 * time.Second, CheckInterval: time.Second})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Poll cancelled: want context.Canceled, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("cancellation too slow: %v", time.Since(start))
	}
}

func TestPollRejectsNegativeCursor(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	if _, err := f.poll.Poll(context.Background(), PollRequest{ConversationIDs: []int64{1}, AfterMessageID: -1}); !chat.IsCode(err, chat.CodeValidation) {
		t.Fatalf("negative cursor: want validation, got %v", err)
	}
}

type failingMessages struct {
	MessageService
	err   error
	calls int
}

func (f *failingMessages) GetNewMessages(dbctx.Context, []int64, int64, int) ([]*chat.Message, error) {
	f.calls++
	return nil, f.err
}

func TestPollPropagatesStoreFaults(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	boom := chat.NewError(chat.CodeInternal, "message.get_new_messages", "db down", nil)
	msgs := &failingMessages{err: boom}
	p := NewPollService(nopLogger(t), ChatConfig{}, msgs, f.watermark)

	_, err := p.Poll(context.Background(), PollRequest{ConversationIDs: []int64{1}, Timeout: 5 * time.Second})
	if !errors.Is(err, boom) {
		t.Fatalf("Poll: want store error, got %v", err)
	}
	if msgs.calls != 1 {
		t.Fatalf("store fault retried: calls=%d", msgs.calls)
	}
}

func TestPollBatchLimit(t *testing.T) {
	f := newFixture(t, ChatConfig{PollBatchLimit: 2}, nil)
	c := f.mustCreate(t, chat.KindDirect, 1, 2)
	var last int64
	for i := 0; i < 3; i++ {
		last = f.mustSend(t, c.ID, 1, "m").ID
	}
	res, err := f.poll.Poll(context.Background(), PollRequest{ConversationIDs: []int64{c.ID}})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(res.Messages) != 2 || res.LastMessageID == last {
		t.Fatalf("Poll batch: %+v", res)
	}
	res, err = f.poll.Poll(context.Background(), PollRequest{ConversationIDs: []int64{c.ID}, AfterMessageID: res.LastMessageID})
	if err != nil || len(res.Messages) != 1 || res.LastMessageID != last {
		t.Fatalf("Poll continuation: err=%v res=%+v", err, res)
	}
}
