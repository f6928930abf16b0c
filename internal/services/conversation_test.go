package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	aggtestutil "github.com/yungbote/dbchat-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/dbchat-backend/internal/domain/chat"
)

func TestCreateDirectIsIdempotent(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)

	first := f.mustCreate(t, chat.KindDirect, 1, 2)
	second := f.mustCreate(t, chat.KindDirect, 2, 1)
	third := f.mustCreate(t, chat.KindDirect, 1, 1, 2)
	if first.ID != second.ID || first.ID != third.ID {
		t.Fatalf("direct ids differ: %d %d %d", first.ID, second.ID, third.ID)
	}
	if n := f.count(t, &chat.Conversation{}, "kind = ?", chat.KindDirect); n != 1 {
		t.Fatalf("direct conversations: want=1 got=%d", n)
	}
	if got := participantIDs(t, f.db, first.ID); len(got) != 2 || !got[1] || !got[2] {
		t.Fatalf("participants: %v", got)
	}
}

func TestCreateDirectDropsTitle(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	c, err := f.convs.Create(bg(), CreateConversationInput{Kind: chat.KindDirect, ParticipantIDs: []int64{2}, CreatorID: 1, Title: "ignored"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Title != nil {
		t.Fatalf("direct title: want=nil got=%q", *c.Title)
	}
}

func TestCreateGroupAddsCreator(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	c, err := f.convs.Create(bg(), CreateConversationInput{
		Kind:           chat.KindGroup,
		ParticipantIDs: []int64{1, 2, 2, 0, -4},
		CreatorID:      3,
		Title:          "  team  ",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Title == nil || *c.Title != "team" {
		t.Fatalf("title: got=%v", c.Title)
	}
	got := participantIDs(t, f.db, c.ID)
	if len(got) != 3 || !got[1] || !got[2] || !got[3] {
		t.Fatalf("participants: want={1,2,3} got=%v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)

	cases := []struct {
		name string
		in   CreateConversationInput
	}{
		{"direct with three", CreateConversationInput{Kind: chat.KindDirect, ParticipantIDs: []int64{1, 2, 3}, CreatorID: 1}},
		{"direct with self", CreateConversationInput{Kind: chat.KindDirect, ParticipantIDs: []int64{1}, CreatorID: 1}},
		{"group of one", CreateConversationInput{Kind: chat.KindGroup, ParticipantIDs: []int64{}, CreatorID: 1}},
		{"bad kind", CreateConversationInput{Kind: "channel", ParticipantIDs: []int64{1, 2}, CreatorID: 1}},
	}
	for _, tc := range cases {
		_, err := f.convs.Create(bg(), tc.in)
		if !chat.IsCode(err, chat.CodeValidation) {
			t.Fatalf("%s: want validation, got %v", tc.name, err)
		}
	}
	if n := f.count(t, &chat.Conversation{}, "1 = 1"); n != 0 {
		t.Fatalf("conversations after failed creates: want=0 got=%d", n)
	}
}

func TestCreateConcurrentDirectYieldsOne(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)

	const n = 8
	ids := make([]int64, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			a, b := int64(10), int64(20)
			if i%2 == 1 {
				a, b = b, a
			}
			c, err := f.convs.Create(bg(), CreateConversationInput{Kind: chat.KindDirect, ParticipantIDs: []int64{b}, CreatorID: a})
			if err != nil {
				return err
			}
			ids[i] = c.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent Create: %v", err)
	}
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("concurrent ids differ: %v", ids)
		}
	}
	if got := f.count(t, &chat.Conversation{}, "kind = ?", chat.KindDirect); got != 1 {
		t.Fatalf("direct conversations: want=1 got=%d", got)
	}
}

func TestCreateRollsBackOnCommitFailure(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	injected := &aggtestutil.InjectedTxRunner{DB: f.db, FailCommit: errors.New("commit failed")}
	f2 := newFixtureOn(t, f, injected)

	if _, err := f2.convs.Create(bg(), CreateConversationInput{Kind: chat.KindGroup, ParticipantIDs: []int64{1, 2, 3}, CreatorID: 1}); err == nil {
		t.Fatalf("expected failure")
	}
	if injected.RollbackCalls != 1 {
		t.Fatalf("rollback calls: want=1 got=%d", injected.RollbackCalls)
	}
	if n := f.count(t, &chat.Conversation{}, "1 = 1"); n != 0 {
		t.Fatalf("conversations after rollback: want=0 got=%d", n)
	}
	if n := f.count(t, &chat.Participant{}, "1 = 1"); n != 0 {
		t.Fatalf("participants after rollback: want=0 got=%d", n)
	}
}

func TestAddParticipant(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	direct := f.mustCreate(t, chat.KindDirect, 1, 2)
	group := f.mustCreate(t, chat.KindGroup, 1, 2, 3)

	if _, err := f.convs.AddParticipant(bg(), direct.ID, 3); !chat.IsCode(err, chat.CodeValidation) {
		t.Fatalf("add to direct: want validation, got %v", err)
	}
	if got := participantIDs(t, f.db, direct.ID); len(got) != 2 {
		t.Fatalf("direct membership changed: %v", got)
	}
	if _, err := f.convs.AddParticipant(bg(), group.ID, 2); !chat.IsCode(err, chat.CodeValidation) {
		t.Fatalf("add existing member: want validation, got %v", err)
	}
	if _, err := f.convs.AddParticipant(bg(), 9999, 2); !chat.IsCode(err, chat.CodeNotFound) {
		t.Fatalf("add to missing: want not_found, got %v", err)
	}

	p, err := f.convs.AddParticipant(bg(), group.ID, 4)
	if err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
	if p.UserID != 4 || p.JoinedAt.IsZero() {
		t.Fatalf("participant: %+v", p)
	}
	if ok, err := f.convs.IsParticipant(bg(), group.ID, 4); err != nil || !ok {
		t.Fatalf("IsParticipant: ok=%v err=%v", ok, err)
	}
}

func TestRemoveParticipant(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	direct := f.mustCreate(t, chat.KindDirect, 1, 2)
	group := f.mustCreate(t, chat.KindGroup, 1, 2, 3)

	if _, err := f.convs.RemoveParticipant(bg(), direct.ID, 2); !chat.IsCode(err, chat.CodeValidation) {
		t.Fatalf("remove from direct: want validation, got %v", err)
	}
	if _, err := f.convs.RemoveParticipant(bg(), 9999, 2); !chat.IsCode(err, chat.CodeNotFound) {
		t.Fatalf("remove from missing: want not_found, got %v", err)
	}
	if removed, err := f.convs.RemoveParticipant(bg(), group.ID, 42); err != nil || removed {
		t.Fatalf("remove non-member: removed=%v err=%v", removed, err)
	}
	if removed, err := f.convs.RemoveParticipant(bg(), group.ID, 3); err != nil || !removed {
		t.Fatalf("remove member: removed=%v err=%v", removed, err)
	}
	if ok, _ := f.convs.IsParticipant(bg(), group.ID, 3); ok {
		t.Fatalf("user 3 still a participant")
	}
}

func TestListForUserOrdersByActivity(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	older := f.mustCreate(t, chat.KindGroup, 1, 2, 3)
	quiet := f.mustCreate(t, chat.KindDirect, 1, 4)
	newer := f.mustCreate(t, chat.KindDirect, 1, 5)
	f.mustCreate(t, chat.KindDirect, 6, 7)

	// Conversation timestamps first, then a message makes "older" the most
	// recently active one.
	base := time.Now().UTC().Add(-time.Hour)
	for i, c := range []int64{older.ID, quiet.ID, newer.ID} {
		if err := f.db.Model(&chat.Conversation{}).Where("id = ?", c).Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error; err != nil {
			t.Fatalf("backdate: %v", err)
		}
	}
	f.mustSend(t, older.ID, 2, "ping")

	got, err := f.convs.ListForUser(bg(), 1)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	want := []int64{older.ID, newer.ID, quiet.ID}
	if len(got) != len(want) {
		t.Fatalf("ListForUser: want %d rows got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("ListForUser order: want=%v got[%d]=%d", want, i, got[i].ID)
		}
	}

	ids, err := f.convs.ConversationIDsForUser(bg(), 1)
	if err != nil || len(ids) != 3 {
		t.Fatalf("ConversationIDsForUser: ids=%v err=%v", ids, err)
	}
}

func TestGetConversation(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	c := f.mustCreate(t, chat.KindGroup, 1, 2)
	if got, err := f.convs.Get(bg(), c.ID); err != nil || got.ID != c.ID {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if _, err := f.convs.Get(bg(), c.ID+100); !chat.IsCode(err, chat.CodeNotFound) {
		t.Fatalf("Get missing: want not_found, got %v", err)
	}
}

func TestCreateHonorsCancelledContext(t *testing.T) {
	f := newFixture(t, ChatConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.convs.Create(dbctxOf(ctx), CreateConversationInput{Kind: chat.KindGroup, ParticipantIDs: []int64{1, 2}, CreatorID: 1})
	if err == nil {
		t.Fatalf("expected error with cancelled context")
	}
}
