package chat

import (
	"context"
	"testing"

	"github.com/yungbote/dbchat-backend/internal/data/repos/testutil"
	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
)

func TestMessageRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMessageRepo(db, testutil.Logger(t))

	a := testutil.SeedConversation(t, ctx, tx, chat.KindDirect, 1, 2)
	b := testutil.SeedConversation(t, ctx, tx, chat.KindGroup, 1, 2, 3)

	var ids []int64
	for i, conv := range []int64{a.ID, b.ID, a.ID, a.ID, b.ID} {
		m, err := repo.Create(dbc, &chat.Message{ConversationID: conv, SenderID: 1, Body: "m"})
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		if len(ids) > 0 && m.ID <= ids[len(ids)-1] {
			t.Fatalf("ids not increasing: %v then %d", ids, m.ID)
		}
		ids = append(ids, m.ID)
	}

	if got, err := repo.GetByID(dbc, ids[0]); err != nil || got.ConversationID != a.ID {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}

	// a holds ids[0], ids[2], ids[3].
	rows, err := repo.ListBefore(dbc, a.ID, nil, 2)
	if err != nil || len(rows) != 2 || rows[0].ID != ids[2] || rows[1].ID != ids[3] {
		t.Fatalf("ListBefore nil: err=%v rows=%v", err, rows)
	}
	rows, err = repo.ListBefore(dbc, a.ID, testutil.PtrInt64(ids[3]), 10)
	if err != nil || len(rows) != 2 || rows[0].ID != ids[0] || rows[1].ID != ids[2] {
		t.Fatalf("ListBefore bound: err=%v rows=%v", err, rows)
	}

	rows, err = repo.ListAfter(dbc, []int64{a.ID, b.ID}, ids[1], 0)
	if err != nil || len(rows) != 3 || rows[0].ID != ids[2] || rows[2].ID != ids[4] {
		t.Fatalf("ListAfter: err=%v rows=%v", err, rows)
	}
	rows, err = repo.ListAfter(dbc, []int64{b.ID}, 0, 1)
	if err != nil || len(rows) != 1 || rows[0].ID != ids[1] {
		t.Fatalf("ListAfter limit: err=%v rows=%v", err, rows)
	}

	if got, err := repo.MaxID(dbc, []int64{a.ID}); err != nil || got != ids[3] {
		t.Fatalf("MaxID: got=%d err=%v", got, err)
	}
	if got, err := repo.MaxID(dbc, []int64{999}); err != nil || got != 0 {
		t.Fatalf("MaxID empty: got=%d err=%v", got, err)
	}

	latest, err := repo.LatestIDs(dbc, []int64{a.ID, b.ID})
	if err != nil || latest[a.ID] != ids[3] || latest[b.ID] != ids[4] {
		t.Fatalf("LatestIDs: err=%v latest=%v", err, latest)
	}

	if n, err := repo.SoftDelete(dbc, ids[3]); err != nil || n != 1 {
		t.Fatalf("SoftDelete: n=%d err=%v", n, err)
	}
	if _, err := repo.GetByID(dbc, ids[3]); err == nil {
		t.Fatalf("GetByID soft-deleted: expected error")
	}
	rows, err = repo.ListAfter(dbc, []int64{a.ID}, 0, 0)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListAfter after delete: err=%v rows=%v", err, rows)
	}
}

func TestMessageRepo_Attachments(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewMessageRepo(db, testutil.Logger(t))

	c := testutil.SeedConversation(t, ctx, db, chat.KindDirect, 1, 2)
	m := testutil.SeedMessageWithAttachments(t, ctx, db, c.ID, 1, "hi", `[{"name":"a.png"}]`)

	got, err := repo.GetByID(dbctx.Context{Ctx: ctx}, m.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if string(got.Attachments) != `[{"name":"a.png"}]` {
		t.Fatalf("attachments: %s", string(got.Attachments))
	}
}
