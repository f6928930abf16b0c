package chat

import (
	"context"
	"testing"

	"github.com/yungbote/dbchat-backend/internal/data/repos/testutil"
	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
)

func TestConversationRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewConversationRepo(db, testutil.Logger(t))

	key := chat.DirectKey(2, 1)
	direct, err := repo.Create(dbc, &chat.Conversation{Kind: chat.KindDirect, DirectKey: &key})
	if err != nil {
		t.Fatalf("Create direct: %v", err)
	}
	if direct.ID <= 0 || direct.CreatedAt.IsZero() {
		t.Fatalf("Create direct: id=%d created_at=%v", direct.ID, direct.CreatedAt)
	}
	group, err := repo.Create(dbc, &chat.Conversation{Kind: chat.KindGroup})
	if err != nil {
		t.Fatalf("Create group: %v", err)
	}

	if got, err := repo.GetByID(dbc, direct.ID); err != nil || got.ID != direct.ID || !got.IsDirect() {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if rows, err := repo.GetByIDs(dbc, []int64{group.ID, direct.ID}); err != nil || len(rows) != 2 || rows[0].ID != direct.ID {
		t.Fatalf("GetByIDs: err=%v rows=%v", err, rows)
	}

	if got, err := repo.FindDirect(dbc, "1:2"); err != nil || got == nil || got.ID != direct.ID {
		t.Fatalf("FindDirect: got=%v err=%v", got, err)
	}
	if got, err := repo.FindDirect(dbc, "1:3"); err != nil || got != nil {
		t.Fatalf("FindDirect missing: got=%v err=%v", got, err)
	}

	// Second live row with the same pair key must be rejected by the index.
	dupKey := chat.DirectKey(1, 2)
	if _, err := repo.Create(dbc, &chat.Conversation{Kind: chat.KindDirect, DirectKey: &dupKey}); err == nil {
		t.Fatalf("expected unique violation for duplicate direct_key")
	}
}

func TestConversationRepo_ListByUser(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewConversationRepo(db, testutil.Logger(t))

	c1 := testutil.SeedConversation(t, ctx, db, chat.KindDirect, 1, 2)
	c2 := testutil.SeedConversation(t, ctx, db, chat.KindGroup, 1, 3, 4)
	testutil.SeedConversation(t, ctx, db, chat.KindGroup, 3, 4)

	rows, err := repo.ListByUser(dbc, 1)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != c1.ID || rows[1].ID != c2.ID {
		t.Fatalf("ListByUser: rows=%v", rows)
	}

	if err := db.Delete(&chat.Conversation{}, c1.ID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	rows, err = repo.ListByUser(dbc, 1)
	if err != nil || len(rows) != 1 || rows[0].ID != c2.ID {
		t.Fatalf("ListByUser after delete: err=%v rows=%v", err, rows)
	}
	if _, err := repo.GetByID(dbc, c1.ID); err == nil {
		t.Fatalf("GetByID soft-deleted: expected error")
	}
}
