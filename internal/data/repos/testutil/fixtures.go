package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
)

func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, kind chat.Kind, userIDs ...int64) *chat.Conversation {
	tb.Helper()
	now := time.Now().UTC()
	c := &chat.Conversation{
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if kind == chat.KindDirect && len(userIDs) == 2 {
		key := chat.DirectKey(userIDs[0], userIDs[1])
		c.DirectKey = &key
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	for _, uid := range userIDs {
		SeedParticipant(tb, ctx, tx, c.ID, uid)
	}
	return c
}

func SeedParticipant(tb testing.TB, ctx context.Context, tx *gorm.DB, conversationID, userID int64) *chat.Participant {
	tb.Helper()
	now := time.Now().UTC()
	p := &chat.Participant{
		ConversationID: conversationID,
		UserID:         userID,
		JoinedAt:       now,
		CreatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed participant: %v", err)
	}
	return p
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, conversationID, senderID int64, body string) *chat.Message {
	tb.Helper()
	now := time.Now().UTC()
	m := &chat.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func SeedMessageWithAttachments(tb testing.TB, ctx context.Context, tx *gorm.DB, conversationID, senderID int64, body, attachments string) *chat.Message {
	tb.Helper()
	now := time.Now().UTC()
	m := &chat.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		Attachments:    datatypes.JSON([]byte(attachments)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func PtrInt64(v int64) *int64 { return &v }
