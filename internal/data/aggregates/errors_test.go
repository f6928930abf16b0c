package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
)

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !chat.IsCode(err, chat.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", chat.CodeOf(err), err)
	}
}

func TestMapError_DuplicatedKey(t *testing.T) {
	err := MapError("op", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey))
	if !chat.IsCode(err, chat.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", chat.CodeOf(err), err)
	}
}

func TestMapError_PgUniqueViolation(t *testing.T) {
	err := MapError("op", &pgconn.PgError{Code: "23505", Message: "duplicate key value"})
	if !chat.IsCode(err, chat.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", chat.CodeOf(err), err)
	}
}

func TestMapError_SQLiteUniqueMessage(t *testing.T) {
	err := MapError("op", errors.New("UNIQUE constraint failed: chat_participants.conversation_id"))
	if !chat.IsCode(err, chat.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", chat.CodeOf(err), err)
	}
}

func TestMapError_PassthroughChatError(t *testing.T) {
	in := chat.Validation("op", "bad input")
	if out := MapError("other", in); out != in {
		t.Fatalf("expected passthrough chat error")
	}
}

func TestMapError_ContextErrorsStayRaw(t *testing.T) {
	if err := MapError("op", context.Canceled); !errors.Is(err, context.Canceled) || chat.CodeOf(err) != "" {
		t.Fatalf("expected raw context.Canceled, got %v", err)
	}
}

func TestMapError_Internal(t *testing.T) {
	err := MapError("op", errors.New("connection reset"))
	if !chat.IsCode(err, chat.CodeInternal) {
		t.Fatalf("expected internal code, got %q (%v)", chat.CodeOf(err), err)
	}
	if MapError("op", nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}
