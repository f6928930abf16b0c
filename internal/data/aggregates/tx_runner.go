package aggregates

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
)

// TxRunner provides a shared transaction boundary primitive for multi-row writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner returns a transaction runner backed by GORM transactions.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return chat.NewError(chat.CodeInternal, "tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// Within runs fn inside the caller's transaction when dbc carries one, else
// opens a new one through r. Nested calls therefore join the outer unit.
func Within(r TxRunner, dbc dbctx.Context, fn func(dbc dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return r.InTx(dbc.Ctx, fn)
}
