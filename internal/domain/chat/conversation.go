package chat

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Kind string

const (
	KindDirect Kind = "direct"
	KindGroup  Kind = "group"
)

func (k Kind) Valid() bool { return k == KindDirect || k == KindGroup }

type Conversation struct {
	ID    int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind  Kind    `gorm:"column:kind;type:varchar(16);not null;index" json:"type"`
	Title *string `gorm:"column:title;type:varchar(255)" json:"title"`

	// DirectKey is "<low>:<high>" for direct conversations and NULL for groups.
	// A partial unique index over it keeps one live direct conversation per pair.
	DirectKey *string `gorm:"column:direct_key;type:varchar(64)" json:"-"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Conversation) TableName() string { return "chat_conversations" }

func (c *Conversation) IsDirect() bool { return c != nil && c.Kind == KindDirect }

func (c *Conversation) IsGroup() bool { return c != nil && c.Kind == KindGroup }

// DirectKey returns the order-independent key of a user pair.
func DirectKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
