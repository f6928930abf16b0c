package chat

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message ids come from one table-wide sequence, so they totally order sends
// across every conversation. A single "id > cursor" scan answers "anything new
// in any of my conversations".
type Message struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID int64          `gorm:"column:conversation_id;not null;index" json:"conversation_id"`
	SenderID       int64          `gorm:"column:sender_id;not null;index" json:"sender_id"`
	Body           string         `gorm:"column:body;type:text;not null" json:"body"`
	Attachments    datatypes.JSON `gorm:"column:attachments" json:"attachments,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Message) TableName() string { return "chat_messages" }

// MaxID returns the largest id in msgs, or def when msgs is empty.
func MaxID(msgs []*Message, def int64) int64 {
	out := def
	for _, m := range msgs {
		if m != nil && m.ID > out {
			out = m.ID
		}
	}
	return out
}
