package chat

import "time"

type Participant struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID int64     `gorm:"column:conversation_id;not null;uniqueIndex:idx_chat_participants_conversation_user,priority:1" json:"conversation_id"`
	UserID         int64     `gorm:"column:user_id;not null;uniqueIndex:idx_chat_participants_conversation_user,priority:2;index" json:"user_id"`
	JoinedAt       time.Time `gorm:"column:joined_at;not null" json:"joined_at"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (Participant) TableName() string { return "chat_participants" }
