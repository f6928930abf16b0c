package chat

import "time"

type MessageRead struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID int64     `gorm:"column:message_id;not null;uniqueIndex:idx_chat_message_reads_message_user,priority:1" json:"message_id"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_chat_message_reads_message_user,priority:2" json:"user_id"`
	ReadAt    time.Time `gorm:"column:read_at;not null" json:"read_at"`
}

func (MessageRead) TableName() string { return "chat_message_reads" }
