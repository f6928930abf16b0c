package bus

import (
	"context"
)

// WatermarkEvent announces that a message with MessageID was committed.
type WatermarkEvent struct {
	MessageID      int64 `json:"message_id"`
	ConversationID int64 `json:"conversation_id"`
}

type Bus interface {
	Publish(ctx context.Context, ev WatermarkEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev WatermarkEvent)) error
	Close() error
}
