package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&chat.Conversation{},
		&chat.Participant{},
		&chat.Message{},
		&chat.MessageRead{},
	)
}

// EnsureChatIndexes creates the indexes AutoMigrate cannot express. The SQL is
// valid on both Postgres and SQLite.
func EnsureChatIndexes(db *gorm.DB) error {
	// Poll scan: WHERE conversation_id IN (...) AND id > ?
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chat_messages_conversation_id_id
		ON chat_messages (conversation_id, id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_chat_messages_conversation_id_id: %w", err)
	}

	// Conversation list per user.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chat_participants_user_conversation
		ON chat_participants (user_id, conversation_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_chat_participants_user_conversation: %w", err)
	}

	// One live direct conversation per user pair.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_chat_conversations_direct_key
		ON chat_conversations (direct_key)
		WHERE direct_key IS NOT NULL AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_chat_conversations_direct_key: %w", err)
	}

	return nil
}

// Migrate runs AutoMigrateAll followed by EnsureChatIndexes.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if err := EnsureChatIndexes(db); err != nil {
		return err
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating chat tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureChatIndexes(s.db); err != nil {
		s.log.Error("Chat index migration failed", "error", err)
		return err
	}
	return nil
}
