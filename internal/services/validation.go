package services

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
)

// normalizeParticipantIDs returns the distinct positive ids in first-seen
// order, with creatorID appended when absent.
func normalizeParticipantIDs(ids []int64, creatorID int64) []int64 {
	seen := make(map[int64]struct{}, len(ids)+1)
	out := make([]int64, 0, len(ids)+1)
	add := func(id int64) {
		if id <= 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range ids {
		add(id)
	}
	add(creatorID)
	return out
}

func validateMembership(op string, kind chat.Kind, ids []int64) error {
	switch kind {
	case chat.KindDirect:
		if len(ids) != 2 {
			return chat.Validation(op, "direct conversations must have exactly 2 participants")
		}
	case chat.KindGroup:
		if len(ids) < 2 {
			return chat.Validation(op, "group conversations must have at least 2 participants")
		}
	default:
		return chat.Validation(op, "invalid conversation type")
	}
	return nil
}

func normalizeTitle(kind chat.Kind, title string) *string {
	if kind != chat.KindGroup {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	return &title
}

func validateBody(op, body string, maxLen int) error {
	if strings.TrimSpace(body) == "" {
		return chat.Validation(op, "message body cannot be empty")
	}
	if utf8.RuneCountInString(body) > maxLen {
		return chat.Validation(op, "message body exceeds maximum length")
	}
	return nil
}

// normalizeAttachments returns nil for absent or JSON null attachments.
func normalizeAttachments(op string, raw json.RawMessage) (datatypes.JSON, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, chat.Validation(op, "attachments must be valid JSON")
	}
	return datatypes.JSON([]byte(trimmed)), nil
}
