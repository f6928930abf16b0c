package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/yungbote/dbchat-backend/internal/platform/envutil"
)

const redacted = "[REDACTED]"

// policy decides what a log field may reveal. Message content is dropped,
// credentials are dropped and user ids are replaced by a salted hash.
type policy struct {
	enabled bool
	salt    string

	dropExact    map[string]bool
	dropContains []string
	hashContains []string
}

var (
	policyOnce sync.Once
	active     *policy
)

func currentPolicy() *policy {
	policyOnce.Do(func() {
		active = newPolicy(
			envutil.Bool("LOG_REDACTION_ENABLED", true),
			envutil.String("LOG_HASH_SALT", ""),
		)
	})
	return active
}

func newPolicy(enabled bool, salt string) *policy {
	return &policy{
		enabled: enabled,
		salt:    salt,
		dropExact: map[string]bool{
			"body":        true,
			"attachments": true,
			"title":       true,
		},
		dropContains: []string{"token", "authorization", "password", "secret", "cookie"},
		hashContains: []string{"user_id", "sender_id", "creator_id", "participant_ids"},
	}
}

func (p *policy) apply(kv []interface{}) []interface{} {
	if len(kv) == 0 || p == nil || !p.enabled {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			// Dangling key; zap reports it as such.
			out = append(out, kv[i])
			break
		}
		out = append(out, kv[i], p.value(normalizeKey(kv[i]), kv[i+1]))
	}
	return out
}

func (p *policy) value(key string, val interface{}) interface{} {
	switch {
	case key == "":
		return val
	case p.dropExact[key] || containsAny(key, p.dropContains):
		return redacted
	case containsAny(key, p.hashContains):
		return p.hash(val)
	}
	if s, ok := val.(string); ok && looksLikeJWT(s) {
		return redacted
	}
	return val
}

// hash maps ids, including id slices, to short salted digests so log lines
// for one user still correlate.
func (p *policy) hash(val interface{}) interface{} {
	switch v := val.(type) {
	case []int64:
		out := make([]string, len(v))
		for i, id := range v {
			out[i] = p.digest(fmt.Sprint(id))
		}
		return out
	case nil:
		return ""
	default:
		return p.digest(strings.TrimSpace(fmt.Sprint(v)))
	}
}

func (p *policy) digest(raw string) string {
	if raw == "" {
		return ""
	}
	h := sha256.New()
	_, _ = h.Write([]byte(p.salt))
	_, _ = h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func normalizeKey(k interface{}) string {
	s, ok := k.(string)
	if !ok {
		s = fmt.Sprint(k)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(key string, parts []string) bool {
	for _, part := range parts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}
