package validation

import (
	"fmt"
	"sync"

	"chatsync/pkg/models"
)

// Rules configures message validation. Set once at startup.
type Rules struct {
	// MaxContentLen bounds message content length in bytes; zero disables.
	MaxContentLen int
	// RequireSender rejects messages without a sender id.
	RequireSender bool
}

var (
	mu    sync.RWMutex
	rules = Rules{MaxContentLen: 64 * 1024, RequireSender: true}
)

// SetRules installs the global validation rules.
func SetRules(r Rules) {
	mu.Lock()
	defer mu.Unlock()
	rules = r
}

// ValidateMessage checks an incoming message against the configured rules.
func ValidateMessage(m models.Message) error {
	mu.RLock()
	r := rules
	mu.RUnlock()
	if m.ChatID == "" {
		return fmt.Errorf("chat_id is required")
	}
	if m.Content == "" {
		return fmt.Errorf("content is required")
	}
	if r.RequireSender && m.SenderID == "" {
		return fmt.Errorf("sender_id is required")
	}
	if r.MaxContentLen > 0 && len(m.Content) > r.MaxContentLen {
		return fmt.Errorf("content exceeds %d bytes", r.MaxContentLen)
	}
	return nil
}
