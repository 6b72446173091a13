package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// GenID returns a sortable, collision-resistant message id.
func GenID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%d-%s", time.Now().UTC().UnixNano(), hex.EncodeToString(b[:]))
}

// GenChatID returns a new conversation id.
func GenChatID() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return "chat_" + hex.EncodeToString(b[:])
}
