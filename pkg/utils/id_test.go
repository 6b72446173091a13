package utils

import (
	"strings"
	"testing"
)

func TestGenIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := GenID()
		if id == "" {
			t.Fatalf("empty id")
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestGenChatIDPrefix(t *testing.T) {
	id := GenChatID()
	if !strings.HasPrefix(id, "chat_") || len(id) != len("chat_")+12 {
		t.Fatalf("malformed chat id %q", id)
	}
}
