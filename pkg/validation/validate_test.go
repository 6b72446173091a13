package validation

import (
	"strings"
	"testing"

	"chatsync/pkg/models"
)

func TestValidateMessage(t *testing.T) {
	SetRules(Rules{MaxContentLen: 10, RequireSender: true})
	defer SetRules(Rules{MaxContentLen: 64 * 1024, RequireSender: true})

	ok := models.Message{ChatID: "c1", SenderID: "alice", Content: "hi"}
	if err := ValidateMessage(ok); err != nil {
		t.Fatalf("valid message rejected: %v", err)
	}

	cases := []struct {
		name string
		m    models.Message
	}{
		{"missing chat", models.Message{SenderID: "a", Content: "hi"}},
		{"missing content", models.Message{ChatID: "c1", SenderID: "a"}},
		{"missing sender", models.Message{ChatID: "c1", Content: "hi"}},
		{"oversized content", models.Message{ChatID: "c1", SenderID: "a", Content: strings.Repeat("x", 11)}},
	}
	for _, tc := range cases {
		if err := ValidateMessage(tc.m); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestValidateMessageRelaxedRules(t *testing.T) {
	SetRules(Rules{})
	defer SetRules(Rules{MaxContentLen: 64 * 1024, RequireSender: true})

	m := models.Message{ChatID: "c1", Content: strings.Repeat("x", 100000)}
	if err := ValidateMessage(m); err != nil {
		t.Fatalf("relaxed rules must accept anonymous long content: %v", err)
	}
}
