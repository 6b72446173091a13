package models

// Message is a single chat message inside a conversation. Identity is ID
// scoped by ChatID. Messages are immutable once stored except for Read,
// which only ever flips false -> true.
type Message struct {
	ID       string `json:"id"`
	ChatID   string `json:"chat_id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	// TS is the message timestamp (ns). Zero means the server has not
	// resolved it yet (pending placeholder).
	TS   int64 `json:"ts"`
	Read bool  `json:"read"`
}

// Pending reports whether the message timestamp is still a server-pending
// placeholder.
func (m Message) Pending() bool { return m.TS == 0 }
