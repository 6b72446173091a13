package models

// Conversation is the per-thread metadata record. Participants are opaque
// identity ids (clients manage meaning).
type Conversation struct {
	ID        string `json:"id"`
	ListingID string `json:"listing_id,omitempty"`
	// Participants are the two sides of a rental conversation.
	Participants []string `json:"participants,omitempty"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
	// Updated timestamp (ns) - last time metadata or chat activity changed
	UpdatedTS int64 `json:"updated_ts,omitempty"`
	// LastMessageID is the most recent message appended to the conversation.
	LastMessageID string `json:"last_message_id,omitempty"`
}

// HasParticipant reports whether id is one of the conversation members.
func (c Conversation) HasParticipant(id string) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}
