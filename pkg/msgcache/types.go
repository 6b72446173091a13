package msgcache

import (
	"time"

	"chatsync/pkg/models"
)

// MessagePage is one cached window of a conversation, ordered by ascending
// timestamp. Page 0 is the most recent window and the only page live
// updates merge into; higher pages hold older history fetched on demand.
type MessagePage struct {
	Messages    []models.Message `json:"messages"`
	StartCursor string           `json:"start_cursor,omitempty"`
	EndCursor   string           `json:"end_cursor,omitempty"`
	HasMore     bool             `json:"has_more"`
	CachedAt    time.Time        `json:"cached_at"`
}

// PageCursors records the id boundaries of one cached page.
type PageCursors struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// PageIndex maps page number to cursor boundaries for every cached page of
// one conversation. It lets lookups find which page holds a message id
// without scanning pages that were never cached.
type PageIndex map[int]PageCursors

// clone returns a copy safe to mutate and re-store.
func (idx PageIndex) clone() PageIndex {
	out := make(PageIndex, len(idx))
	for k, v := range idx {
		out[k] = v
	}
	return out
}
