package feed

import (
	"sync"

	"chatsync/pkg/logger"
	"chatsync/pkg/models"
)

// Snapshot is one ordered view of a conversation's most recent window of
// messages, emitted on every mutation of that conversation.
type Snapshot struct {
	ChatID   string           `json:"chat_id"`
	Messages []models.Message `json:"messages"`
}

// Hub fans out per-conversation snapshots to subscribers. Publish never
// blocks: a slow subscriber loses its oldest pending snapshot, which is safe
// because every snapshot is a full window, not a delta.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan Snapshot
	nextID int
	buffer int
	closed bool
}

// NewHub constructs a hub with the given per-subscriber channel buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 8
	}
	return &Hub{subs: make(map[string]map[int]chan Snapshot), buffer: buffer}
}

// Subscribe registers for a conversation's snapshots. The returned cancel
// func unregisters and closes the channel; it is safe to call twice.
func (h *Hub) Subscribe(chatID string) (<-chan Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Snapshot, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	if h.subs[chatID] == nil {
		h.subs[chatID] = make(map[int]chan Snapshot)
	}
	id := h.nextID
	h.nextID++
	h.subs[chatID][id] = ch
	logger.Debug("feed_subscribed", "chat", chatID, "sub", id)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if m, ok := h.subs[chatID]; ok {
				if c, ok := m[id]; ok {
					delete(m, id)
					close(c)
				}
				if len(m) == 0 {
					delete(h.subs, chatID)
				}
			}
			logger.Debug("feed_unsubscribed", "chat", chatID, "sub", id)
		})
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of its conversation.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for id, ch := range h.subs[snap.ChatID] {
		select {
		case ch <- snap:
		default:
			// Drop the oldest pending snapshot to make room.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
			logger.Warn("feed_subscriber_lagging", "chat", snap.ChatID, "sub", id)
		}
	}
}

// Subscribers returns the subscriber count for a conversation.
func (h *Hub) Subscribers(chatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[chatID])
}

// Close shuts the hub down and closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for chatID, m := range h.subs {
		for _, ch := range m {
			close(ch)
		}
		delete(h.subs, chatID)
	}
}
