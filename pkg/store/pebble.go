package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"chatsync/pkg/feed"
	"chatsync/pkg/logger"
	"chatsync/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the document store for conversations and messages, backed by a
// Pebble database. Key layout:
//
//	chat:<chatID>:msg:<unix_nano_padded>-<seq>   message payload (sortable)
//	chat:<chatID>:msgid:<msgID>                  message id -> primary key
//	chat:<chatID>:meta                           conversation metadata
//
// Every mutation republishes the conversation's latest window to the feed
// hub so live subscribers converge on the same snapshot the cache serves.
type Store struct {
	db     *pebble.DB
	path   string
	hub    *feed.Hub
	window int

	// seq reduces key collisions when messages share a nanosecond timestamp.
	seq uint64
}

// Open opens (or creates) a Pebble database at path. hub may be nil when no
// live fanout is wanted (tests, offline tooling). window is the snapshot
// size published on mutations.
func Open(path string, hub *feed.Hub, window int) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	if window <= 0 {
		window = 25
	}
	logger.Info("pebble_opened", "path", path)
	return &Store{db: db, path: path, hub: hub, window: window}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and usable.
func (s *Store) Ready() bool { return s != nil && s.db != nil }

func msgPrefix(chatID string) []byte  { return []byte("chat:" + chatID + ":msg:") }
func msgIDKey(chatID, id string) []byte { return []byte("chat:" + chatID + ":msgid:" + id) }
func metaKey(chatID string) []byte    { return []byte("chat:" + chatID + ":meta") }

// SaveMessage appends a message to its conversation with a sortable
// timestamp key, indexes it by id, bumps conversation metadata and publishes
// a fresh snapshot. A zero timestamp is resolved to now.
func (s *Store) SaveMessage(m models.Message) error {
	if s.db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if m.ChatID == "" || m.ID == "" {
		return fmt.Errorf("message requires chat_id and id")
	}
	if m.TS == 0 {
		m.TS = time.Now().UTC().UnixNano()
	}
	seq := atomic.AddUint64(&s.seq, 1)
	key := fmt.Sprintf("chat:%s:msg:%020d-%06d", m.ChatID, m.TS, seq)

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := s.db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("save_message_failed", "chat", m.ChatID, "key", key, "error", err)
		return err
	}
	if err := s.db.Set(msgIDKey(m.ChatID, m.ID), []byte(key), pebble.Sync); err != nil {
		logger.Error("save_message_index_failed", "chat", m.ChatID, "msg_id", m.ID, "error", err)
		return err
	}
	logger.Info("message_saved", "chat", m.ChatID, "msg_id", m.ID)

	s.touchConversation(m)
	s.publish(m.ChatID)
	return nil
}

// GetMessage returns a message by id within its conversation.
func (s *Store) GetMessage(chatID, msgID string) (models.Message, error) {
	var m models.Message
	if s.db == nil {
		return m, fmt.Errorf("pebble not opened; call store.Open first")
	}
	primary, closer, err := s.db.Get(msgIDKey(chatID, msgID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return m, ErrNotFound
		}
		return m, err
	}
	key := append([]byte(nil), primary...)
	closer.Close()
	v, closer2, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return m, ErrNotFound
		}
		return m, err
	}
	defer closer2.Close()
	if err := json.Unmarshal(v, &m); err != nil {
		return m, fmt.Errorf("invalid message JSON: %w", err)
	}
	return m, nil
}

// LatestWindow returns the most recent limit messages of a conversation in
// ascending timestamp order. This is the snapshot the live subscription
// delivers on every mutation.
func (s *Store) LatestWindow(chatID string, limit int) ([]models.Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := msgPrefix(chatID)
	upper := append(append([]byte(nil), prefix...), 0xff)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for ok := iter.Last(); ok && len(out) < limit; ok = iter.Prev() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("invalid message JSON: %w", err)
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

// MessagesBefore returns up to limit messages strictly older than the
// message identified by cursorID, ascending. An empty cursor means "from the
// newest". The cursor is opaque to callers; it is resolved through the id
// index.
func (s *Store) MessagesBefore(chatID, cursorID string, limit int) ([]models.Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	if cursorID == "" {
		return s.LatestWindow(chatID, limit)
	}
	primary, closer, err := s.db.Get(msgIDKey(chatID, cursorID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("cursor %q: %w", cursorID, ErrNotFound)
		}
		return nil, err
	}
	cursorKey := append([]byte(nil), primary...)
	closer.Close()

	prefix := msgPrefix(chatID)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: cursorKey})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for ok := iter.Last(); ok && len(out) < limit; ok = iter.Prev() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("invalid message JSON: %w", err)
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

// MarkRead flips read on the given messages. Already-read messages are left
// untouched so repeated calls converge. A snapshot is republished when
// anything changed.
func (s *Store) MarkRead(chatID string, ids []string) error {
	if s.db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	changed := false
	for _, id := range ids {
		primary, closer, err := s.db.Get(msgIDKey(chatID, id))
		if err != nil {
			if errors.Is(err, pebble.ErrNotFound) {
				logger.Warn("mark_read_missing_message", "chat", chatID, "msg_id", id)
				continue
			}
			return err
		}
		key := append([]byte(nil), primary...)
		closer.Close()
		v, closer2, err := s.db.Get(key)
		if err != nil {
			if errors.Is(err, pebble.ErrNotFound) {
				continue
			}
			return err
		}
		var m models.Message
		uerr := json.Unmarshal(v, &m)
		closer2.Close()
		if uerr != nil {
			return fmt.Errorf("invalid message JSON: %w", uerr)
		}
		if m.Read {
			continue
		}
		m.Read = true
		nb, _ := json.Marshal(m)
		if err := s.db.Set(key, nb, pebble.Sync); err != nil {
			logger.Error("mark_read_failed", "chat", chatID, "msg_id", id, "error", err)
			return err
		}
		changed = true
	}
	if changed {
		logger.Info("messages_marked_read", "chat", chatID, "count", len(ids))
		s.publish(chatID)
	}
	return nil
}

// SaveConversation stores conversation metadata under its reserved key.
func (s *Store) SaveConversation(c models.Conversation) error {
	if s.db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.db.Set(metaKey(c.ID), data, pebble.Sync); err != nil {
		logger.Error("save_conversation_failed", "chat", c.ID, "error", err)
		return err
	}
	logger.Info("conversation_saved", "chat", c.ID)
	return nil
}

// GetConversation returns the stored conversation metadata.
func (s *Store) GetConversation(chatID string) (models.Conversation, error) {
	var c models.Conversation
	if s.db == nil {
		return c, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := s.db.Get(metaKey(chatID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return c, ErrNotFound
		}
		return c, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &c); err != nil {
		return c, fmt.Errorf("invalid conversation JSON: %w", err)
	}
	return c, nil
}

// ListConversations returns every stored conversation's metadata.
func (s *Store) ListConversations() ([]models.Conversation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte("chat:")
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Conversation
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !bytes.HasSuffix(iter.Key(), []byte(":meta")) {
			continue
		}
		var c models.Conversation
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, iter.Error()
}

// DeleteChat removes every key belonging to a conversation.
func (s *Store) DeleteChat(chatID string) error {
	if s.db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	lower := []byte("chat:" + chatID + ":")
	upper := append(append([]byte(nil), lower...), 0xff)
	if err := s.db.DeleteRange(lower, upper, pebble.Sync); err != nil {
		logger.Error("delete_chat_failed", "chat", chatID, "error", err)
		return err
	}
	logger.Info("chat_deleted", "chat", chatID)
	return nil
}

// touchConversation creates or bumps the conversation metadata after an
// append. Best-effort: a metadata write failure never fails the message.
func (s *Store) touchConversation(m models.Message) {
	c, err := s.GetConversation(m.ChatID)
	if err != nil {
		c = models.Conversation{ID: m.ChatID, CreatedTS: m.TS}
	}
	c.UpdatedTS = m.TS
	c.LastMessageID = m.ID
	if err := s.SaveConversation(c); err != nil {
		logger.Warn("touch_conversation_failed", "chat", m.ChatID, "error", err)
	}
}

// publish pushes the conversation's latest window to the feed hub.
func (s *Store) publish(chatID string) {
	if s.hub == nil {
		return
	}
	msgs, err := s.LatestWindow(chatID, s.window)
	if err != nil {
		logger.Error("publish_snapshot_failed", "chat", chatID, "error", err)
		return
	}
	s.hub.Publish(feed.Snapshot{ChatID: chatID, Messages: msgs})
}

func reverse(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
