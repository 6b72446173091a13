package msgcache

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"chatsync/pkg/cache"
	"chatsync/pkg/logger"
	"chatsync/pkg/models"
)

// Key namespaces inside the shared cache. Namespace discipline is what keeps
// conversations isolated; all three are invalidated together on teardown.
//   msg:<chatID>:<msgID>   individual messages
//   page:<chatID>:<n>      ordered pages
//   index:<chatID>         page number -> cursor map

// Options configures a paged message store.
type Options struct {
	// PageSize bounds the number of messages per cached page.
	PageSize int
	// FreshnessWindow is the grace period after TTL expiry during which a
	// recently accessed page is refreshed instead of served stale.
	FreshnessWindow time.Duration
	// MaxContentBytes caps cached message content; longer content is
	// truncated with an ellipsis. Zero disables truncation.
	MaxContentBytes int
}

// Store is a per-conversation, cursor-paginated message cache built on a
// single shared bounded cache. Construct one per process and pass it by
// reference; it has no hidden global state.
type Store struct {
	c    *cache.Cache[any]
	opts Options
}

// New builds a Store on top of the given cache.
func New(c *cache.Cache[any], opts Options) *Store {
	if opts.PageSize <= 0 {
		opts.PageSize = 25
	}
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = 5 * time.Minute
	}
	return &Store{c: c, opts: opts}
}

// PageSize returns the configured per-page message bound.
func (s *Store) PageSize() int { return s.opts.PageSize }

func msgKey(chatID, msgID string) string   { return "msg:" + chatID + ":" + msgID }
func pageKey(chatID string, page int) string { return fmt.Sprintf("page:%s:%d", chatID, page) }
func indexKey(chatID string) string        { return "index:" + chatID }

// CacheMessagePage stores a fetched page and records its cursors in the
// conversation's page index. Empty pages are a no-op so a failed or
// exhausted fetch never creates an empty entry.
func (s *Store) CacheMessagePage(chatID string, page int, messages []models.Message, hasMore bool) {
	if len(messages) == 0 {
		return
	}
	msgs := make([]models.Message, len(messages))
	copy(msgs, messages)
	for i := range msgs {
		msgs[i].Content = s.CompressContent(msgs[i].Content)
	}
	sortMessages(msgs)
	p := MessagePage{
		Messages:    msgs,
		StartCursor: msgs[0].ID,
		EndCursor:   msgs[len(msgs)-1].ID,
		HasMore:     hasMore,
		CachedAt:    time.Now(),
	}
	s.c.Set(pageKey(chatID, page), p)
	s.updateIndex(chatID, page, p)
	logger.Debug("page_cached", "chat", chatID, "page", page, "count", len(msgs), "has_more", hasMore)
}

// CachedMessagePage returns the cached page, if any. Pages past TTL are not
// dropped: if the gap since the previous access is inside the freshness
// window the page age is reset and it is served fresh; otherwise it is
// served with HasMore forced true so the caller is nudged to refetch.
func (s *Store) CachedMessagePage(chatID string, page int) (MessagePage, bool) {
	key := pageKey(chatID, page)
	view, ok := s.c.GetEntry(key)
	if !ok {
		return MessagePage{}, false
	}
	p, ok := view.Data.(MessagePage)
	if !ok {
		s.c.Delete(key)
		return MessagePage{}, false
	}
	if !view.Expired {
		return p, true
	}
	if time.Since(view.LastAccessed) <= s.opts.FreshnessWindow {
		s.c.Refresh(key)
		logger.Debug("page_freshness_extended", "chat", chatID, "page", page)
		return p, true
	}
	// Stale but servable: hand it back with a refetch hint.
	stale := p
	stale.HasMore = true
	logger.Debug("page_served_stale", "chat", chatID, "page", page)
	return stale, true
}

// CacheMessage caches a single message and, when page 0 exists, merges it
// into that page. This is the merge point between the live stream and
// paginated history: live inserts only ever touch page 0.
func (s *Store) CacheMessage(m models.Message) {
	m.Content = s.CompressContent(m.Content)
	s.c.Set(msgKey(m.ChatID, m.ID), m)

	// GetEntry, not Get: a page past TTL but inside the freshness window must
	// not be dropped by a live merge; the rewrite below resets its age anyway.
	key := pageKey(m.ChatID, 0)
	view, ok := s.c.GetEntry(key)
	if !ok {
		return
	}
	p, ok := view.Data.(MessagePage)
	if !ok {
		return
	}
	msgs := make([]models.Message, 0, len(p.Messages)+1)
	replaced := false
	for _, existing := range p.Messages {
		if existing.ID == m.ID {
			msgs = append(msgs, m)
			replaced = true
			continue
		}
		msgs = append(msgs, existing)
	}
	if !replaced {
		msgs = append(msgs, m)
	}
	sortMessages(msgs)
	if len(msgs) > s.opts.PageSize {
		// Over the bound the oldest element goes, never the newest, and the
		// page now implies there is more history behind it.
		msgs = msgs[len(msgs)-s.opts.PageSize:]
		p.HasMore = true
	}
	p.Messages = msgs
	p.StartCursor = msgs[0].ID
	p.EndCursor = msgs[len(msgs)-1].ID
	s.c.Set(key, p)
	s.updateIndex(m.ChatID, 0, p)
}

// CachedMessage returns the individually cached message, if present.
func (s *Store) CachedMessage(chatID, msgID string) (models.Message, bool) {
	v, ok := s.c.Get(msgKey(chatID, msgID))
	if !ok {
		return models.Message{}, false
	}
	m, ok := v.(models.Message)
	return m, ok
}

// UpdateReadStatus flips read on each cached message, then walks every page
// referenced by the page index and rewrites matching copies. Re-marking an
// already-read message is a no-op, so propagation is idempotent.
func (s *Store) UpdateReadStatus(chatID string, ids []string) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
		key := msgKey(chatID, id)
		if view, ok := s.c.GetEntry(key); ok {
			if m, ok := view.Data.(models.Message); ok && !m.Read {
				m.Read = true
				s.c.Set(key, m)
			}
		}
	}
	// GetEntry here too: a read flip must not expire pages still inside the
	// freshness window.
	for page := range s.PageIndex(chatID) {
		key := pageKey(chatID, page)
		view, ok := s.c.GetEntry(key)
		if !ok {
			continue
		}
		p, ok := view.Data.(MessagePage)
		if !ok {
			continue
		}
		changed := false
		msgs := make([]models.Message, len(p.Messages))
		copy(msgs, p.Messages)
		for i := range msgs {
			if _, hit := want[msgs[i].ID]; hit && !msgs[i].Read {
				msgs[i].Read = true
				changed = true
			}
		}
		if changed {
			p.Messages = msgs
			s.c.Set(key, p)
		}
	}
}

// PageIndex returns the cursor map for every cached page of a conversation.
// The index outlives TTL like the pages it points at: as long as a stale page
// is servable, the index locating it must be too.
func (s *Store) PageIndex(chatID string) PageIndex {
	view, ok := s.c.GetEntry(indexKey(chatID))
	if !ok {
		return PageIndex{}
	}
	idx, ok := view.Data.(PageIndex)
	if !ok {
		return PageIndex{}
	}
	return idx.clone()
}

// FindMessagePage scans cached pages via the index for the page currently
// holding msgID. Used to avoid blind refetching when a specific message must
// be revealed (jump-to-message). Returns false when no cached page has it.
func (s *Store) FindMessagePage(chatID, msgID string) (int, bool) {
	idx := s.PageIndex(chatID)
	pages := make([]int, 0, len(idx))
	for n := range idx {
		pages = append(pages, n)
	}
	sort.Ints(pages)
	for _, n := range pages {
		view, ok := s.c.GetEntry(pageKey(chatID, n))
		if !ok {
			continue
		}
		p, ok := view.Data.(MessagePage)
		if !ok {
			continue
		}
		for _, m := range p.Messages {
			if m.ID == msgID {
				return n, true
			}
		}
	}
	return 0, false
}

// ClearChat invalidates all three namespaces for a conversation. Called when
// a thread is torn down.
func (s *Store) ClearChat(chatID string) {
	s.c.Invalidate("msg:"+chatID+":", "page:"+chatID+":", "index:"+chatID)
	logger.Debug("chat_cache_cleared", "chat", chatID)
}

// Stats reports the underlying cache statistics.
func (s *Store) Stats() cache.Stats { return s.c.Stats() }

// CompressContent truncates content past the configured byte cap with an
// ellipsis, bounding cached memory per message. The cut backs up to a rune
// boundary so a multi-byte character is never split. Only the cached copy is
// affected, never the canonical stored content.
func (s *Store) CompressContent(text string) string {
	max := s.opts.MaxContentBytes
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}

// updateIndex rewrites one page's cursor entry.
func (s *Store) updateIndex(chatID string, page int, p MessagePage) {
	idx := s.PageIndex(chatID)
	idx[page] = PageCursors{Start: p.StartCursor, End: p.EndCursor}
	s.c.Set(indexKey(chatID), idx)
}

// sortMessages orders ascending by timestamp, with server-pending
// placeholders (zero timestamp) sorting after resolved instants so an
// in-flight message stays at the bottom until its timestamp resolves.
func sortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if a.Pending() != b.Pending() {
			return b.Pending()
		}
		return a.TS < b.TS
	})
}
