package syncer

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"chatsync/pkg/feed"
	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/msgcache"
	"chatsync/pkg/utils"
)

// State is the controller lifecycle:
// Idle -> LiveSubscribed -> (LoadingOlder <-> LiveSubscribed) -> Closed.
type State int32

const (
	StateIdle State = iota
	StateLiveSubscribed
	StateLoadingOlder
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLiveSubscribed:
		return "live_subscribed"
	case StateLoadingOlder:
		return "loading_older"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Backend is the slice of the document store the controller depends on.
type Backend interface {
	SaveMessage(m models.Message) error
	MessagesBefore(chatID, cursorID string, limit int) ([]models.Message, error)
	MarkRead(chatID string, ids []string) error
}

// Feed is the live change-subscription source.
type Feed interface {
	Subscribe(chatID string) (<-chan feed.Snapshot, func())
}

// Options configures a controller.
type Options struct {
	PageSize int
	// BottomThreshold is the distance from the bottom within which
	// auto-scroll stays enabled.
	BottomThreshold float64
	// OnUnread is invoked with new unread messages from other senders while
	// the conversation is not focused (conversation-list badge).
	OnUnread func(chatID string, count int)
}

// Controller synchronizes one open conversation: it feeds live snapshots
// into the paged cache, issues at-most-one-in-flight historical fetches,
// propagates read receipts, and keeps the viewport anchored across
// prepends.
type Controller struct {
	chatID  string
	userID  string
	backend Backend
	cache   *msgcache.Store
	view    *Viewport
	opts    Options

	mu          sync.Mutex
	state       State
	focused     bool
	hasMore     bool
	pagesLoaded int
	oldestID    string
	seen        map[string]struct{}
	// localRead is the optimistic view-state flip, applied before the store
	// write resolves and never rolled back (eventual consistency accepted).
	localRead map[string]struct{}

	loadGroup   singleflight.Group
	unsubscribe func()
	done        chan struct{}
}

// New constructs a controller for one conversation and local user.
func New(chatID, userID string, backend Backend, cache *msgcache.Store, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = cache.PageSize()
	}
	return &Controller{
		chatID:    chatID,
		userID:    userID,
		backend:   backend,
		cache:     cache,
		view:      NewViewport(opts.BottomThreshold),
		opts:      opts,
		state:     StateIdle,
		hasMore:   true,
		seen:      make(map[string]struct{}),
		localRead: make(map[string]struct{}),
	}
}

// Viewport exposes the scroll state for the UI layer.
func (c *Controller) Viewport() *Viewport { return c.view }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HasMore reports whether older history is believed to exist.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// SetFocused marks whether this conversation is the one currently open in
// the UI. Unfocused conversations accumulate unread badges instead of read
// flips.
func (c *Controller) SetFocused(focused bool) {
	c.mu.Lock()
	c.focused = focused
	c.mu.Unlock()
}

// Open subscribes to the live stream and starts consuming snapshots until
// ctx is cancelled or Close is called.
func (c *Controller) Open(ctx context.Context, f Feed) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("syncer: open in state %s", c.state)
	}
	ch, cancel := f.Subscribe(c.chatID)
	c.unsubscribe = cancel
	c.state = StateLiveSubscribed
	c.done = make(chan struct{})
	c.mu.Unlock()

	logger.Info("conversation_opened", "chat", c.chatID, "user", c.userID)
	go c.consume(ctx, ch)
	return nil
}

func (c *Controller) consume(ctx context.Context, ch <-chan feed.Snapshot) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			c.applySnapshot(snap)
		}
	}
}

// applySnapshot diffs one live snapshot against what the controller has
// already seen. The first snapshot seeds page 0; later ones merge message
// by message so historical pages are never touched by live data.
func (c *Controller) applySnapshot(snap feed.Snapshot) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	first := len(c.seen) == 0
	var fresh []models.Message
	var flips []string
	var unread int
	for _, m := range snap.Messages {
		if _, ok := c.seen[m.ID]; !ok {
			c.seen[m.ID] = struct{}{}
			fresh = append(fresh, m)
			if !m.Read && m.SenderID != c.userID {
				unread++
			}
		}
		if !m.Read && m.SenderID != c.userID {
			if _, done := c.localRead[m.ID]; !done && c.focused {
				c.localRead[m.ID] = struct{}{}
				flips = append(flips, m.ID)
			}
		}
	}
	if len(snap.Messages) > 0 {
		oldest := snap.Messages[0].ID
		if c.oldestID == "" {
			c.oldestID = oldest
		}
	}
	focused := c.focused
	c.mu.Unlock()

	if first && len(snap.Messages) > 0 {
		c.cache.CacheMessagePage(c.chatID, 0, snap.Messages, len(snap.Messages) >= c.opts.PageSize)
	} else {
		for _, m := range fresh {
			c.cache.CacheMessage(m)
		}
	}

	if unread > 0 && !focused && c.opts.OnUnread != nil {
		c.opts.OnUnread(c.chatID, unread)
	}

	if len(flips) > 0 {
		// Optimistic: local view state is already flipped; persist, then
		// align the cache. A persistence failure is logged only - the
		// optimistic flip stands and the next snapshot reconverges.
		if err := c.backend.MarkRead(c.chatID, flips); err != nil {
			logger.Error("read_status_persist_failed", "chat", c.chatID, "count", len(flips), "error", err)
		}
		c.cache.UpdateReadStatus(c.chatID, flips)
	}
}

// LoadOlder fetches the next page of history behind the oldest loaded
// message. At most one fetch per conversation is in flight; concurrent
// callers share the first fetch's result. On failure hasMore is forced
// false instead of retrying. Returns the number of messages prepended.
func (c *Controller) LoadOlder(ctx context.Context) (int, error) {
	v, err, _ := c.loadGroup.Do(c.chatID, func() (any, error) {
		return c.loadOlderOnce(ctx)
	})
	n, _ := v.(int)
	return n, err
}

func (c *Controller) loadOlderOnce(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.state != StateLiveSubscribed {
		c.mu.Unlock()
		return 0, fmt.Errorf("syncer: load older in state %s", c.state)
	}
	if !c.hasMore {
		c.mu.Unlock()
		return 0, nil
	}
	// No snapshot yet means no oldest cursor; an empty cursor would fetch the
	// newest window and duplicate page 0.
	if c.oldestID == "" {
		c.mu.Unlock()
		return 0, nil
	}
	c.state = StateLoadingOlder
	cursor := c.oldestID
	chatID := c.chatID
	c.mu.Unlock()

	captured := c.view.ScrollHeight()

	msgs, err := c.backend.MessagesBefore(chatID, cursor, c.opts.PageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	// A fetch that resolves after navigation away must be discarded, or it
	// would pollute whatever conversation the cache now serves.
	if c.state == StateClosed || c.chatID != chatID {
		logger.Warn("stale_history_fetch_discarded", "chat", chatID)
		return 0, nil
	}
	c.state = StateLiveSubscribed
	if err != nil {
		// Fail closed: stop prefetching, let the user retry explicitly.
		c.hasMore = false
		logger.Error("history_fetch_failed", "chat", chatID, "cursor", cursor, "error", err)
		return 0, err
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	c.hasMore = len(msgs) >= c.opts.PageSize
	if len(msgs) == 0 {
		return 0, nil
	}
	c.pagesLoaded++
	page := c.pagesLoaded
	c.cache.CacheMessagePage(chatID, page, msgs, c.hasMore)
	c.oldestID = msgs[0].ID
	for _, m := range msgs {
		c.seen[m.ID] = struct{}{}
	}

	// The prepended page has not rendered yet; the correction is applied when
	// the UI reports the grown height.
	c.view.AnchorPrepend(captured)
	logger.Info("history_page_loaded", "chat", chatID, "page", page, "count", len(msgs), "has_more", c.hasMore)
	return len(msgs), nil
}

// Send persists a new message from the local user. There is no optimistic
// insert: the message appears once the live subscription echoes it back.
// Errors surface to the caller without mutating cache state.
func (c *Controller) Send(content string) (models.Message, error) {
	c.mu.Lock()
	if c.state != StateLiveSubscribed && c.state != StateLoadingOlder {
		c.mu.Unlock()
		return models.Message{}, fmt.Errorf("syncer: send in state %s", c.state)
	}
	c.mu.Unlock()
	m := models.Message{
		ID:       utils.GenID(),
		ChatID:   c.chatID,
		SenderID: c.userID,
		Content:  content,
	}
	if err := c.backend.SaveMessage(m); err != nil {
		logger.Error("send_failed", "chat", c.chatID, "error", err)
		return models.Message{}, err
	}
	c.view.ScrollToBottom()
	return m, nil
}

// Close unsubscribes the live stream and clears this conversation's cache
// namespace. Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	unsub := c.unsubscribe
	done := c.done
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if done != nil {
		<-done
	}
	c.cache.ClearChat(c.chatID)
	logger.Info("conversation_closed", "chat", c.chatID)
}
