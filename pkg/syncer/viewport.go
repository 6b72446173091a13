package syncer

import "sync"

// Viewport tracks the scroll geometry the UI reports for an open thread and
// decides when auto-scroll-to-bottom is allowed. All dimensions are in the
// UI's own units (typically pixels).
type Viewport struct {
	mu              sync.Mutex
	scrollTop       float64
	scrollHeight    float64
	clientHeight    float64
	bottomThreshold float64
	manualScroll    bool

	// anchorHeight is the content height captured before a prepend; the
	// correction is applied once the UI reports the grown height.
	anchorHeight float64
	anchorSet    bool
}

// NewViewport constructs a viewport with the given bottom threshold.
func NewViewport(bottomThreshold float64) *Viewport {
	if bottomThreshold <= 0 {
		bottomThreshold = 100
	}
	return &Viewport{bottomThreshold: bottomThreshold}
}

// SetMetrics records the current content and window heights. A pending
// prepend anchor is resolved here: the scroll position shifts by the growth
// since the anchored height, so the reader's place survives the render.
func (v *Viewport) SetMetrics(scrollHeight, clientHeight float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.anchorSet {
		v.scrollTop += scrollHeight - v.anchorHeight
		v.anchorSet = false
	}
	v.scrollHeight = scrollHeight
	v.clientHeight = clientHeight
}

// HandleScroll ingests a scroll position update. An upward delta sets the
// manual-scroll flag; returning inside the bottom threshold clears it.
func (v *Viewport) HandleScroll(scrollTop float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if scrollTop < v.scrollTop {
		v.manualScroll = true
	}
	v.scrollTop = scrollTop
	if v.atBottomLocked() {
		v.manualScroll = false
	}
}

// AtBottom reports whether the viewport is within the bottom threshold.
func (v *Viewport) AtBottom() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.atBottomLocked()
}

func (v *Viewport) atBottomLocked() bool {
	return v.scrollHeight-(v.scrollTop+v.clientHeight) <= v.bottomThreshold
}

// ShouldAutoScroll reports whether the view may snap to the bottom: always
// after the local user sent a message, otherwise only when already near the
// bottom and not actively scrolling upward.
func (v *Viewport) ShouldAutoScroll(justSent bool) bool {
	if justSent {
		return true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.atBottomLocked() && !v.manualScroll
}

// ScrollHeight returns the last reported content height.
func (v *Viewport) ScrollHeight() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollHeight
}

// ScrollTop returns the current scroll position.
func (v *Viewport) ScrollTop() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollTop
}

// AnchorPrepend schedules a scroll correction for content about to be
// prepended: the next SetMetrics call shifts scrollTop by the height growth
// since capturedHeight. The content has not rendered yet when the prepend
// lands, so the correction cannot be applied immediately.
func (v *Viewport) AnchorPrepend(capturedHeight float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.anchorHeight = capturedHeight
	v.anchorSet = true
}

// ScrollToBottom snaps the viewport to the end of the content.
func (v *Viewport) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrollTop = v.scrollHeight - v.clientHeight
	v.manualScroll = false
}
