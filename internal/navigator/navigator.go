// Package navigator owns the reading position of one viewer session.
//
// A Navigator is driven from a single event loop: it is not safe for
// concurrent use. Image loading and preference writes happen off the loop
// and never block or roll back a transition.
package navigator

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"mekuri/internal/log"
	"mekuri/internal/settings"
	"mekuri/internal/spread"
)

// persistTimeout bounds a single preference write
const persistTimeout = 5 * time.Second

// PreferenceWriter receives mode and direction changes
type PreferenceWriter interface {
	SetViewerPreferences(ctx context.Context, patch settings.ViewerPreferences) error
}

// View is what the presentation layer needs to draw the current spread
type View struct {
	SpreadIndex  int
	TotalSpreads int
	Right        int // page index or spread.None
	Left         int // page index or spread.None
}

// Options configures a Navigator
type Options struct {
	// OnSpreadChange is called after a transition changes the spread index
	// or the number of spreads.
	OnSpreadChange func(index, total int)

	// OnPreferencesChange is called after the view mode or reading
	// direction is toggled.
	OnPreferencesChange func(mode spread.ViewMode, dir spread.Direction)

	// Preferences persists toggles. Optional.
	Preferences PreferenceWriter

	// Loader is asked for the images of every newly shown spread. Optional.
	Loader *Loader

	Logger *slog.Logger
}

// Navigator is the reading state machine of a viewer session
type Navigator struct {
	pageCount int
	mode      spread.ViewMode
	dir       spread.Direction
	spreads   []spread.Spread
	index     int

	// Spread last handed to the loader
	requested spread.Spread
	hasLoaded bool

	opts   Options
	logger *slog.Logger
	prefs  *prefQueue
}

// New starts a session for pageCount pages. Negative counts are treated
// as zero.
func New(pageCount int, mode spread.ViewMode, dir spread.Direction, opts Options) *Navigator {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithComponent("navigator")
	}

	n := &Navigator{
		mode:   mode,
		dir:    dir,
		opts:   opts,
		logger: logger,
		prefs:  &prefQueue{writer: opts.Preferences, logger: logger},
	}
	n.Reset(pageCount)
	return n
}

// Reset re-initializes the session for a new document, keeping the
// current mode and direction.
func (n *Navigator) Reset(pageCount int) View {
	if pageCount < 0 {
		pageCount = 0
	}
	n.pageCount = pageCount
	n.spreads = spread.Build(pageCount, n.mode, n.dir)
	n.index = 0
	n.hasLoaded = false

	n.notifySpread()
	n.requestImages()
	return n.View()
}

// Next advances one spread. No-op at the last spread.
func (n *Navigator) Next() View {
	return n.moveTo(n.index + 1)
}

// Prev goes back one spread. No-op at the first spread.
func (n *Navigator) Prev() View {
	return n.moveTo(n.index - 1)
}

// JumpToStart shows the first spread
func (n *Navigator) JumpToStart() View {
	return n.moveTo(0)
}

// JumpToEnd shows the last spread
func (n *Navigator) JumpToEnd() View {
	return n.moveTo(len(n.spreads) - 1)
}

// JumpToRatio shows the spread at ratio of the way through the book.
// ratio is clamped to [0, 1]; NaN is treated as 0.
func (n *Navigator) JumpToRatio(ratio float64) View {
	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}
	return n.moveTo(int(math.Round(ratio * float64(len(n.spreads)-1))))
}

// JumpToPage shows the spread containing page (0-based). Pages outside
// the book are clamped to the first or last page.
func (n *Navigator) JumpToPage(page int) View {
	if n.pageCount == 0 {
		return n.View()
	}
	if page < 0 {
		page = 0
	} else if page >= n.pageCount {
		page = n.pageCount - 1
	}
	return n.moveTo(spread.IndexForPage(n.spreads, page))
}

// StepLeft handles a "go left" input: forward in RTL, backward in LTR
func (n *Navigator) StepLeft() View {
	if n.dir == spread.RTL {
		return n.Next()
	}
	return n.Prev()
}

// StepRight handles a "go right" input: backward in RTL, forward in LTR
func (n *Navigator) StepRight() View {
	if n.dir == spread.RTL {
		return n.Prev()
	}
	return n.Next()
}

// ToggleViewMode switches between spread and single mode, keeping the
// current page in view.
func (n *Navigator) ToggleViewMode() View {
	page := n.CurrentPage()
	n.mode = n.mode.Toggle()
	n.relocate(page)

	n.logger.Debug("View mode toggled", "mode", n.mode.String(), "page", page+1)
	n.prefs.push(settings.ViewerPreferences{Mode: settings.Ptr(n.mode)})
	n.notifyPreferences()
	return n.View()
}

// ToggleReadingDirection switches between RTL and LTR, keeping the
// current page in view.
func (n *Navigator) ToggleReadingDirection() View {
	// Current page under the old direction
	page := n.CurrentPage()
	n.dir = n.dir.Toggle()
	n.relocate(page)

	n.logger.Debug("Reading direction toggled", "direction", n.dir.String(), "page", page+1)
	n.prefs.push(settings.ViewerPreferences{Direction: settings.Ptr(n.dir)})
	n.notifyPreferences()
	return n.View()
}

// relocate rebuilds the spreads and shows the one containing page
func (n *Navigator) relocate(page int) {
	prevTotal := len(n.spreads)
	prevIndex := n.index

	n.spreads = spread.Build(n.pageCount, n.mode, n.dir)
	n.index = max(0, spread.IndexForPage(n.spreads, page))

	if n.index != prevIndex || len(n.spreads) != prevTotal {
		n.notifySpread()
	}
	n.requestImages()
}

// moveTo clamps target into range and applies it
func (n *Navigator) moveTo(target int) View {
	target = n.clamp(target)
	if target != n.index {
		n.index = target
		n.notifySpread()
		n.requestImages()
	}
	return n.View()
}

func (n *Navigator) clamp(i int) int {
	if len(n.spreads) == 0 || i < 0 {
		return 0
	}
	if i > len(n.spreads)-1 {
		return len(n.spreads) - 1
	}
	return i
}

func (n *Navigator) notifySpread() {
	if n.opts.OnSpreadChange != nil {
		n.opts.OnSpreadChange(n.index, len(n.spreads))
	}
}

func (n *Navigator) notifyPreferences() {
	if n.opts.OnPreferencesChange != nil {
		n.opts.OnPreferencesChange(n.mode, n.dir)
	}
}

// requestImages asks the loader for the current spread if it changed
func (n *Navigator) requestImages() {
	if n.opts.Loader == nil || len(n.spreads) == 0 {
		return
	}
	cur := n.Current()
	if n.hasLoaded && cur == n.requested {
		return
	}
	n.requested = cur
	n.hasLoaded = true
	n.opts.Loader.Request(n.index, cur)
}

// Current returns the spread being shown, or spread.Empty
func (n *Navigator) Current() spread.Spread {
	if n.index < 0 || n.index >= len(n.spreads) {
		return spread.Empty
	}
	return n.spreads[n.index]
}

// CurrentPage returns the page read first in the current spread
func (n *Navigator) CurrentPage() int {
	return spread.CurrentPage(n.Current(), n.dir)
}

// View returns the current position
func (n *Navigator) View() View {
	cur := n.Current()
	return View{
		SpreadIndex:  n.index,
		TotalSpreads: len(n.spreads),
		Right:        cur.Right,
		Left:         cur.Left,
	}
}

// Spreads returns a copy of the current sequence
func (n *Navigator) Spreads() []spread.Spread {
	out := make([]spread.Spread, len(n.spreads))
	copy(out, n.spreads)
	return out
}

func (n *Navigator) Mode() spread.ViewMode      { return n.mode }
func (n *Navigator) Direction() spread.Direction { return n.dir }
func (n *Navigator) PageCount() int              { return n.pageCount }

// IsAtFirst reports whether the first spread is shown
func (n *Navigator) IsAtFirst() bool {
	return n.index == 0
}

// IsAtLast reports whether the last spread is shown
func (n *Navigator) IsAtLast() bool {
	return n.index >= len(n.spreads)-1
}

// ProgressFraction is the position in [0, 1] for a progress bar. The bar
// is drawn from the reading-start edge, so the value is the same for both
// directions. A book with at most one spread is complete.
func (n *Navigator) ProgressFraction() float64 {
	if len(n.spreads) <= 1 {
		return 1
	}
	return float64(n.index) / float64(len(n.spreads)-1)
}

// Wait blocks until pending preference writes have finished
func (n *Navigator) Wait() {
	n.prefs.wait()
}

// prefQueue serializes preference writes and merges patches queued while
// a write is in flight, so the last toggle always wins.
type prefQueue struct {
	writer  PreferenceWriter
	logger  *slog.Logger
	mu      sync.Mutex
	pending settings.ViewerPreferences
	running bool
	wg      sync.WaitGroup
}

func (q *prefQueue) push(patch settings.ViewerPreferences) {
	if q.writer == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if patch.Mode != nil {
		q.pending.Mode = patch.Mode
	}
	if patch.Direction != nil {
		q.pending.Direction = patch.Direction
	}
	if !q.running {
		q.running = true
		q.wg.Add(1)
		go q.drain()
	}
}

func (q *prefQueue) drain() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		patch := q.pending
		q.pending = settings.ViewerPreferences{}
		if patch.Mode == nil && patch.Direction == nil {
			q.running = false
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := q.writer.SetViewerPreferences(ctx, patch); err != nil {
			q.logger.Warn("Failed to save viewer preferences", "error", err)
		}
		cancel()
	}
}

func (q *prefQueue) wait() {
	q.wg.Wait()
}
