package pages

import (
	"context"
	"sync"
)

// NavigationDirection represents the direction of navigation
type NavigationDirection int

const (
	NavigationForward NavigationDirection = iota
	NavigationBackward
	NavigationJump
)

// PreloadRequest represents a request to preload pages around Index
type PreloadRequest struct {
	Index     int
	Direction NavigationDirection
}

// PreloadStats provides statistics about preloading
type PreloadStats struct {
	LoadedCount   int
	FailedCount   int
	LastDirection NavigationDirection
}

// PreloadManager loads pages ahead of the reader on a worker goroutine.
// A new request replaces any that has not started yet.
type PreloadManager struct {
	requestChan chan PreloadRequest
	ctx         context.Context
	cancel      context.CancelFunc
	book        *Book
	maxPreload  int

	mu      sync.RWMutex
	stats   PreloadStats
	enabled bool
	done    chan struct{}
}

// NewPreloadManager creates a PreloadManager and starts its worker
func NewPreloadManager(book *Book, maxPreload int) *PreloadManager {
	ctx, cancel := context.WithCancel(context.Background())
	pm := &PreloadManager{
		requestChan: make(chan PreloadRequest, 1),
		ctx:         ctx,
		cancel:      cancel,
		book:        book,
		maxPreload:  maxPreload,
		enabled:     true,
		done:        make(chan struct{}),
	}

	go pm.worker()

	return pm
}

// SetEnabled enables or disables preloading
func (pm *PreloadManager) SetEnabled(enabled bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = enabled
}

// IsEnabled returns whether preloading is enabled
func (pm *PreloadManager) IsEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// GetStats returns current preload statistics
func (pm *PreloadManager) GetStats() PreloadStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.stats
}

// Stop stops the worker and waits for it to exit
func (pm *PreloadManager) Stop() {
	pm.cancel()
	<-pm.done
}

// StartPreload replaces any pending request with one for currentIdx
func (pm *PreloadManager) StartPreload(currentIdx int, direction NavigationDirection) {
	if !pm.IsEnabled() || pm.ctx.Err() != nil {
		return
	}

drain:
	for {
		select {
		case <-pm.requestChan:
		default:
			break drain
		}
	}

	select {
	case pm.requestChan <- PreloadRequest{Index: currentIdx, Direction: direction}:
	default:
		pm.book.logger.Debug("Preload request channel full, skipping preload request")
	}
}

func (pm *PreloadManager) worker() {
	defer close(pm.done)
	for {
		select {
		case <-pm.ctx.Done():
			return
		case req := <-pm.requestChan:
			if pm.IsEnabled() {
				pm.processPreloadRequest(req)
			}
		}
	}
}

func (pm *PreloadManager) processPreloadRequest(req PreloadRequest) {
	pm.mu.Lock()
	pm.stats.LastDirection = req.Direction
	pm.mu.Unlock()

	count := pm.book.Count()
	if count == 0 {
		return
	}

	for _, idx := range calculatePreloadIndices(req.Index, req.Direction, count, pm.maxPreload) {
		// A newer request supersedes this one
		if pm.ctx.Err() != nil || len(pm.requestChan) > 0 {
			return
		}
		pm.preloadPage(idx)
	}
}

// calculatePreloadIndices lists the pages to load after a move to currentIdx
func calculatePreloadIndices(currentIdx int, direction NavigationDirection, count, maxPreload int) []int {
	var indices []int
	add := func(idx int) {
		if idx >= 0 && idx < count {
			indices = append(indices, idx)
		}
	}

	switch direction {
	case NavigationForward:
		for i := 1; i <= maxPreload; i++ {
			add(currentIdx + i)
		}
	case NavigationBackward:
		for i := 1; i <= maxPreload; i++ {
			add(currentIdx - i)
		}
	case NavigationJump:
		half := max(1, maxPreload/2)
		for i := 1; i <= half; i++ {
			add(currentIdx + i)
		}
		for i := 1; i <= half; i++ {
			add(currentIdx - i)
		}
	}

	return indices
}

func (pm *PreloadManager) preloadPage(idx int) {
	if pm.book.Cached(idx) {
		return
	}

	if _, err := pm.book.Resolve(pm.ctx, idx); err != nil {
		if pm.ctx.Err() != nil {
			return
		}
		pm.mu.Lock()
		pm.stats.FailedCount++
		pm.mu.Unlock()
		pm.book.logger.Debug("Preload failed", "page", idx+1, "error", err)
		return
	}

	pm.mu.Lock()
	pm.stats.LoadedCount++
	pm.mu.Unlock()
}
