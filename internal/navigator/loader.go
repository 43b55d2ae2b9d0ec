package navigator

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"mekuri/internal/log"
	"mekuri/internal/spread"
)

// PageResolver turns a page index into a displayable image
type PageResolver interface {
	Resolve(ctx context.Context, page int) (image.Image, error)
}

// SpreadImages is the outcome of loading one spread
type SpreadImages struct {
	Generation  uint64
	SpreadIndex int
	Spread      spread.Spread
	Right       image.Image // nil for an empty slot or on error
	Left        image.Image
	Err         error // set when either slot failed to load
}

// Loader fetches the images of the current spread. Each request supersedes
// the previous one; results of superseded requests are dropped.
type Loader struct {
	resolver PageResolver
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	gen    atomic.Uint64
	wg     sync.WaitGroup

	mu     sync.Mutex
	latest *SpreadImages
	ready  chan struct{}
}

// SetResolver switches to another document. Loads already started for the
// previous one are discarded.
func (l *Loader) SetResolver(resolver PageResolver) {
	l.mu.Lock()
	l.resolver = resolver
	l.latest = nil
	l.mu.Unlock()
	l.gen.Add(1)
}

// NewLoader creates a Loader for resolver, which may be nil until a
// document is opened
func NewLoader(resolver PageResolver, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = log.WithComponent("loader")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		resolver: resolver,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		ready:    make(chan struct{}, 1),
	}
}

// Request starts loading s, shown at index, and returns the request's
// generation. Empty slots are skipped; both slots load in parallel.
func (l *Loader) Request(index int, s spread.Spread) uint64 {
	gen := l.gen.Add(1)
	if l.ctx.Err() != nil {
		return gen
	}

	l.mu.Lock()
	resolver := l.resolver
	l.mu.Unlock()
	if resolver == nil {
		return gen
	}

	l.wg.Add(1)
	go l.load(resolver, gen, index, s)
	return gen
}

func (l *Loader) load(resolver PageResolver, gen uint64, index int, s spread.Spread) {
	defer l.wg.Done()

	res := SpreadImages{Generation: gen, SpreadIndex: index, Spread: s}

	g, ctx := errgroup.WithContext(l.ctx)
	if s.Right != spread.None {
		g.Go(func() error {
			img, err := resolver.Resolve(ctx, s.Right)
			if err != nil {
				return fmt.Errorf("page %d: %w", s.Right+1, err)
			}
			res.Right = img
			return nil
		})
	}
	if s.Left != spread.None {
		g.Go(func() error {
			img, err := resolver.Resolve(ctx, s.Left)
			if err != nil {
				return fmt.Errorf("page %d: %w", s.Left+1, err)
			}
			res.Left = img
			return nil
		})
	}
	res.Err = g.Wait()
	if res.Err != nil {
		res.Right, res.Left = nil, nil
	}

	l.publish(res)
}

// publish stores res if it is still the newest request
func (l *Loader) publish(res SpreadImages) {
	l.mu.Lock()
	if res.Generation != l.gen.Load() {
		l.mu.Unlock()
		l.logger.Debug("Discarding stale spread images",
			"spread", res.SpreadIndex+1, "generation", res.Generation)
		return
	}
	l.latest = &res
	l.mu.Unlock()

	if res.Err != nil {
		l.logger.Warn("Failed to load spread", "spread", res.SpreadIndex+1, "error", res.Err)
	}

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

// Poll returns the result of the newest request once it has arrived.
// Each result is returned at most once.
func (l *Loader) Poll() (SpreadImages, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := l.latest
	l.latest = nil
	if res == nil || res.Generation != l.gen.Load() {
		return SpreadImages{}, false
	}
	return *res, true
}

// Ready is signaled when a result may be available to Poll
func (l *Loader) Ready() <-chan struct{} {
	return l.ready
}

// Wait blocks until all started loads have finished
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Close ends the session. Pending results are dropped and later requests
// do nothing.
func (l *Loader) Close() {
	l.cancel()
	l.gen.Add(1)

	l.mu.Lock()
	l.latest = nil
	l.mu.Unlock()
}
