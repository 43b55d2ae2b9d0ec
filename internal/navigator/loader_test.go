package navigator

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mekuri/internal/spread"
)

// fakeResolver returns a 1xN image for page N. Pages with a gate block
// until the gate is closed; pages in failing return an error.
type fakeResolver struct {
	mu      sync.Mutex
	gates   map[int]chan struct{}
	failing map[int]bool
	calls   []int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{gates: map[int]chan struct{}{}, failing: map[int]bool{}}
}

func (f *fakeResolver) gate(page int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[page] = ch
	return ch
}

func (f *fakeResolver) Resolve(ctx context.Context, page int) (image.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	gate := f.gates[page]
	fail := f.failing[page]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("broken entry")
	}
	return image.NewGray(image.Rect(0, 0, 1, page+1)), nil
}

func (f *fakeResolver) resolved() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func heightOf(img image.Image) int {
	if img == nil {
		return 0
	}
	return img.Bounds().Dy()
}

func TestLoaderLoadsBothSlots(t *testing.T) {
	l := NewLoader(newFakeResolver(), nil)
	defer l.Close()

	gen := l.Request(1, spread.Spread{Right: 1, Left: 2})
	l.Wait()

	res, ok := l.Poll()
	require.True(t, ok)
	assert.Equal(t, gen, res.Generation)
	assert.Equal(t, 1, res.SpreadIndex)
	assert.NoError(t, res.Err)
	assert.Equal(t, 2, heightOf(res.Right))
	assert.Equal(t, 3, heightOf(res.Left))

	_, ok = l.Poll()
	assert.False(t, ok, "a result is delivered once")
}

func TestLoaderSkipsEmptySlot(t *testing.T) {
	r := newFakeResolver()
	l := NewLoader(r, nil)
	defer l.Close()

	l.Request(0, spread.Spread{Right: 0, Left: spread.None})
	l.Wait()

	res, ok := l.Poll()
	require.True(t, ok)
	assert.NotNil(t, res.Right)
	assert.Nil(t, res.Left)
	assert.Equal(t, []int{0}, r.resolved())
}

func TestLoaderDiscardsStaleResults(t *testing.T) {
	r := newFakeResolver()
	slow := r.gate(0)
	l := NewLoader(r, nil)
	defer l.Close()

	l.Request(0, spread.Spread{Right: 0, Left: spread.None})
	newest := l.Request(1, spread.Spread{Right: 1, Left: 2})

	// Let the newer request finish first, then release the older one
	require.Eventually(t, func() bool {
		select {
		case <-l.Ready():
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	close(slow)
	l.Wait()

	res, ok := l.Poll()
	require.True(t, ok)
	assert.Equal(t, newest, res.Generation)
	assert.Equal(t, 1, res.SpreadIndex)
}

func TestLoaderDropsResultSupersededBeforePoll(t *testing.T) {
	r := newFakeResolver()
	l := NewLoader(r, nil)
	defer l.Close()

	l.Request(0, spread.Spread{Right: 0, Left: spread.None})
	l.Wait()

	gate := r.gate(3)
	l.Request(2, spread.Spread{Right: 3, Left: 4})

	_, ok := l.Poll()
	assert.False(t, ok, "the finished result is no longer current")

	close(gate)
	l.Wait()
	res, ok := l.Poll()
	require.True(t, ok)
	assert.Equal(t, 2, res.SpreadIndex)
}

func TestLoaderReportsErrors(t *testing.T) {
	r := newFakeResolver()
	r.failing[2] = true
	l := NewLoader(r, nil)
	defer l.Close()

	l.Request(1, spread.Spread{Right: 1, Left: 2})
	l.Wait()

	res, ok := l.Poll()
	require.True(t, ok)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "page 3")
	assert.Nil(t, res.Right)
	assert.Nil(t, res.Left)
}

func TestLoaderClose(t *testing.T) {
	r := newFakeResolver()
	gate := r.gate(0)
	l := NewLoader(r, nil)

	l.Request(0, spread.Spread{Right: 0, Left: spread.None})
	l.Close()
	l.Wait()
	close(gate)

	_, ok := l.Poll()
	assert.False(t, ok)

	l.Request(1, spread.Spread{Right: 1, Left: spread.None})
	l.Wait()
	_, ok = l.Poll()
	assert.False(t, ok, "requests after Close do nothing")
	assert.Equal(t, []int{0}, r.resolved())
}

func TestNavigatorRequestsOnlyChangedSpreads(t *testing.T) {
	r := newFakeResolver()
	l := NewLoader(r, nil)
	defer l.Close()

	n := New(5, spread.ModeSpread, spread.RTL, Options{Loader: l})
	n.Prev() // no-op
	n.Next()
	n.Next()
	n.Next() // no-op at {3,4}
	l.Wait()

	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, r.resolved())

	res, ok := l.Poll()
	require.True(t, ok)
	assert.Equal(t, 2, res.SpreadIndex)
	assert.Equal(t, spread.Spread{Right: 3, Left: 4}, res.Spread)
}

func TestNavigatorToggleReloadsNewSpread(t *testing.T) {
	r := newFakeResolver()
	l := NewLoader(r, nil)
	defer l.Close()

	n := New(4, spread.ModeSpread, spread.RTL, Options{Loader: l})
	n.Next() // {1,2}
	n.ToggleReadingDirection()
	l.Wait()

	res, ok := l.Poll()
	require.True(t, ok)
	assert.Equal(t, spread.Spread{Right: 2, Left: 1}, res.Spread)
	assert.Equal(t, 3, heightOf(res.Right))
	assert.Equal(t, 2, heightOf(res.Left))
}

func TestLoaderSetResolverDropsOldDocument(t *testing.T) {
	old := newFakeResolver()
	gate := old.gate(0)
	l := NewLoader(old, nil)
	defer l.Close()

	l.Request(0, spread.Spread{Right: 0, Left: spread.None})

	next := newFakeResolver()
	l.SetResolver(next)
	close(gate)
	l.Wait()

	_, ok := l.Poll()
	assert.False(t, ok, "result for the previous document is stale")

	l.Request(0, spread.Spread{Right: 0, Left: spread.None})
	l.Wait()
	_, ok = l.Poll()
	assert.True(t, ok)
	assert.Equal(t, []int{0}, next.resolved())
}

func TestLoaderWithoutResolver(t *testing.T) {
	l := NewLoader(nil, nil)
	defer l.Close()

	l.Request(0, spread.Spread{Right: 0, Left: spread.None})
	l.Wait()
	_, ok := l.Poll()
	assert.False(t, ok)
}
