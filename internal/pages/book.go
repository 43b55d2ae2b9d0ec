// Package pages resolves page indices of an opened document to decoded
// images, with an LRU cache and background preloading.
package pages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"mekuri/internal/archive"
	"mekuri/internal/log"
)

// ErrOutOfRange is returned for page indices outside the document
var ErrOutOfRange = errors.New("page out of range")

const (
	DefaultCacheSize    = 16
	DefaultPreloadCount = 4
)

// Options configures how a Book is opened
type Options struct {
	Archive        archive.Options
	CacheSize      int
	PreloadEnabled bool
	PreloadCount   int
	Logger         *slog.Logger
}

// source reads the encoded image of one page
type source interface {
	read(ctx context.Context, page int) ([]byte, error)
	close() error
}

type archiveSource struct {
	r     archive.Reader
	names []string
}

func (s *archiveSource) read(_ context.Context, page int) ([]byte, error) {
	return s.r.ReadFile(s.names[page])
}

func (s *archiveSource) close() error { return s.r.Close() }

type pdfSource struct {
	pdf *archive.PDF
}

func (s *pdfSource) read(ctx context.Context, page int) ([]byte, error) {
	return s.pdf.PageData(ctx, page)
}

func (s *pdfSource) close() error { return nil }

// Book is an opened document
type Book struct {
	path   string
	kind   archive.Kind
	names  []string
	nested []string
	src    source

	cache   *lru.Cache[string, image.Image]
	group   singleflight.Group
	preload *PreloadManager
	logger  *slog.Logger
}

// Open opens the archive or PDF at path. An archive holding only other
// archives opens with no pages; Nested lists them.
func Open(path string, opts Options) (*Book, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithComponent("pages")
	}

	b := &Book{path: path, kind: archive.DetectKind(path), logger: logger}

	switch b.kind {
	case archive.KindArchive:
		r, err := archive.Open(path)
		if err != nil {
			return nil, err
		}
		contents := archive.AnalyzeReader(r, opts.Archive)
		switch contents.Kind {
		case archive.ContentImages:
			b.names = contents.Names
		case archive.ContentNestedArchives:
			b.nested = contents.Names
		}
		b.src = &archiveSource{r: r, names: b.names}
		logger.Debug("Opened archive", "path", path, "contents", contents.Describe())
	case archive.KindPDF:
		pdf, err := archive.OpenPDF(path)
		if err != nil {
			return nil, err
		}
		b.names = make([]string, pdf.PageCount())
		for i := range b.names {
			b.names[i] = "#" + strconv.Itoa(i+1)
		}
		b.src = &pdfSource{pdf: pdf}
		logger.Debug("Opened PDF", "path", path, "pages", pdf.PageCount(), "rendered", pdf.CanRender())
	default:
		return nil, fmt.Errorf("%s: %w", path, archive.ErrUnsupported)
	}

	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, image.Image](cacheSize)
	if err != nil {
		b.src.close()
		return nil, fmt.Errorf("creating page cache: %w", err)
	}
	b.cache = cache

	preloadCount := opts.PreloadCount
	if preloadCount <= 0 {
		preloadCount = DefaultPreloadCount
	}
	b.preload = NewPreloadManager(b, preloadCount)
	b.preload.SetEnabled(opts.PreloadEnabled)

	return b, nil
}

func (b *Book) Path() string       { return b.path }
func (b *Book) Kind() archive.Kind { return b.kind }
func (b *Book) Count() int         { return len(b.names) }

// Names returns the entry names in page order. PDF pages are named #1, #2...
func (b *Book) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Nested lists the archives inside an archive that holds no images
func (b *Book) Nested() []string {
	return b.nested
}

func (b *Book) cacheKey(page int) string {
	return b.path + ":" + b.names[page]
}

// Resolve returns the decoded image of page (0-based). Concurrent calls for
// the same page share one decode.
func (b *Book) Resolve(ctx context.Context, page int) (image.Image, error) {
	if page < 0 || page >= len(b.names) {
		return nil, fmt.Errorf("page %d: %w", page, ErrOutOfRange)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := b.cacheKey(page)
	if img, ok := b.cache.Get(key); ok {
		b.logger.Debug("Cache HIT", "key", key, "cached", b.cache.Len())
		return img, nil
	}

	v, err, _ := b.group.Do(key, func() (any, error) {
		if img, ok := b.cache.Get(key); ok {
			return img, nil
		}
		img, err := b.load(ctx, page)
		if err != nil {
			return nil, err
		}
		b.cache.Add(key, img)
		b.logger.Debug("Cache MISS", "key", key, "cached", b.cache.Len())
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

func (b *Book) load(ctx context.Context, page int) (image.Image, error) {
	data, err := b.src.read(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", b.names[page], err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if b.kind == archive.KindArchive {
			return nil, fmt.Errorf("decoding %s (%s): %w", b.names[page], archive.MimeType(b.names[page]), err)
		}
		return nil, fmt.Errorf("decoding %s: %w", b.names[page], err)
	}
	return img, nil
}

// Cached reports whether page is in the cache
func (b *Book) Cached(page int) bool {
	if page < 0 || page >= len(b.names) {
		return false
	}
	return b.cache.Contains(b.cacheKey(page))
}

// Preload schedules pages around page for background loading
func (b *Book) Preload(page int, dir NavigationDirection) {
	b.preload.StartPreload(page, dir)
}

// PreloadStats returns the preloader counters
func (b *Book) PreloadStats() PreloadStats {
	return b.preload.GetStats()
}

// Close stops preloading and releases the document
func (b *Book) Close() error {
	b.preload.Stop()
	b.cache.Purge()
	return b.src.close()
}
