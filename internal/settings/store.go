// Package settings persists user preferences shared by every viewer session.
//
// The store keeps one JSON record. Each write reads the current record,
// merges in the changed fields and writes the whole record back. Concurrent
// writers inside the process are serialized; across processes the last
// writer wins.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"mekuri/internal/spread"
)

// Viewer window size limits
const (
	DefaultViewerWidth  = 1200
	DefaultViewerHeight = 900
	MinViewerWidth      = 600
	MinViewerHeight     = 400
)

// ViewerPreferences holds optional layout preferences. Nil fields are unset.
type ViewerPreferences struct {
	Mode      *spread.ViewMode
	Direction *spread.Direction
}

// WindowSettings is a persisted window size
type WindowSettings struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Store is the settings collaborator used by the viewer
type Store interface {
	GetViewerPreferences(ctx context.Context) (ViewerPreferences, error)
	SetViewerPreferences(ctx context.Context, patch ViewerPreferences) error
	GetViewerWindow(ctx context.Context) (WindowSettings, error)
	SetViewerWindow(ctx context.Context, ws WindowSettings) error
}

const viewerKey = "viewerSettings"

// record is the on-disk document. Keys it does not model are carried
// through a write unchanged.
type record struct {
	top    map[string]json.RawMessage
	viewer map[string]json.RawMessage
}

func newRecord() *record {
	return &record{
		top:    map[string]json.RawMessage{},
		viewer: map[string]json.RawMessage{},
	}
}

func decodeRecord(data []byte) (*record, error) {
	rec := newRecord()
	if err := json.Unmarshal(data, &rec.top); err != nil {
		return nil, err
	}
	if rec.top == nil {
		rec.top = map[string]json.RawMessage{}
	}
	if raw, ok := rec.top[viewerKey]; ok {
		if err := json.Unmarshal(raw, &rec.viewer); err != nil {
			return nil, err
		}
	}
	if rec.viewer == nil {
		rec.viewer = map[string]json.RawMessage{}
	}
	return rec, nil
}

func (r *record) intField(key string, def int) int {
	var v int
	if raw, ok := r.viewer[key]; ok && json.Unmarshal(raw, &v) == nil {
		return v
	}
	return def
}

func (r *record) stringField(key string) string {
	var v string
	if raw, ok := r.viewer[key]; ok && json.Unmarshal(raw, &v) == nil {
		return v
	}
	return ""
}

func (r *record) set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.viewer[key] = raw
	return nil
}

func (r *record) encode() ([]byte, error) {
	// A fresh record starts from the default window size
	if _, ok := r.viewer["width"]; !ok {
		r.viewer["width"] = json.RawMessage(strconv.Itoa(DefaultViewerWidth))
	}
	if _, ok := r.viewer["height"]; !ok {
		r.viewer["height"] = json.RawMessage(strconv.Itoa(DefaultViewerHeight))
	}
	viewer, err := json.Marshal(r.viewer)
	if err != nil {
		return nil, err
	}
	r.top[viewerKey] = viewer
	return json.MarshalIndent(r.top, "", "  ")
}

// ErrInvalidWindowSize is returned for window sizes below the minimum
var ErrInvalidWindowSize = errors.New("window size below minimum")

// FileStore is a Store backed by a JSON file
type FileStore struct {
	path     string
	mu       sync.Mutex
	attempts uint
	delay    time.Duration
}

// DefaultPath returns ~/.mekuri/settings.json, or settings.json in the
// working directory when the home directory is unknown.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "settings.json"
	}
	return filepath.Join(homeDir, ".mekuri", "settings.json")
}

// NewFileStore creates a store at path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:     path,
		attempts: 3,
		delay:    50 * time.Millisecond,
	}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) read() (*record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return newRecord(), nil
	}
	if err != nil {
		return newRecord(), fmt.Errorf("reading settings %s: %w", s.path, err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return newRecord(), fmt.Errorf("parsing settings %s: %w", s.path, err)
	}
	return rec, nil
}

func (s *FileStore) write(rec *record) error {
	data, err := rec.encode()
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.json")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}

// update performs one read-modify-write cycle, retrying transient failures
func (s *FileStore) update(ctx context.Context, merge func(*record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return retry.Do(
		func() error {
			rec, err := s.read()
			if err != nil {
				var syntaxErr *json.SyntaxError
				var typeErr *json.UnmarshalTypeError
				if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
					return err
				}
				// A corrupt record is replaced rather than retried forever
				rec = newRecord()
			}
			if err := merge(rec); err != nil {
				return retry.Unrecoverable(fmt.Errorf("merging settings: %w", err))
			}
			return s.write(rec)
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
	)
}

// GetViewerPreferences returns the stored mode and direction, if any.
// Unrecognized stored values are reported as unset.
func (s *FileStore) GetViewerPreferences(ctx context.Context) (ViewerPreferences, error) {
	s.mu.Lock()
	rec, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return ViewerPreferences{}, err
	}

	var prefs ViewerPreferences
	if m, err := spread.ParseViewMode(rec.stringField("viewMode")); err == nil {
		prefs.Mode = &m
	}
	if d, err := spread.ParseDirection(rec.stringField("readingDirection")); err == nil {
		prefs.Direction = &d
	}
	return prefs, nil
}

// SetViewerPreferences merges the non-nil fields of patch into the record
func (s *FileStore) SetViewerPreferences(ctx context.Context, patch ViewerPreferences) error {
	if patch.Mode == nil && patch.Direction == nil {
		return nil
	}
	return s.update(ctx, func(rec *record) error {
		if patch.Mode != nil {
			if err := rec.set("viewMode", patch.Mode.String()); err != nil {
				return err
			}
		}
		if patch.Direction != nil {
			return rec.set("readingDirection", patch.Direction.String())
		}
		return nil
	})
}

// GetViewerWindow returns the stored viewer window size, falling back to
// the defaults when the stored size is too small.
func (s *FileStore) GetViewerWindow(ctx context.Context) (WindowSettings, error) {
	s.mu.Lock()
	rec, err := s.read()
	s.mu.Unlock()

	ws := WindowSettings{
		Width:  rec.intField("width", DefaultViewerWidth),
		Height: rec.intField("height", DefaultViewerHeight),
	}
	if ws.Width < MinViewerWidth || ws.Height < MinViewerHeight {
		ws = WindowSettings{Width: DefaultViewerWidth, Height: DefaultViewerHeight}
	}
	return ws, err
}

// SetViewerWindow stores the viewer window size
func (s *FileStore) SetViewerWindow(ctx context.Context, ws WindowSettings) error {
	if ws.Width < MinViewerWidth || ws.Height < MinViewerHeight {
		return fmt.Errorf("%w: %dx%d", ErrInvalidWindowSize, ws.Width, ws.Height)
	}
	return s.update(ctx, func(rec *record) error {
		if err := rec.set("width", ws.Width); err != nil {
			return err
		}
		return rec.set("height", ws.Height)
	})
}

// Ptr returns a pointer to v, for building preference patches
func Ptr[T any](v T) *T {
	return &v
}
