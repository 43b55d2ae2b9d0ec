package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode"
)

// Entry is a regular file inside an archive
type Entry struct {
	Name string
	Size int64
}

// Reader gives access to the entries of an opened archive
type Reader interface {
	// Entries lists regular files in archive order
	Entries() []Entry
	// ReadFile returns the content of the named entry
	ReadFile(name string) ([]byte, error)
	Close() error
}

// Open opens the archive at path with the backend matching its extension
func Open(path string) (Reader, error) {
	switch detectFormat(path) {
	case formatZip:
		return openZip(path)
	case formatRar:
		return openRar(path)
	case formatSevenZip:
		return openSevenZip(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
}

type zipReader struct {
	rc      *zip.ReadCloser
	entries []Entry
	files   map[string]*zip.File
}

func openZip(path string) (*zipReader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening zip %s: %w", path, err)
	}

	r := &zipReader{rc: rc, files: make(map[string]*zip.File, len(rc.File))}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		r.entries = append(r.entries, Entry{Name: f.Name, Size: int64(f.UncompressedSize64)})
		r.files[f.Name] = f
	}
	return r, nil
}

func (r *zipReader) Entries() []Entry { return r.entries }

func (r *zipReader) ReadFile(name string) ([]byte, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *zipReader) Close() error { return r.rc.Close() }

// rarReader streams the archive on every read; rardecode has no random access.
type rarReader struct {
	path    string
	entries []Entry
}

func openRar(path string) (*rarReader, error) {
	r := &rarReader{path: path}
	err := r.walk(func(h *rardecode.FileHeader, _ io.Reader) (bool, error) {
		if !h.IsDir {
			r.entries = append(r.entries, Entry{Name: h.Name, Size: h.UnPackedSize})
		}
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("opening rar %s: %w", path, err)
	}
	return r, nil
}

// walk calls fn for each header until fn returns true or the archive ends
func (r *rarReader) walk(fn func(h *rardecode.FileHeader, body io.Reader) (bool, error)) error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	rr, err := rardecode.NewReader(f, "")
	if err != nil {
		return err
	}
	for {
		header, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		done, err := fn(header, rr)
		if err != nil || done {
			return err
		}
	}
}

func (r *rarReader) Entries() []Entry { return r.entries }

func (r *rarReader) ReadFile(name string) ([]byte, error) {
	var data []byte
	found := false
	err := r.walk(func(h *rardecode.FileHeader, body io.Reader) (bool, error) {
		if h.IsDir || h.Name != name {
			return false, nil
		}
		found = true
		var err error
		data, err = io.ReadAll(body)
		return true, err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	return data, nil
}

func (r *rarReader) Close() error { return nil }

type sevenZipReader struct {
	mu      sync.Mutex
	rc      *sevenzip.ReadCloser
	entries []Entry
	files   map[string]*sevenzip.File
}

func openSevenZip(path string) (*sevenZipReader, error) {
	rc, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening 7z %s: %w", path, err)
	}

	r := &sevenZipReader{rc: rc, files: make(map[string]*sevenzip.File, len(rc.File))}
	for _, f := range rc.File {
		info := f.FileInfo()
		if info.IsDir() {
			continue
		}
		r.entries = append(r.entries, Entry{Name: f.Name, Size: info.Size()})
		r.files[f.Name] = f
	}
	return r, nil
}

func (r *sevenZipReader) Entries() []Entry { return r.entries }

func (r *sevenZipReader) ReadFile(name string) ([]byte, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}

	// Solid blocks share decoder state
	r.mu.Lock()
	defer r.mu.Unlock()

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *sevenZipReader) Close() error { return r.rc.Close() }
