package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name string
	data []byte
}

func writeZip(t *testing.T, path string, entries ...zipEntry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func entry(name string) zipEntry {
	return zipEntry{name: name, data: []byte("data:" + name)}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"book.zip", KindArchive},
		{"book.CBZ", KindArchive},
		{"book.rar", KindArchive},
		{"book.cbr", KindArchive},
		{"book.7z", KindArchive},
		{"book.cb7", KindArchive},
		{"book.pdf", KindPDF},
		{"book.PDF", KindPDF},
		{"book.tar", KindUnknown},
		{"noext", KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectKind(tt.path), tt.path)
	}
}

func TestIsImageAndMimeType(t *testing.T) {
	assert.True(t, IsImage("photo.jpg"))
	assert.True(t, IsImage("photo.JPEG"))
	assert.True(t, IsImage("image.webp"))
	assert.True(t, IsImage("anim.gif"))
	assert.True(t, IsImage("old.bmp"))
	assert.False(t, IsImage("readme.txt"))
	assert.False(t, IsImage("archive.zip"))
	assert.False(t, IsImage("noext"))

	assert.Equal(t, "image/jpeg", MimeType("photo.jpg"))
	assert.Equal(t, "image/png", MimeType("image.PNG"))
	assert.Equal(t, "image/webp", MimeType("image.webp"))
	assert.Equal(t, "image/gif", MimeType("anim.gif"))
	assert.Equal(t, "image/jpeg", MimeType("unknown.tiff"))
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("test.tar")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestOpenMissingArchives(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"missing.zip", "missing.rar", "missing.cbr", "missing.7z"} {
		_, err := Open(filepath.Join(dir, name))
		require.Error(t, err, name)
		assert.NotErrorIs(t, err, ErrUnsupported, name)
	}
}

func TestZipReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.cbz")
	writeZip(t, path, entry("b.png"), entry("a.jpg"), entry("notes.txt"))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []Entry{
		{Name: "b.png", Size: 10},
		{Name: "a.jpg", Size: 10},
		{Name: "notes.txt", Size: 14},
	}, r.Entries())

	data, err := r.ReadFile("a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "data:a.jpg", string(data))

	_, err = r.ReadFile("missing.png")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestFilter(t *testing.T) {
	f := DefaultFilter()

	assert.True(t, f.Ignored("__MACOSX/._001.jpg"))
	assert.True(t, f.Ignored("vol1/__MACOSX/._001.jpg"))
	assert.True(t, f.Ignored(".DS_Store"))
	assert.True(t, f.Ignored("vol1/.DS_Store"))
	assert.True(t, f.Ignored(`vol1\Thumbs.db`))
	assert.False(t, f.Ignored("vol1/001.jpg"))
	assert.False(t, f.Ignored("MACOSX.jpg"))

	custom, err := NewFilter([]string{"*cover*", "extras/**", " "})
	require.NoError(t, err)
	assert.True(t, custom.Ignored("vol1/front-cover.jpg"))
	assert.True(t, custom.Ignored("extras/a/b.png"))
	assert.False(t, custom.Ignored("vol1/extras/b.png"))

	var none *Filter
	assert.False(t, none.Ignored("__MACOSX/x.jpg"))
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Filter: DefaultFilter()}

	t.Run("images", func(t *testing.T) {
		path := filepath.Join(dir, "images.zip")
		writeZip(t, path,
			entry("page10.jpg"), entry("page2.jpg"), entry("page1.jpg"),
			entry("__MACOSX/._page1.jpg"), entry("inner.zip"), entry("info.txt"))

		c, err := Analyze(path, opts)
		require.NoError(t, err)
		assert.Equal(t, ContentImages, c.Kind)
		assert.Equal(t, []string{"page1.jpg", "page2.jpg", "page10.jpg"}, c.Names)
		assert.Equal(t, "3 images", c.Describe())
	})

	t.Run("nested archives", func(t *testing.T) {
		path := filepath.Join(dir, "nested.zip")
		writeZip(t, path, entry("vol10.cbz"), entry("vol2.rar"), entry("readme.txt"))

		c, err := Analyze(path, opts)
		require.NoError(t, err)
		assert.Equal(t, ContentNestedArchives, c.Kind)
		assert.Equal(t, []string{"vol2.rar", "vol10.cbz"}, c.Names)
	})

	t.Run("empty", func(t *testing.T) {
		path := filepath.Join(dir, "empty.zip")
		writeZip(t, path, entry("readme.txt"), entry("__MACOSX/._a.jpg"))

		c, err := Analyze(path, opts)
		require.NoError(t, err)
		assert.Equal(t, ContentEmpty, c.Kind)
		assert.Empty(t, c.Names)
		assert.Equal(t, "empty", c.Describe())
	})

	t.Run("entry order", func(t *testing.T) {
		path := filepath.Join(dir, "order.zip")
		writeZip(t, path, entry("b.png"), entry("a.png"))

		c, err := Analyze(path, Options{Sort: &EntryOrderSortStrategy{}})
		require.NoError(t, err)
		assert.Equal(t, []string{"b.png", "a.png"}, c.Names)
	})
}

func TestExtractNested(t *testing.T) {
	dir := t.TempDir()
	inner := filepath.Join(dir, "inner.zip")
	writeZip(t, inner, entry("001.png"))
	innerData, err := os.ReadFile(inner)
	require.NoError(t, err)

	outer := filepath.Join(dir, "outer.zip")
	writeZip(t, outer, zipEntry{name: "sub/vol1.zip", data: innerData}, entry("vol2.txt"))

	e := NewExtractor()
	path, err := e.ExtractNested(outer, "sub/vol1.zip")
	require.NoError(t, err)
	assert.Equal(t, "vol1.zip", filepath.Base(path))

	c, err := Analyze(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"001.png"}, c.Names)

	_, err = e.ExtractNested(outer, "vol2.txt")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = e.ExtractNested(outer, "missing.zip")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	require.NoError(t, e.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenPDFMissing(t *testing.T) {
	_, err := OpenPDF(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
