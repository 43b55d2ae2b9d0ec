package main

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mekuri/internal/settings"
	"mekuri/internal/spread"
)

type zipEntry struct {
	name string
	data []byte
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 3))))
	return buf.Bytes()
}

func zipBytes(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// comicEntries returns p1.png .. pN.png
func comicEntries(t *testing.T, n int) []zipEntry {
	t.Helper()
	data := testPNG(t)
	entries := make([]zipEntry, n)
	for i := range entries {
		entries[i] = zipEntry{name: fmt.Sprintf("p%d.png", i+1), data: data}
	}
	return entries
}

func writeComic(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, zipBytes(t, comicEntries(t, pages)...), 0o644))
	return path
}

type testGame struct {
	*Game
	store  *settings.FileStore
	titles []string
}

func newTestGame(t *testing.T, mode spread.ViewMode, dir spread.Direction) *testGame {
	t.Helper()
	store := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json"))

	g, err := NewGame(context.Background(), ConfigLoadResult{Config: defaultConfig(), Status: "Default"}, GameOptions{
		Store:     store,
		Mode:      mode,
		Direction: dir,
	})
	require.NoError(t, err)
	t.Cleanup(g.Close)

	tg := &testGame{Game: g, store: store}
	g.setTitle = func(title string) { tg.titles = append(tg.titles, title) }
	return tg
}

func (tg *testGame) lastTitle() string {
	if len(tg.titles) == 0 {
		return ""
	}
	return tg.titles[len(tg.titles)-1]
}

func TestGameOpenAndNavigate(t *testing.T) {
	g := newTestGame(t, spread.ModeSpread, spread.RTL)
	require.NoError(t, g.Open(writeComic(t, t.TempDir(), "book.cbz", 5)))

	assert.Equal(t, "book.cbz [1/3] - mekuri", g.lastTitle())
	assert.Equal(t, "1 / 5", g.GetCurrentPageNumber())
	assert.Equal(t, 5, g.GetTotalPagesCount())

	g.NavigateNext()
	assert.Equal(t, "2-3 / 5", g.GetCurrentPageNumber())
	assert.Equal(t, "book.cbz [2/3] - mekuri", g.lastTitle())

	g.JumpToLast()
	assert.Equal(t, "4-5 / 5", g.GetCurrentPageNumber())
	assert.Equal(t, 1.0, g.GetProgress())

	g.NavigateNext()
	assert.Equal(t, "book.cbz [3/3] - mekuri", g.lastTitle())

	g.JumpToFirst()
	assert.Equal(t, "1 / 5", g.GetCurrentPageNumber())
}

func TestGameAppliesLoadedSpread(t *testing.T) {
	g := newTestGame(t, spread.ModeSpread, spread.RTL)
	require.NoError(t, g.Open(writeComic(t, t.TempDir(), "book.cbz", 5)))

	require.Eventually(t, g.pollLoader, time.Second, 5*time.Millisecond)
	assert.NotNil(t, g.rightImage)
	assert.Nil(t, g.leftImage)
	assert.False(t, g.pollLoader(), "a result is applied once")

	g.NavigateNext()
	require.Eventually(t, g.pollLoader, time.Second, 5*time.Millisecond)
	assert.NotNil(t, g.rightImage)
	assert.NotNil(t, g.leftImage)
}

func TestGameOpenEmptyArchive(t *testing.T) {
	g := newTestGame(t, spread.ModeSpread, spread.RTL)
	path := filepath.Join(t.TempDir(), "empty.cbz")
	require.NoError(t, os.WriteFile(path, zipBytes(t, zipEntry{name: "readme.txt", data: []byte("hi")}), 0o644))

	require.NoError(t, g.Open(path))

	assert.Equal(t, "empty.cbz - mekuri", g.lastTitle())
	assert.Equal(t, "No images found", g.GetOverlayMessage())
	assert.Equal(t, "0 / 0", g.GetCurrentPageNumber())

	// Navigation on an empty document is a no-op
	g.NavigateNext()
	g.EnterPageInputMode()
	assert.False(t, g.IsInPageInputMode())
}

func TestGameOpenMissingFile(t *testing.T) {
	g := newTestGame(t, spread.ModeSpread, spread.RTL)
	assert.Error(t, g.Open(filepath.Join(t.TempDir(), "missing.cbz")))
	assert.Equal(t, "", g.rootPath)
}

func TestGameTogglePersistsPreferences(t *testing.T) {
	g := newTestGame(t, spread.ModeSpread, spread.RTL)
	require.NoError(t, g.Open(writeComic(t, t.TempDir(), "book.cbz", 5)))

	g.NavigateNext()
	g.ToggleViewMode()
	assert.Equal(t, spread.ModeSingle, g.GetViewMode())
	assert.Equal(t, "Single page, right to left", g.GetOverlayMessage())
	assert.Equal(t, "2 / 5", g.GetCurrentPageNumber())

	g.ToggleReadingDirection()
	assert.Equal(t, spread.LTR, g.GetReadingDirection())
	assert.Equal(t, "Single page, left to right", g.GetOverlayMessage())

	g.nav.Wait()
	prefs, err := g.store.GetViewerPreferences(context.Background())
	require.NoError(t, err)
	require.NotNil(t, prefs.Mode)
	require.NotNil(t, prefs.Direction)
	assert.Equal(t, spread.ModeSingle, *prefs.Mode)
	assert.Equal(t, spread.LTR, *prefs.Direction)
}

func TestGamePageInput(t *testing.T) {
	g := newTestGame(t, spread.ModeSpread, spread.RTL)
	require.NoError(t, g.Open(writeComic(t, t.TempDir(), "book.cbz", 5)))

	g.EnterPageInputMode()
	require.True(t, g.IsInPageInputMode())
	g.UpdatePageInputBuffer("4")
	g.ProcessPageInput()
	g.ExitPageInputMode()
	assert.Equal(t, "4-5 / 5", g.GetCurrentPageNumber())
	assert.False(t, g.IsInPageInputMode())

	g.EnterPageInputMode()
	g.UpdatePageInputBuffer("9")
	g.ProcessPageInput()
	assert.Equal(t, "Invalid page: 9 (1-5)", g.GetOverlayMessage())
	assert.Equal(t, "4-5 / 5", g.GetCurrentPageNumber())

	g.UpdatePageInputBuffer("1234567")
	assert.Equal(t, "9", g.GetPageInputBuffer())
}

func TestGameNestedArchiveList(t *testing.T) {
	g := newTestGame(t, spread.ModeSpread, spread.RTL)
	path := filepath.Join(t.TempDir(), "set.zip")
	require.NoError(t, os.WriteFile(path, zipBytes(t,
		zipEntry{name: "vol1.cbz", data: zipBytes(t, comicEntries(t, 3)...)},
		zipEntry{name: "vol2.cbz", data: zipBytes(t, comicEntries(t, 4)...)},
	), 0o644))

	require.NoError(t, g.Open(path))
	require.True(t, g.IsShowingList())
	assert.Equal(t, []string{"vol1.cbz", "vol2.cbz"}, g.GetListEntries())
	assert.False(t, g.CanReturnToList())

	g.MoveListCursor(5)
	assert.Equal(t, 1, g.GetListCursor())
	g.MoveListCursor(-9)
	assert.Equal(t, 0, g.GetListCursor())
	g.MoveListCursor(1)

	g.OpenListSelection()
	assert.False(t, g.IsShowingList())
	assert.Equal(t, 4, g.GetTotalPagesCount())
	assert.Equal(t, "vol2.cbz [1/3] - mekuri", g.lastTitle())
	assert.True(t, g.CanReturnToList())

	g.ReturnToList()
	assert.True(t, g.IsShowingList())
	assert.Equal(t, 1, g.GetListCursor())
	assert.Equal(t, path, g.rootPath)
}

func TestGameCycleSortKeepsPage(t *testing.T) {
	g := newTestGame(t, spread.ModeSingle, spread.RTL)
	require.NoError(t, g.Open(writeComic(t, t.TempDir(), "book.cbz", 11)))

	g.nav.JumpToPage(9)
	require.Equal(t, "p10.png", g.pageName(g.nav.CurrentPage()))

	g.CycleSortMethod()

	assert.Equal(t, "Sort: Simple", g.GetOverlayMessage())
	// Lexical order is p1, p10, p11, p2, ...
	assert.Equal(t, 1, g.nav.CurrentPage())
	assert.Equal(t, "p10.png", g.pageName(g.nav.CurrentPage()))
}

func TestGameOpenSiblings(t *testing.T) {
	g := newTestGame(t, spread.ModeSpread, spread.RTL)
	dir := t.TempDir()
	a := writeComic(t, dir, "a.cbz", 2)
	b := writeComic(t, dir, "b.cbz", 3)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	require.NoError(t, g.Open(a))

	g.OpenNextFile()
	assert.Equal(t, b, g.book.Path())
	assert.Equal(t, "b.cbz [1/2] - mekuri", g.lastTitle())

	g.OpenNextFile()
	assert.Equal(t, "Last file", g.GetOverlayMessage())
	assert.Equal(t, b, g.book.Path())

	g.OpenPreviousFile()
	assert.Equal(t, a, g.book.Path())

	g.OpenPreviousFile()
	assert.Equal(t, "First file", g.GetOverlayMessage())
}

func TestGameHandleClick(t *testing.T) {
	g := newTestGame(t, spread.ModeSpread, spread.RTL)
	require.NoError(t, g.Open(writeComic(t, t.TempDir(), "book.cbz", 5)))
	g.Layout(1000, 800)

	// Left half moves forward in right-to-left reading
	g.handleClickAt(100, 400)
	assert.Equal(t, 1, g.nav.View().SpreadIndex)

	g.handleClickAt(900, 400)
	assert.Equal(t, 0, g.nav.View().SpreadIndex)

	// The left end of the progress bar is the end of an RTL book
	g.handleClickAt(0, 790)
	assert.Equal(t, 2, g.nav.View().SpreadIndex)

	g.handleClickAt(999, 790)
	assert.Equal(t, 0, g.nav.View().SpreadIndex)
}
