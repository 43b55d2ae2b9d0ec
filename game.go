package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"mekuri/internal/archive"
	"mekuri/internal/navigator"
	"mekuri/internal/pages"
	"mekuri/internal/settings"
	"mekuri/internal/spread"
)

const appName = "mekuri"

// Game is the ebiten game of one viewer window. It owns a single navigator
// and loader for its whole life; opening another document swaps the page
// resolver and resets the navigator.
type Game struct {
	ctx          context.Context
	logger       *slog.Logger
	config       Config
	configStatus ConfigLoadResult
	store        settings.Store
	windowSaver  *settings.Debouncer

	siblings  *archive.SiblingWatcher // nil when fsnotify is unavailable
	extractor *archive.Extractor

	nav    *navigator.Navigator
	loader *navigator.Loader
	book   *pages.Book

	// rootPath is the file opened from the command line or by sibling
	// navigation; documents picked from a nested list do not change it
	rootPath string

	// Nested archive list
	listParent  string
	listEntries []string
	listCursor  int
	showList    bool

	leftImage  *ebiten.Image
	rightImage *ebiten.Image
	lastIndex  int

	// UI state
	fullscreen         bool
	savedWinW          int
	savedWinH          int
	lastWinW           int
	lastWinH           int
	screenW            int
	screenH            int
	showHelp           bool
	showInfo           bool
	pageInputMode      bool
	pageInputBuffer    string
	overlayMessage     string
	overlayMessageTime time.Time
	quit               bool

	keybindingManager   *KeybindingManager
	mousebindingManager *MousebindingManager
	inputHandler        *InputHandler
	renderer            *Renderer

	dirty        bool
	lastSnapshot *RenderStateSnapshot

	setTitle func(string)
}

// GameOptions holds what NewGame needs besides the configuration
type GameOptions struct {
	Store     settings.Store
	Mode      spread.ViewMode
	Direction spread.Direction
	Logger    *slog.Logger
}

// NewGame creates a viewer with no document open
func NewGame(ctx context.Context, cfg ConfigLoadResult, opts GameOptions) (*Game, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &Game{
		ctx:          ctx,
		logger:       logger,
		config:       cfg.Config,
		configStatus: cfg,
		store:        opts.Store,
		windowSaver:  settings.NewDebouncer(settings.DefaultDebounce),
		extractor:    archive.NewExtractor(),
		fullscreen:   cfg.Config.Fullscreen,
		dirty:        true,
		setTitle:     ebiten.SetWindowTitle,
	}

	siblings, err := archive.NewSiblingWatcher(logger.With("component", "siblings"))
	if err != nil {
		logger.Warn("Sibling listings will not be cached", "error", err)
	} else {
		g.siblings = siblings
	}

	g.loader = navigator.NewLoader(nil, logger.With("component", "loader"))
	var prefs navigator.PreferenceWriter
	if opts.Store != nil {
		prefs = opts.Store
	}
	g.nav = navigator.New(0, opts.Mode, opts.Direction, navigator.Options{
		OnSpreadChange:      g.onSpreadChange,
		OnPreferencesChange: g.onPreferencesChange,
		Preferences:         prefs,
		Loader:              g.loader,
		Logger:              logger.With("component", "navigator"),
	})

	g.keybindingManager = NewKeybindingManager(g.config.Keybindings)
	g.mousebindingManager = NewMousebindingManager(g.config.Mousebindings, g.config.MouseSettings)
	g.inputHandler = NewInputHandler(g, g, g.keybindingManager, g.mousebindingManager)

	renderer, err := NewRenderer(g)
	if err != nil {
		g.Close()
		return nil, err
	}
	g.renderer = renderer

	return g, nil
}

// Open opens path as the root document
func (g *Game) Open(path string) error {
	if err := g.openDocument(path, false); err != nil {
		return err
	}
	g.rootPath = path
	return nil
}

// openDocument opens path and resets the session. keepList keeps the
// current nested list so the user can return to it.
func (g *Game) openDocument(path string, keepList bool) error {
	book, err := pages.Open(path, g.pagesOptions())
	if err != nil {
		return err
	}

	// Drop loads of the previous document before closing it
	g.loader.SetResolver(book)
	g.loader.Wait()
	if g.book != nil {
		if err := g.book.Close(); err != nil {
			g.logger.Warn("Failed to close document", "path", g.book.Path(), "error", err)
		}
	}
	g.book = book
	g.leftImage, g.rightImage = nil, nil
	g.lastIndex = 0

	if nested := book.Nested(); len(nested) > 0 {
		g.listParent = path
		g.listEntries = nested
		g.listCursor = 0
		g.showList = true
	} else {
		g.showList = false
		if !keepList {
			g.listParent = ""
			g.listEntries = nil
		}
	}

	g.nav.Reset(book.Count())
	g.logger.Info("Opened document", "path", path, "pages", book.Count(), "nested", len(book.Nested()))

	if book.Count() == 0 && !g.showList {
		g.ShowOverlayMessage("No images found")
	}
	g.updateTitle()
	g.dirty = true
	return nil
}

func (g *Game) pagesOptions() pages.Options {
	return pages.Options{
		Archive:        g.config.archiveOptions(),
		CacheSize:      g.config.CacheSize,
		PreloadEnabled: g.config.PreloadEnabled,
		PreloadCount:   g.config.PreloadCount,
		Logger:         g.logger.With("component", "pages"),
	}
}

// onSpreadChange runs after every navigator transition
func (g *Game) onSpreadChange(index, total int) {
	if g.nav == nil {
		// Called from navigator.New before the field is set
		return
	}
	g.updateTitle()
	g.preloadAround(index)
	g.lastIndex = index
	g.dirty = true
}

func (g *Game) onPreferencesChange(mode spread.ViewMode, dir spread.Direction) {
	g.ShowOverlayMessage(layoutLabel(mode, dir))
}

// preloadAround warms the cache in the direction of travel
func (g *Game) preloadAround(index int) {
	if g.book == nil {
		return
	}
	pagesInView := g.nav.Current().Pages(g.nav.Direction())
	if len(pagesInView) == 0 {
		return
	}

	dir := preloadDirection(g.lastIndex, index)
	page := pagesInView[len(pagesInView)-1]
	if dir == pages.NavigationBackward {
		page = pagesInView[0]
	}
	g.book.Preload(page, dir)
}

// preloadDirection classifies a move between spread indices
func preloadDirection(from, to int) pages.NavigationDirection {
	switch to - from {
	case 1:
		return pages.NavigationForward
	case -1:
		return pages.NavigationBackward
	default:
		return pages.NavigationJump
	}
}

func (g *Game) updateTitle() {
	name := ""
	if g.book != nil {
		name = filepath.Base(g.book.Path())
	}
	v := g.nav.View()
	g.setTitle(windowTitle(name, v.SpreadIndex, v.TotalSpreads))
}

// windowTitle formats "name [i/n] - mekuri" with a 1-based spread index
func windowTitle(name string, index, total int) string {
	switch {
	case name == "":
		return appName
	case total == 0:
		return fmt.Sprintf("%s - %s", name, appName)
	default:
		return fmt.Sprintf("%s [%d/%d] - %s", name, index+1, total, appName)
	}
}

func layoutLabel(mode spread.ViewMode, dir spread.Direction) string {
	m := "Spread view"
	if mode == spread.ModeSingle {
		m = "Single page"
	}
	d := "right to left"
	if dir == spread.LTR {
		d = "left to right"
	}
	return m + ", " + d
}

func (g *Game) Update() error {
	if g.quit || g.ctx.Err() != nil {
		return ebiten.Termination
	}

	g.pollLoader()
	g.trackWindowSize()

	if g.inputHandler.HandleInput() {
		g.dirty = true
	}
	if g.quit {
		return ebiten.Termination
	}

	snapshot := NewRenderStateSnapshot(g, g.screenW, g.screenH)
	if !snapshot.Equals(g.lastSnapshot) {
		g.dirty = true
	}
	g.lastSnapshot = snapshot

	return nil
}

// pollLoader applies a finished load, if the loader has signaled one
func (g *Game) pollLoader() bool {
	select {
	case <-g.loader.Ready():
	default:
		return false
	}
	res, ok := g.loader.Poll()
	if !ok {
		return false
	}
	g.applySpreadImages(res)
	return true
}

// applySpreadImages uploads a finished load. A failed slot shows the error
// placeholder.
func (g *Game) applySpreadImages(res navigator.SpreadImages) {
	g.leftImage = toEbitenImage(res.Left)
	g.rightImage = toEbitenImage(res.Right)

	if res.Err != nil {
		g.logger.Warn("Failed to load spread", "spread", res.SpreadIndex+1, "error", res.Err)
		if res.Spread.Left != spread.None && g.leftImage == nil {
			g.leftImage = CreateErrorImage(0, 0, g.pageName(res.Spread.Left), res.Err.Error())
		}
		if res.Spread.Right != spread.None && g.rightImage == nil {
			g.rightImage = CreateErrorImage(0, 0, g.pageName(res.Spread.Right), res.Err.Error())
		}
	}
	g.dirty = true
}

func (g *Game) pageName(page int) string {
	if g.book == nil {
		return ""
	}
	names := g.book.Names()
	if page < 0 || page >= len(names) {
		return ""
	}
	return names[page]
}

// trackWindowSize saves the windowed size once resizing settles
func (g *Game) trackWindowSize() {
	if g.fullscreen {
		return
	}
	w, h := ebiten.WindowSize()
	if w == g.lastWinW && h == g.lastWinH {
		return
	}
	g.lastWinW, g.lastWinH = w, h
	g.saveWindowSize(w, h)
}

func (g *Game) saveWindowSize(w, h int) {
	if g.store == nil {
		return
	}
	g.windowSaver.Submit(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(g.ctx), 5*time.Second)
		defer cancel()
		err := g.store.SetViewerWindow(ctx, settings.WindowSettings{Width: w, Height: h})
		switch {
		case errors.Is(err, settings.ErrInvalidWindowSize):
			g.logger.Debug("Not saving small window size", "width", w, "height", h)
		case err != nil:
			g.logger.Warn("Failed to save window size", "error", err)
		}
	})
}

func (g *Game) Draw(screen *ebiten.Image) {
	if !g.dirty {
		return
	}
	g.renderer.Draw(screen)
	g.dirty = false
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.screenW, g.screenH = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// Close waits for pending writes and releases the session
func (g *Game) Close() {
	g.nav.Wait()
	g.windowSaver.Flush()
	g.loader.Close()
	g.loader.Wait()
	if g.book != nil {
		if err := g.book.Close(); err != nil {
			g.logger.Warn("Failed to close document", "error", err)
		}
	}
	if g.siblings != nil {
		if err := g.siblings.Close(); err != nil {
			g.logger.Warn("Failed to stop sibling watcher", "error", err)
		}
	}
	if err := g.extractor.Close(); err != nil {
		g.logger.Warn("Failed to remove extracted archives", "error", err)
	}
}

// InputActions

func (g *Game) Exit() {
	g.quit = true
}

func (g *Game) ToggleHelp() {
	g.showHelp = !g.showHelp
}

func (g *Game) ToggleInfo() {
	g.showInfo = !g.showInfo
}

func (g *Game) ToggleFullscreen() {
	g.fullscreen = !g.fullscreen
	if g.fullscreen {
		g.savedWinW, g.savedWinH = ebiten.WindowSize()
		ebiten.SetFullscreen(true)
	} else {
		ebiten.SetFullscreen(false)
		if g.savedWinW > 0 && g.savedWinH > 0 {
			ebiten.SetWindowSize(g.savedWinW, g.savedWinH)
		}
	}
}

func (g *Game) EnterPageInputMode() {
	if g.nav.PageCount() == 0 {
		return
	}
	g.pageInputMode = true
	g.pageInputBuffer = ""
}

func (g *Game) ExitPageInputMode() {
	g.pageInputMode = false
	g.pageInputBuffer = ""
}

func (g *Game) ProcessPageInput() {
	page, ok := parsePageInput(g.pageInputBuffer, g.nav.PageCount())
	if !ok {
		g.ShowOverlayMessage(fmt.Sprintf("Invalid page: %s (1-%d)", g.pageInputBuffer, g.nav.PageCount()))
		return
	}
	g.nav.JumpToPage(page - 1)
}

// parsePageInput parses a 1-based page number within [1, count]
func parsePageInput(buffer string, count int) (int, bool) {
	page, err := strconv.Atoi(buffer)
	if err != nil || page < 1 || page > count {
		return 0, false
	}
	return page, true
}

func (g *Game) UpdatePageInputBuffer(buffer string) {
	// Max 6 digits
	if len(buffer) <= 6 {
		g.pageInputBuffer = buffer
	}
}

func (g *Game) ToggleViewMode() {
	g.nav.ToggleViewMode()
}

func (g *Game) ToggleReadingDirection() {
	g.nav.ToggleReadingDirection()
}

// CycleSortMethod switches to the next sort strategy and reopens the
// document, staying on the same page
func (g *Game) CycleSortMethod() {
	g.config.SortMethod = nextSortMethod(g.config.SortMethod)
	name := getSortMethodName(g.config.SortMethod)

	if g.book == nil || g.book.Kind() != archive.KindArchive {
		g.ShowOverlayMessage("Sort: " + name)
		return
	}

	current := g.pageName(g.nav.CurrentPage())
	if err := g.openDocument(g.book.Path(), true); err != nil {
		g.logger.Error("Failed to reopen document", "path", g.book.Path(), "error", err)
		g.ShowOverlayMessage("Failed to reopen document")
		return
	}
	if i := slices.Index(g.book.Names(), current); i >= 0 {
		g.nav.JumpToPage(i)
	}
	g.ShowOverlayMessage("Sort: " + name)
}

// nextSortMethod returns the sort method after m, wrapping around
func nextSortMethod(m int) int {
	return (m + 1) % len(archive.GetAllSortStrategies())
}

func (g *Game) NavigateNext()     { g.nav.Next() }
func (g *Game) NavigatePrevious() { g.nav.Prev() }
func (g *Game) StepLeft()         { g.nav.StepLeft() }
func (g *Game) StepRight()        { g.nav.StepRight() }
func (g *Game) JumpToFirst()      { g.nav.JumpToStart() }
func (g *Game) JumpToLast()       { g.nav.JumpToEnd() }

// HandleClick turns a left click into navigation: the progress bar seeks,
// otherwise the clicked half steps toward that side
func (g *Game) HandleClick() {
	x, y := ebiten.CursorPosition()
	g.handleClickAt(x, y)
}

func (g *Game) handleClickAt(x, y int) {
	barH := g.config.MouseSettings.ProgressBarHeight
	switch clickTarget(x, y, g.screenW, g.screenH, barH, g.nav.Mode()) {
	case clickProgress:
		g.nav.JumpToRatio(progressRatio(float64(x), float64(g.screenW), g.nav.Direction()))
	case clickNext:
		g.nav.Next()
	case clickLeft:
		g.nav.StepLeft()
	case clickRight:
		g.nav.StepRight()
	}
}

type clickZone int

const (
	clickNone clickZone = iota
	clickProgress
	clickNext
	clickLeft
	clickRight
)

// clickTarget maps a click on a w x h screen to the zone it hits
func clickTarget(x, y, w, h, barH int, mode spread.ViewMode) clickZone {
	if w <= 0 || h <= 0 || x < 0 || y < 0 || x >= w || y >= h {
		return clickNone
	}
	if y >= h-barH {
		return clickProgress
	}
	if mode == spread.ModeSingle {
		return clickNext
	}
	if x < w/2 {
		return clickLeft
	}
	return clickRight
}

func (g *Game) OpenNextFile() {
	g.openSibling(1)
}

func (g *Game) OpenPreviousFile() {
	g.openSibling(-1)
}

func (g *Game) openSibling(delta int) {
	if g.rootPath == "" {
		return
	}

	var (
		path string
		ok   bool
		err  error
	)
	if g.siblings != nil {
		if delta > 0 {
			path, ok, err = g.siblings.Next(g.rootPath)
		} else {
			path, ok, err = g.siblings.Prev(g.rootPath)
		}
	} else {
		var list []string
		var idx int
		list, idx, err = archive.Siblings(g.rootPath)
		if err == nil {
			path, ok = archive.Neighbor(list, idx, delta)
		}
	}

	switch {
	case err != nil:
		g.logger.Warn("Failed to list sibling files", "path", g.rootPath, "error", err)
		g.ShowOverlayMessage("Cannot list folder")
	case !ok && delta > 0:
		g.ShowOverlayMessage("Last file")
	case !ok:
		g.ShowOverlayMessage("First file")
	default:
		if err := g.Open(path); err != nil {
			g.logger.Warn("Failed to open sibling", "path", path, "error", err)
			g.ShowOverlayMessage("Cannot open " + filepath.Base(path))
		}
	}
}

func (g *Game) ReturnToList() {
	if !g.CanReturnToList() {
		return
	}
	g.showList = true
}

func (g *Game) MoveListCursor(delta int) {
	if len(g.listEntries) == 0 {
		return
	}
	g.listCursor = max(0, min(len(g.listEntries)-1, g.listCursor+delta))
}

// OpenListSelection extracts the selected nested archive and opens it
func (g *Game) OpenListSelection() {
	if g.listCursor < 0 || g.listCursor >= len(g.listEntries) {
		return
	}
	name := g.listEntries[g.listCursor]

	path, err := g.extractor.ExtractNested(g.listParent, name)
	if err != nil {
		g.logger.Warn("Failed to extract nested archive", "parent", g.listParent, "name", name, "error", err)
		g.ShowOverlayMessage("Cannot open " + name)
		return
	}
	if err := g.openDocument(path, true); err != nil {
		g.logger.Warn("Failed to open nested archive", "name", name, "error", err)
		g.ShowOverlayMessage("Cannot open " + name)
	}
}

func (g *Game) ShowOverlayMessage(message string) {
	g.overlayMessage = message
	g.overlayMessageTime = time.Now()
	g.dirty = true
}

// InputState

func (g *Game) IsInPageInputMode() bool    { return g.pageInputMode }
func (g *Game) GetPageInputBuffer() string { return g.pageInputBuffer }
func (g *Game) IsShowingList() bool        { return g.showList }

// CanReturnToList reports whether a nested document is open from a list
func (g *Game) CanReturnToList() bool {
	return !g.showList && g.listParent != "" && len(g.listEntries) > 0
}

// RenderState

func (g *Game) GetViewMode() spread.ViewMode                 { return g.nav.Mode() }
func (g *Game) GetReadingDirection() spread.Direction        { return g.nav.Direction() }
func (g *Game) IsFullscreen() bool                           { return g.fullscreen }
func (g *Game) GetPageGap() int                              { return g.config.PageGap }
func (g *Game) GetSpreadImages() (left, right *ebiten.Image) { return g.leftImage, g.rightImage }
func (g *Game) IsShowingHelp() bool                          { return g.showHelp }
func (g *Game) IsShowingInfo() bool                          { return g.showInfo }
func (g *Game) GetOverlayMessage() string                    { return g.overlayMessage }
func (g *Game) GetOverlayMessageTime() time.Time             { return g.overlayMessageTime }
func (g *Game) GetListEntries() []string                     { return g.listEntries }
func (g *Game) GetListCursor() int                           { return g.listCursor }
func (g *Game) GetTotalPagesCount() int                      { return g.nav.PageCount() }
func (g *Game) GetProgress() float64                         { return g.nav.ProgressFraction() }
func (g *Game) GetFontSize() float64                         { return g.config.HelpFontSize }
func (g *Game) GetConfigStatus() ConfigLoadResult            { return g.configStatus }
func (g *Game) GetKeybindings() map[string][]string          { return g.keybindingManager.GetKeybindings() }
func (g *Game) GetMousebindings() map[string][]string        { return g.mousebindingManager.GetMousebindings() }
func (g *Game) GetMouseSettings() MouseSettings              { return g.mousebindingManager.GetSettings() }

func (g *Game) GetCurrentPageNumber() string {
	return buildPageNumberString(g.nav.Current(), g.nav.Direction(), g.nav.PageCount())
}
