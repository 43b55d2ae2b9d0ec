package main

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"

	"mekuri/internal/spread"
)

// Common colors used in rendering
var (
	colorWhite     = color.RGBA{255, 255, 255, 255}
	colorGray      = color.RGBA{180, 180, 180, 255}
	colorLightGray = color.RGBA{192, 192, 192, 255}
	colorYellow    = color.RGBA{255, 255, 100, 255}
	colorCyan      = color.RGBA{100, 255, 255, 255}
	colorLightBlue = color.RGBA{200, 200, 255, 255}
	colorGreen     = color.RGBA{100, 255, 100, 255}
	colorOrange    = color.RGBA{255, 200, 100, 255}
	colorLightRed  = color.RGBA{255, 150, 150, 255}

	// Progress bar
	colorTrack = color.RGBA{60, 60, 60, 255}
	colorFill  = color.RGBA{90, 150, 230, 255}
	colorThumb = color.RGBA{230, 230, 230, 255}

	// Background colors for semi-transparent overlays
	bgColorLight  = color.RGBA{0, 0, 0, 128} // Light semi-transparent
	bgColorMedium = color.RGBA{0, 0, 0, 160} // Medium semi-transparent
	bgColorDark   = color.RGBA{0, 0, 0, 200} // Dark semi-transparent
)

// Renderer handles all drawing operations
type Renderer struct {
	renderState    RenderState
	helpFontSource *text.GoTextFaceSource
}

// NewRenderer creates a new Renderer. It shares the font loaded by
// InitGraphics when available.
func NewRenderer(renderState RenderState) (*Renderer, error) {
	s := globalFontSource
	if s == nil {
		var err error
		s, err = text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
		if err != nil {
			return nil, fmt.Errorf("loading font: %w", err)
		}
	}

	return &Renderer{
		renderState:    renderState,
		helpFontSource: s,
	}, nil
}

// Draw renders the entire screen
func (r *Renderer) Draw(screen *ebiten.Image) {
	// Clear the screen since SetScreenClearedEveryFrame(false) is enabled
	screen.Clear()

	if r.renderState.IsShowingList() {
		r.drawListOverlay(screen)
	} else {
		r.drawSpread(screen)
		r.drawProgressBar(screen)

		if r.renderState.IsShowingInfo() {
			r.drawInfoDisplay(screen)
		}
	}

	if r.renderState.IsShowingHelp() {
		r.drawHelpOverlay(screen)
	}

	if r.renderState.IsInPageInputMode() {
		r.drawPageInputOverlay(screen)
	}

	if r.renderState.GetOverlayMessage() != "" && time.Since(r.renderState.GetOverlayMessageTime()) < overlayMessageDuration {
		r.drawOverlayMessage(screen)
	}
}

// pageArea is the part of the screen above the progress bar
func (r *Renderer) pageArea(screen *ebiten.Image) (w, h int) {
	w, h = screen.Bounds().Dx(), screen.Bounds().Dy()
	h -= r.renderState.GetMouseSettings().ProgressBarHeight
	return w, max(h, 1)
}

// drawSpread draws the current spread. In spread mode each slot owns half
// of the screen and the pages meet at the gutter; a missing slot leaves its
// half empty. In single mode the page is centered.
func (r *Renderer) drawSpread(screen *ebiten.Image) {
	left, right := r.renderState.GetSpreadImages()
	w, h := r.pageArea(screen)

	if r.renderState.GetViewMode() == spread.ModeSingle {
		img := right
		if img == nil {
			img = left
		}
		if img != nil {
			r.drawImageInRegionWithAlign(screen, img, 0, 0, w, h, "center")
		}
		return
	}

	gap := r.renderState.GetPageGap()
	halfW := max((w-gap)/2, 1)
	if left != nil {
		r.drawImageInRegionWithAlign(screen, left, 0, 0, halfW, h, "right")
	}
	if right != nil {
		r.drawImageInRegionWithAlign(screen, right, halfW+gap, 0, halfW, h, "left")
	}
}

func (r *Renderer) drawImageInRegionWithAlign(screen *ebiten.Image, img *ebiten.Image, x, y, maxW, maxH int, align string) {
	scale := r.calculateImageScale(img, maxW, maxH)

	op := &ebiten.DrawImageOptions{}
	op.Filter = ebiten.FilterLinear
	op.GeoM.Scale(scale, scale)

	scaledW := float64(img.Bounds().Dx()) * scale
	scaledH := float64(img.Bounds().Dy()) * scale

	xPos := r.CalculateHorizontalPosition(x, maxW, scaledW, align)
	yPos := float64(y) + float64(maxH)/2 - scaledH/2 // Always center vertically

	op.GeoM.Translate(xPos, yPos)
	screen.DrawImage(img, op)
}

func (r *Renderer) calculateImageScale(img *ebiten.Image, maxW, maxH int) float64 {
	iw, ih := img.Bounds().Dx(), img.Bounds().Dy()

	if r.renderState.IsFullscreen() {
		return math.Min(float64(maxW)/float64(iw), float64(maxH)/float64(ih))
	}

	// In windowed mode, don't scale up small images
	if iw > maxW || ih > maxH {
		return math.Min(float64(maxW)/float64(iw), float64(maxH)/float64(ih))
	}
	return 1
}

func (r *Renderer) CalculateHorizontalPosition(x, maxW int, scaledW float64, align string) float64 {
	switch align {
	case "left":
		return float64(x)
	case "right":
		return float64(x+maxW) - scaledW
	default: // "center"
		return float64(x) + float64(maxW)/2 - scaledW/2
	}
}

// progressFill returns the x offset and width of the filled part of a bar
// of width w. The fill grows from the right edge for RTL.
func progressFill(w, fraction float64, dir spread.Direction) (x, fillW float64) {
	fraction = math.Max(0, math.Min(1, fraction))
	fillW = w * fraction
	if dir == spread.RTL {
		return w - fillW, fillW
	}
	return 0, fillW
}

// progressRatio converts a click at x on a bar of width w into a position
// measured from the reading-start edge
func progressRatio(x, w float64, dir spread.Direction) float64 {
	if w <= 0 {
		return 0
	}
	ratio := x / w
	if dir == spread.RTL {
		ratio = (w - x) / w
	}
	return math.Max(0, math.Min(1, ratio))
}

func (r *Renderer) drawProgressBar(screen *ebiten.Image) {
	barH := float64(r.renderState.GetMouseSettings().ProgressBarHeight)
	if barH <= 0 || r.renderState.GetTotalPagesCount() == 0 {
		return
	}
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())

	// Thin track centered in the clickable strip
	trackH := math.Max(2, barH/4)
	trackY := h - barH/2 - trackH/2
	DrawFilledRect(screen, 0, trackY, w, trackH, colorTrack)

	dir := r.renderState.GetReadingDirection()
	x, fillW := progressFill(w, r.renderState.GetProgress(), dir)
	DrawFilledRect(screen, x, trackY, fillW, trackH, colorFill)

	// Thumb at the leading edge of the fill
	thumbW := trackH * 3
	thumbX := x + fillW - thumbW/2
	if dir == spread.RTL {
		thumbX = x - thumbW/2
	}
	thumbX = math.Max(0, math.Min(w-thumbW, thumbX))
	DrawFilledRect(screen, thumbX, h-barH/2-thumbW/2, thumbW, thumbW, colorThumb)
}

// buildPageNumberString formats the pages of s in reading order, 1-based:
// "3-4 / 10" for a pair, "1 / 10" for a lone page
func buildPageNumberString(s spread.Spread, dir spread.Direction, total int) string {
	pages := s.Pages(dir)
	switch len(pages) {
	case 0:
		return fmt.Sprintf("0 / %d", total)
	case 1:
		return fmt.Sprintf("%d / %d", pages[0]+1, total)
	default:
		return fmt.Sprintf("%d-%d / %d", pages[0]+1, pages[1]+1, total)
	}
}

// drawListOverlay shows the archives of a container archive with the
// selected entry highlighted
func (r *Renderer) drawListOverlay(screen *ebiten.Image) {
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())
	entries := r.renderState.GetListEntries()
	cursor := r.renderState.GetListCursor()

	listFont := r.face(r.renderState.GetFontSize())
	lineHeight := r.renderState.GetFontSize() * 1.5
	padding := 40.0

	DrawFilledRect(screen, padding, padding, w-padding*2, h-padding*2, bgColorMedium)
	DrawText(screen, "Select a volume (Enter to open):", listFont, padding+20, padding+20, colorWhite)

	// Scroll so the cursor stays visible
	visible := max(1, int((h-padding*2-lineHeight*2)/lineHeight))
	first := 0
	if cursor >= visible {
		first = cursor - visible + 1
	}

	y := padding + 20 + lineHeight*1.5
	for i := first; i < len(entries) && i < first+visible; i++ {
		c := colorGray
		prefix := "  "
		if i == cursor {
			c = colorYellow
			prefix = "> "
		}
		DrawText(screen, prefix+entries[i], listFont, padding+40, y, c)
		y += lineHeight
	}
}

func (r *Renderer) face(size float64) *text.GoTextFace {
	return &text.GoTextFace{Source: r.helpFontSource, Size: size}
}

func measure(s string, face *text.GoTextFace) float64 {
	w, _ := text.Measure(s, face, 0)
	return w
}

const (
	helpPadding     = 40.0
	minHelpFontSize = 12.0
	maxHelpWarnings = 2
)

// helpRow is one line of the controls table
type helpRow struct {
	action      string
	keys        string
	mouse       string
	description string
}

func (row helpRow) input() string {
	switch {
	case row.keys == "":
		return row.mouse
	case row.mouse == "":
		return row.keys
	default:
		return row.keys + " | " + row.mouse
	}
}

// helpRows lists the bound actions in definition order
func (r *Renderer) helpRows() []helpRow {
	keybindings := r.renderState.GetKeybindings()
	mousebindings := r.renderState.GetMousebindings()
	descriptions := GetActionDescriptions()

	var rows []helpRow
	for _, action := range actionOrder() {
		keys, mouse := keybindings[action], mousebindings[action]
		if len(keys) == 0 && len(mouse) == 0 {
			continue
		}
		desc := descriptions[action]
		if desc == "" {
			desc = "No description available"
		}
		rows = append(rows, helpRow{
			action:      action,
			keys:        strings.Join(keys, ", "),
			mouse:       strings.Join(mouse, ", "),
			description: desc,
		})
	}
	return rows
}

// helpWarnings returns the first config warnings, shortened for the overlay
func (r *Renderer) helpWarnings() []string {
	warnings := r.renderState.GetConfigStatus().Warnings
	out := make([]string, 0, maxHelpWarnings)
	for _, w := range warnings[:min(len(warnings), maxHelpWarnings)] {
		out = append(out, "• "+truncateText(w, 50))
	}
	return out
}

func statusLine(status ConfigLoadResult) string {
	return "Config Status: " + status.Status
}

// helpLayout is the help table measured at one font size
type helpLayout struct {
	face       *text.GoTextFace
	lineHeight float64
	actionW    float64
	inputW     float64
	width      float64
	height     float64
}

func (r *Renderer) layoutHelp(rows []helpRow, status ConfigLoadResult, warnings []string, fontSize float64) helpLayout {
	face := r.face(fontSize)
	l := helpLayout{face: face, lineHeight: fontSize * 1.5}

	var descW float64
	for _, row := range rows {
		l.actionW = math.Max(l.actionW, measure(row.action, face))
		l.inputW = math.Max(l.inputW, measure(row.input(), face))
		descW = math.Max(descW, measure(row.description, face))
	}

	// Margin, action, arrow, input and description columns
	l.width = 40 + l.actionW + 20 + 30 + 20 + l.inputW + 20 + descW + helpPadding
	for _, s := range []string{"HELP:", "Controls (Keyboard | Mouse):", "System:"} {
		l.width = math.Max(l.width, measure(s, face)+helpPadding*2+40)
	}
	for _, s := range append([]string{statusLine(status)}, warnings...) {
		l.width = math.Max(l.width, measure(s, face)+helpPadding*2+80)
	}

	l.height = helpPadding*2 + fontSize*2 + l.lineHeight*1.5 +
		float64(len(rows))*l.lineHeight +
		l.lineHeight*3 + // spacing, "System:", status
		float64(len(warnings))*l.lineHeight
	return l
}

// fitHelp finds the largest font size, up to the configured one, at which
// the help table fits in w x h. It reports false when even the minimum
// size is too large.
func (r *Renderer) fitHelp(rows []helpRow, status ConfigLoadResult, warnings []string, w, h float64) (helpLayout, bool) {
	fits := func(l helpLayout) bool { return l.width <= w && l.height <= h }

	best := r.layoutHelp(rows, status, warnings, minHelpFontSize)
	if !fits(best) {
		return best, false
	}
	maxSize := r.renderState.GetFontSize()
	if l := r.layoutHelp(rows, status, warnings, maxSize); fits(l) {
		return l, true
	}

	low, high := minHelpFontSize, maxSize
	for high-low > 0.5 {
		mid := (low + high) / 2
		if l := r.layoutHelp(rows, status, warnings, mid); fits(l) {
			best, low = l, mid
		} else {
			high = mid
		}
	}
	return best, true
}

func (r *Renderer) drawHelpOverlay(screen *ebiten.Image) {
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())
	rows := r.helpRows()
	status := r.renderState.GetConfigStatus()
	warnings := r.helpWarnings()

	l, ok := r.fitHelp(rows, status, warnings, w-helpPadding*2, h-helpPadding*2)
	if !ok {
		r.drawMarginTooSmallMessage(screen)
		return
	}

	DrawFilledRect(screen, 0, 0, w, h, bgColorLight)
	DrawFilledRect(screen, helpPadding, helpPadding, w-helpPadding*2, h-helpPadding*2, bgColorMedium)

	x := helpPadding + 20
	y := helpPadding + 30
	DrawText(screen, "HELP:", l.face, x, y, colorWhite)
	y += l.face.Size * 2
	DrawText(screen, "Controls (Keyboard | Mouse):", l.face, x, y, colorWhite)
	y += l.lineHeight * 1.5

	actionX := helpPadding + 40
	arrowX := actionX + l.actionW + 20
	inputX := arrowX + 30
	descX := inputX + l.inputW + 20
	for _, row := range rows {
		DrawText(screen, row.action, l.face, actionX, y, colorLightBlue)
		DrawText(screen, "→", l.face, arrowX, y, colorWhite)

		// Keys in yellow, mouse in cyan
		ix := inputX
		if row.keys != "" {
			DrawText(screen, row.keys, l.face, ix, y, colorYellow)
			ix += measure(row.keys, l.face)
		}
		if row.keys != "" && row.mouse != "" {
			DrawText(screen, " | ", l.face, ix, y, colorWhite)
			ix += measure(" | ", l.face)
		}
		if row.mouse != "" {
			DrawText(screen, row.mouse, l.face, ix, y, colorCyan)
		}

		DrawText(screen, row.description, l.face, descX, y, colorGray)
		y += l.lineHeight
	}

	y += l.lineHeight
	DrawText(screen, "System:", l.face, x, y, colorWhite)
	y += l.lineHeight

	statusColor := colorGreen
	if status.Status == "Warning" || status.Status == "Error" {
		statusColor = colorOrange
	}
	DrawText(screen, statusLine(status), l.face, helpPadding+40, y, statusColor)
	y += l.lineHeight

	for _, warning := range warnings {
		DrawText(screen, warning, l.face, helpPadding+40, y, colorLightRed)
		y += l.lineHeight
	}
}

// drawMarginTooSmallMessage displays Fermat's margin joke when help cannot fit
func (r *Renderer) drawMarginTooSmallMessage(screen *ebiten.Image) {
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())
	DrawFilledRect(screen, 0, 0, w, h, bgColorLight)

	jokeFont := r.face(16)
	message := "Hanc marginis exiguitas non caperet."
	subtitle := "(This margin is too small to contain it.)"

	messageW, messageH := text.Measure(message, jokeFont, 0)
	messageY := h/2 - messageH/2
	DrawText(screen, message, jokeFont, w/2-messageW/2, messageY, colorWhite)
	DrawText(screen, subtitle, jokeFont, w/2-measure(subtitle, jokeFont)/2, messageY+messageH+10, colorGray)
}

// boxLine is one line of a centered message box
type boxLine struct {
	text  string
	face  *text.GoTextFace
	color color.RGBA
}

const (
	boxPadding = 20.0
	boxLineGap = 10.0
)

// drawCenteredBox draws lines, each centered, in a dark box in the middle
// of the screen
func drawCenteredBox(screen *ebiten.Image, lines []boxLine) {
	if len(lines) == 0 {
		return
	}

	widths := make([]float64, len(lines))
	heights := make([]float64, len(lines))
	var boxW, boxH float64
	for i, line := range lines {
		widths[i], heights[i] = text.Measure(line.text, line.face, 0)
		boxW = math.Max(boxW, widths[i])
		boxH += heights[i]
	}
	boxW += boxPadding * 2
	boxH += boxPadding*2 + boxLineGap*float64(len(lines)-1)

	x := (float64(screen.Bounds().Dx()) - boxW) / 2
	y := (float64(screen.Bounds().Dy()) - boxH) / 2
	DrawFilledRect(screen, x, y, boxW, boxH, bgColorDark)

	y += boxPadding
	for i, line := range lines {
		DrawText(screen, line.text, line.face, x+(boxW-widths[i])/2, y, line.color)
		y += heights[i] + boxLineGap
	}
}

func (r *Renderer) drawPageInputOverlay(screen *ebiten.Image) {
	size := r.renderState.GetFontSize()
	drawCenteredBox(screen, []boxLine{
		{fmt.Sprintf("Go to page: %s_", r.renderState.GetPageInputBuffer()), r.face(size), colorWhite},
		{fmt.Sprintf("(1-%d)", r.renderState.GetTotalPagesCount()), r.face(size * 0.8), colorLightGray},
	})
}

func (r *Renderer) drawOverlayMessage(screen *ebiten.Image) {
	drawCenteredBox(screen, []boxLine{
		{r.renderState.GetOverlayMessage(), r.face(r.renderState.GetFontSize()), colorWhite},
	})
}

// drawInfoDisplay shows the page numbers in the bottom right corner, above
// the progress bar
func (r *Renderer) drawInfoDisplay(screen *ebiten.Image) {
	infoFont := r.face(r.renderState.GetFontSize())
	infoText := r.renderState.GetCurrentPageNumber()
	textW, textH := text.Measure(infoText, infoFont, 0)

	const margin, bgPadding = 10.0, 5.0
	barH := float64(r.renderState.GetMouseSettings().ProgressBarHeight)
	x := float64(screen.Bounds().Dx()) - textW - margin
	y := float64(screen.Bounds().Dy()) - barH - textH - margin

	DrawFilledRect(screen, x-bgPadding, y-bgPadding, textW+bgPadding*2, textH+bgPadding*2, bgColorLight)
	DrawText(screen, infoText, infoFont, x, y, colorWhite)
}
