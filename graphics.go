package main

import (
	"bytes"
	"image"
	"image/color"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"
)

// Default size of the error placeholder
const (
	errorImageWidth  = 400
	errorImageHeight = 300
)

// Global font source for error image generation
var globalFontSource *text.GoTextFaceSource

// InitGraphics initializes the global font source for text rendering
func InitGraphics() error {
	s, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return err
	}
	globalFontSource = s
	return nil
}

// DrawText draws text with specified position and color
func DrawText(screen *ebiten.Image, textString string, font *text.GoTextFace, x, y float64, textColor color.RGBA) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(textColor)
	text.Draw(screen, textString, font, op)
}

// DrawFilledRect draws filled rectangles with float64 coordinates
func DrawFilledRect(screen *ebiten.Image, x, y, w, h float64, bgColor color.RGBA) {
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), bgColor, false)
}

// drawBorder draws a frame of the given thickness inside img
func drawBorder(img *ebiten.Image, thickness float64, c color.RGBA) {
	w, h := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
	DrawFilledRect(img, 0, 0, w, thickness, c)
	DrawFilledRect(img, 0, h-thickness, w, thickness, c)
	DrawFilledRect(img, 0, 0, thickness, h, c)
	DrawFilledRect(img, w-thickness, 0, thickness, h, c)
}

// truncateText shortens s to maxChars runes, marking the cut with "..."
func truncateText(s string, maxChars int) string {
	r := []rune(s)
	if maxChars < 4 || len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars-3]) + "..."
}

// CreateErrorImage creates an error placeholder image with the page name and
// error message. It stands in for a page that could not be loaded.
func CreateErrorImage(width, height int, pageName, errorMsg string) *ebiten.Image {
	if width <= 0 || height <= 0 {
		width, height = errorImageWidth, errorImageHeight
	}

	errorImg := ebiten.NewImage(width, height)
	errorImg.Fill(color.RGBA{120, 30, 30, 255}) // Dark red background
	drawBorder(errorImg, 3, colorWhite)

	// Without a font only the frame is drawn
	if globalFontSource == nil {
		return errorImg
	}

	errorFont := &text.GoTextFace{
		Source: globalFontSource,
		Size:   20.0,
	}

	// Rough estimate: 10px per character
	maxChars := (width - 20) / 10
	fileText := truncateText("Page: "+filepath.Base(pageName), maxChars)
	reasonText := truncateText("Reason: "+errorMsg, maxChars)

	DrawText(errorImg, "ERROR", errorFont, 10, 30, colorWhite)
	DrawText(errorImg, fileText, errorFont, 10, 60, colorWhite)
	DrawText(errorImg, reasonText, errorFont, 10, 90, colorWhite)

	return errorImg
}

// toEbitenImage uploads a decoded page, or returns nil for an empty slot
func toEbitenImage(img image.Image) *ebiten.Image {
	if img == nil {
		return nil
	}
	return ebiten.NewImageFromImage(img)
}
