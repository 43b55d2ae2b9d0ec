package main

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"mekuri/internal/spread"
)

const (
	// Overlay message display duration
	overlayMessageDuration = 2 * time.Second
)

// RenderState provides read-only access to game state for the renderer
type RenderState interface {
	// Layout
	GetViewMode() spread.ViewMode
	GetReadingDirection() spread.Direction
	IsFullscreen() bool
	GetPageGap() int

	// Images of the current spread; nil while loading or for an empty slot
	GetSpreadImages() (left, right *ebiten.Image)

	// UI state
	IsShowingHelp() bool
	IsShowingInfo() bool
	IsInPageInputMode() bool
	GetPageInputBuffer() string
	GetOverlayMessage() string
	GetOverlayMessageTime() time.Time

	// Nested archive list
	IsShowingList() bool
	GetListEntries() []string
	GetListCursor() int

	// Display data
	GetCurrentPageNumber() string
	GetTotalPagesCount() int
	GetProgress() float64
	GetFontSize() float64
	GetConfigStatus() ConfigLoadResult
	GetKeybindings() map[string][]string
	GetMousebindings() map[string][]string
	GetMouseSettings() MouseSettings
}

// RenderStateSnapshot captures a snapshot of render state for comparison
// Only tracks fields that can change without key input
type RenderStateSnapshot struct {
	// Overlay message state (auto-expires after 2 seconds)
	OverlayMessage     string
	OverlayMessageTime time.Time

	// Window dimensions for resize detection
	WindowWidth  int
	WindowHeight int
}

// NewRenderStateSnapshot creates a lightweight snapshot of non-key-input state
func NewRenderStateSnapshot(state RenderState, windowWidth, windowHeight int) *RenderStateSnapshot {
	return &RenderStateSnapshot{
		OverlayMessage:     state.GetOverlayMessage(),
		OverlayMessageTime: state.GetOverlayMessageTime(),
		WindowWidth:        windowWidth,
		WindowHeight:       windowHeight,
	}
}

// Equals checks if two snapshots are equal
func (s *RenderStateSnapshot) Equals(other *RenderStateSnapshot) bool {
	if other == nil {
		return false
	}

	isOverlayActive := func(message string, messageTime time.Time) bool {
		return message != "" && time.Since(messageTime) < overlayMessageDuration
	}

	// An overlay that expired counts as a change even when the text is the same
	overlayEqual := func() bool {
		sActive := isOverlayActive(s.OverlayMessage, s.OverlayMessageTime)
		otherActive := isOverlayActive(other.OverlayMessage, other.OverlayMessageTime)
		switch {
		case !sActive && !otherActive:
			return s.OverlayMessage == other.OverlayMessage
		case sActive && otherActive:
			return s.OverlayMessage == other.OverlayMessage &&
				s.OverlayMessageTime.Equal(other.OverlayMessageTime)
		default:
			return false
		}
	}

	return overlayEqual() &&
		s.WindowWidth == other.WindowWidth &&
		s.WindowHeight == other.WindowHeight
}

// InputActions provides action methods for the input handler
type InputActions interface {
	// Application control
	Exit()

	// Display toggles
	ToggleHelp()
	ToggleInfo()
	ToggleFullscreen()

	// Page input
	EnterPageInputMode()
	ExitPageInputMode()
	ProcessPageInput()
	UpdatePageInputBuffer(buffer string)

	// Layout settings
	ToggleViewMode()
	ToggleReadingDirection()
	CycleSortMethod()

	// Navigation
	NavigateNext()
	NavigatePrevious()
	StepLeft()
	StepRight()
	JumpToFirst()
	JumpToLast()
	HandleClick()

	// Files
	OpenNextFile()
	OpenPreviousFile()
	ReturnToList()

	// Nested archive list
	MoveListCursor(delta int)
	OpenListSelection()

	// Messages
	ShowOverlayMessage(message string)
}

// InputState provides read-only access to input-related state
type InputState interface {
	IsInPageInputMode() bool
	GetPageInputBuffer() string
	IsShowingList() bool
	CanReturnToList() bool
}
