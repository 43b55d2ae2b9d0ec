package main

import (
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// MouseSettings contains mouse-specific configuration
type MouseSettings struct {
	WheelSensitivity  float64 `json:"wheel_sensitivity" mapstructure:"wheel_sensitivity"`
	DoubleClickTime   int     `json:"double_click_time" mapstructure:"double_click_time"` // milliseconds
	EnableMouse       bool    `json:"enable_mouse" mapstructure:"enable_mouse"`
	WheelInverted     bool    `json:"wheel_inverted" mapstructure:"wheel_inverted"`
	WheelThrottleMs   int     `json:"wheel_throttle_ms" mapstructure:"wheel_throttle_ms"`     // minimum gap between wheel page turns
	ProgressBarHeight int     `json:"progress_bar_height" mapstructure:"progress_bar_height"` // click zone at the bottom edge, pixels
}

// GetDefaultMouseSettings returns the default mouse settings
func GetDefaultMouseSettings() MouseSettings {
	return MouseSettings{
		WheelSensitivity:  1.0,
		DoubleClickTime:   300,
		EnableMouse:       true,
		WheelThrottleMs:   200,
		ProgressBarHeight: 24,
	}
}

// wheelDeltas maps wheel binding names to the scroll direction they match
var wheelDeltas = map[string][2]float64{
	"WheelUp":    {0, 1},
	"WheelDown":  {0, -1},
	"WheelLeft":  {-1, 0},
	"WheelRight": {1, 0},
}

// wheelThrottle lets one wheel page turn through per interval
type wheelThrottle struct {
	interval time.Duration
	last     time.Time
}

func (w *wheelThrottle) allow(now time.Time) bool {
	if w.interval > 0 && !w.last.IsZero() && now.Sub(w.last) < w.interval {
		return false
	}
	w.last = now
	return true
}

// clickTracker detects a second press of the same button within window
type clickTracker struct {
	button ebiten.MouseButton
	last   time.Time
}

func (c *clickTracker) press(button ebiten.MouseButton, now time.Time, window time.Duration) bool {
	if button == c.button && !c.last.IsZero() && now.Sub(c.last) <= window {
		c.last = time.Time{}
		return true
	}
	c.button, c.last = button, now
	return false
}

// MouseCombination represents a mouse action with optional modifiers
type MouseCombination struct {
	Button        ebiten.MouseButton
	IsWheel       bool
	WheelDeltaX   float64
	WheelDeltaY   float64
	IsDoubleClick bool
	Shift         bool
	Ctrl          bool
	Alt           bool
}

// MousebindingManager handles dynamic mouse binding processing
type MousebindingManager struct {
	mousebindings map[string][]string
	mouseMapping  map[string]ebiten.MouseButton
	settings      MouseSettings
	clicks        clickTracker
	wheel         wheelThrottle
}

// NewMousebindingManager creates a new MousebindingManager
func NewMousebindingManager(mousebindings map[string][]string, settings MouseSettings) *MousebindingManager {
	return &MousebindingManager{
		mousebindings: mousebindings,
		mouseMapping:  getMouseMapping(),
		settings:      settings,
		wheel:         wheelThrottle{interval: time.Duration(settings.WheelThrottleMs) * time.Millisecond},
	}
}

// getMouseMapping returns a mapping from string mouse actions to Ebiten mouse buttons
func getMouseMapping() map[string]ebiten.MouseButton {
	return map[string]ebiten.MouseButton{
		"LeftClick":   ebiten.MouseButtonLeft,
		"RightClick":  ebiten.MouseButtonRight,
		"MiddleClick": ebiten.MouseButtonMiddle,
		"Back":        ebiten.MouseButton3, // side buttons
		"Forward":     ebiten.MouseButton4,
	}
}

// parseMouseString parses "Shift+LeftClick", "DoubleLeftClick" or "WheelUp"
func (mm *MousebindingManager) parseMouseString(mouseStr string) (*MouseCombination, bool) {
	parts := strings.Split(mouseStr, "+")
	name := parts[len(parts)-1]

	c := &MouseCombination{}
	c.Shift, c.Ctrl, c.Alt = parseModifiers(parts[:len(parts)-1])

	if d, ok := wheelDeltas[name]; ok {
		c.IsWheel = true
		c.WheelDeltaX, c.WheelDeltaY = d[0], d[1]
		return c, true
	}

	base, double := strings.CutPrefix(name, "Double")
	button, ok := mm.mouseMapping[base]
	if !ok {
		return nil, false
	}
	c.Button, c.IsDoubleClick = button, double
	return c, true
}

// isMouseActionTriggered checks if a mouse combination fired this frame
func (mm *MousebindingManager) isMouseActionTriggered(c *MouseCombination) bool {
	if !mm.settings.EnableMouse || !modifiersMatch(c.Shift, c.Ctrl, c.Alt) {
		return false
	}

	switch {
	case c.IsWheel:
		wheelX, wheelY := ebiten.Wheel()
		if mm.settings.WheelInverted {
			wheelY = -wheelY
		}
		wheelX *= mm.settings.WheelSensitivity
		wheelY *= mm.settings.WheelSensitivity
		return wheelMatches(c, wheelX, wheelY) && mm.wheel.allow(time.Now())
	case c.IsDoubleClick:
		window := time.Duration(mm.settings.DoubleClickTime) * time.Millisecond
		return inpututil.IsMouseButtonJustPressed(c.Button) && mm.clicks.press(c.Button, time.Now(), window)
	default:
		return inpututil.IsMouseButtonJustPressed(c.Button)
	}
}

// CheckAction checks if any mouse binding for the given action is triggered
func (mm *MousebindingManager) CheckAction(action string) bool {
	for _, mouseStr := range mm.mousebindings[action] {
		c, valid := mm.parseMouseString(mouseStr)
		if valid && mm.isMouseActionTriggered(c) {
			return true
		}
	}
	return false
}

// ExecuteAction executes the given action using the InputActions interface
func (mm *MousebindingManager) ExecuteAction(action string, inputActions InputActions, inputState InputState) bool {
	if !mm.CheckAction(action) {
		return false
	}
	return globalActionExecutor.ExecuteAction(action, inputActions, inputState)
}

// GetMousebindings returns the current mouse bindings map (for display purposes)
func (mm *MousebindingManager) GetMousebindings() map[string][]string {
	return mm.mousebindings
}

func (mm *MousebindingManager) GetSettings() MouseSettings {
	return mm.settings
}

// wheelMatches reports whether the wheel moved in the combination's direction
func wheelMatches(c *MouseCombination, wheelX, wheelY float64) bool {
	if c.WheelDeltaX != 0 {
		return c.WheelDeltaX*wheelX > 0
	}
	if c.WheelDeltaY != 0 {
		return c.WheelDeltaY*wheelY > 0
	}
	return false
}

// validateMousebindings validates the mouse bindings configuration
func validateMousebindings(mousebindings map[string][]string) error {
	buttons := getMouseMapping()
	return validateBindings(mousebindings, func(name string) bool {
		if _, ok := wheelDeltas[name]; ok {
			return true
		}
		_, ok := buttons[strings.TrimPrefix(name, "Double")]
		return ok
	})
}
