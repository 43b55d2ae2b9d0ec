package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"mekuri/internal/archive"
	"mekuri/internal/settings"
	"mekuri/internal/spread"
)

// Window size constants
const (
	defaultWidth  = settings.DefaultViewerWidth
	defaultHeight = settings.DefaultViewerHeight
	minWidth      = settings.MinViewerWidth
	minHeight     = settings.MinViewerHeight
)

// Other defaults
const (
	defaultHelpFontSize = 24.0
	defaultPageGap      = 0
	maxPageGap          = 64
	maxCacheSize        = 64
	maxPreloadCount     = 16
)

// ConfigLoadResult contains the result of loading configuration
type ConfigLoadResult struct {
	Config   Config
	HasError bool
	Warnings []string
	Status   string // "OK", "Default", "Warning", "Error"
}

// Config is the static configuration read from ~/.mekuri.json. View mode
// and reading direction here are only the starting values; once toggled,
// the settings store wins.
type Config struct {
	WindowWidth      int                 `json:"window_width" mapstructure:"window_width"`
	WindowHeight     int                 `json:"window_height" mapstructure:"window_height"`
	ViewMode         string              `json:"view_mode" mapstructure:"view_mode"`
	ReadingDirection string              `json:"reading_direction" mapstructure:"reading_direction"`
	HelpFontSize     float64             `json:"help_font_size" mapstructure:"help_font_size"`
	SortMethod       int                 `json:"sort_method" mapstructure:"sort_method"`
	Fullscreen       bool                `json:"fullscreen" mapstructure:"fullscreen"`
	PageGap          int                 `json:"page_gap" mapstructure:"page_gap"`
	CacheSize        int                 `json:"cache_size" mapstructure:"cache_size"`
	PreloadEnabled   bool                `json:"preload_enabled" mapstructure:"preload_enabled"`
	PreloadCount     int                 `json:"preload_count" mapstructure:"preload_count"`
	IgnorePatterns   []string            `json:"ignore_patterns" mapstructure:"ignore_patterns"`
	SettingsPath     string              `json:"settings_path" mapstructure:"settings_path"`
	Keybindings      map[string][]string `json:"keybindings" mapstructure:"keybindings"`
	Mousebindings    map[string][]string `json:"mousebindings" mapstructure:"mousebindings"`
	MouseSettings    MouseSettings       `json:"mouse_settings" mapstructure:"mouse_settings"`
}

func getConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "mekuri.json"
	}
	return filepath.Join(homeDir, ".mekuri.json")
}

func defaultConfig() Config {
	return Config{
		WindowWidth:      defaultWidth,
		WindowHeight:     defaultHeight,
		ViewMode:         spread.ModeSpread.String(),
		ReadingDirection: spread.RTL.String(),
		HelpFontSize:     defaultHelpFontSize,
		SortMethod:       archive.SortNatural,
		PageGap:          defaultPageGap,
		CacheSize:        16,
		PreloadEnabled:   true,
		PreloadCount:     4,
		IgnorePatterns:   append([]string(nil), archive.DefaultIgnorePatterns...),
		SettingsPath:     settings.DefaultPath(),
		Keybindings:      GetDefaultKeybindings(),
		Mousebindings:    GetDefaultMousebindings(),
		MouseSettings:    GetDefaultMouseSettings(),
	}
}

// newViper returns a viper instance reading configPath as JSON, with
// defaults and MEKURI_* environment overrides
func newViper(configPath string) *viper.Viper {
	d := defaultConfig()
	v := viper.New()

	v.SetDefault("window_width", d.WindowWidth)
	v.SetDefault("window_height", d.WindowHeight)
	v.SetDefault("view_mode", d.ViewMode)
	v.SetDefault("reading_direction", d.ReadingDirection)
	v.SetDefault("help_font_size", d.HelpFontSize)
	v.SetDefault("sort_method", d.SortMethod)
	v.SetDefault("fullscreen", d.Fullscreen)
	v.SetDefault("page_gap", d.PageGap)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("preload_enabled", d.PreloadEnabled)
	v.SetDefault("preload_count", d.PreloadCount)
	v.SetDefault("ignore_patterns", d.IgnorePatterns)
	v.SetDefault("settings_path", d.SettingsPath)
	v.SetDefault("mouse_settings.wheel_sensitivity", d.MouseSettings.WheelSensitivity)
	v.SetDefault("mouse_settings.double_click_time", d.MouseSettings.DoubleClickTime)
	v.SetDefault("mouse_settings.enable_mouse", d.MouseSettings.EnableMouse)
	v.SetDefault("mouse_settings.wheel_inverted", d.MouseSettings.WheelInverted)
	v.SetDefault("mouse_settings.wheel_throttle_ms", d.MouseSettings.WheelThrottleMs)
	v.SetDefault("mouse_settings.progress_bar_height", d.MouseSettings.ProgressBarHeight)

	v.SetEnvPrefix("MEKURI")
	v.AutomaticEnv()

	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	return v
}

func loadConfig() ConfigLoadResult {
	return loadConfigFromPath(getConfigPath())
}

func loadConfigFromPath(configPath string) ConfigLoadResult {
	result := ConfigLoadResult{
		Config:   defaultConfig(),
		Warnings: []string{},
		Status:   "OK",
	}

	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// Config file not found is not an error - use defaults
			result.Status = "Default"
		} else {
			slog.Warn("Invalid config file, using defaults", "path", configPath, "error", err)
			result.HasError = true
			result.Status = "Error"
			result.Warnings = append(result.Warnings, fmt.Sprintf("Invalid config file: %v", err))
			return result
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		slog.Warn("Invalid config values, using defaults", "path", configPath, "error", err)
		result.HasError = true
		result.Status = "Error"
		result.Warnings = append(result.Warnings, fmt.Sprintf("Invalid config values: %v", err))
		return result
	}

	result.Config = validateConfig(config, &result)
	return result
}

// validateConfig clamps out-of-range values and replaces invalid ones with
// defaults, recording a warning for each replacement that the user should
// know about
func validateConfig(config Config, result *ConfigLoadResult) Config {
	d := defaultConfig()
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		slog.Warn("Config warning", "detail", msg)
		result.Warnings = append(result.Warnings, msg)
		if result.Status != "Error" {
			result.Status = "Warning"
		}
	}

	if config.WindowWidth < minWidth {
		config.WindowWidth = defaultWidth
	}
	if config.WindowHeight < minHeight {
		config.WindowHeight = defaultHeight
	}

	if _, err := spread.ParseViewMode(config.ViewMode); err != nil {
		warn("%v, using %s", err, d.ViewMode)
		config.ViewMode = d.ViewMode
	}
	if _, err := spread.ParseDirection(config.ReadingDirection); err != nil {
		warn("%v, using %s", err, d.ReadingDirection)
		config.ReadingDirection = d.ReadingDirection
	}

	// Validate help font size (minimum 12px for readability)
	if config.HelpFontSize <= 12.0 {
		config.HelpFontSize = defaultHelpFontSize
	}

	if config.SortMethod < archive.SortNatural || config.SortMethod > archive.SortEntryOrder {
		config.SortMethod = archive.SortNatural
	}

	if config.PageGap < 0 {
		config.PageGap = 0
	} else if config.PageGap > maxPageGap {
		config.PageGap = maxPageGap
	}

	if config.CacheSize < 1 {
		config.CacheSize = d.CacheSize
	} else if config.CacheSize > maxCacheSize {
		config.CacheSize = maxCacheSize
	}

	if config.PreloadCount < 1 {
		config.PreloadCount = d.PreloadCount
	} else if config.PreloadCount > maxPreloadCount {
		config.PreloadCount = maxPreloadCount
	}

	if _, err := archive.NewFilter(config.IgnorePatterns); err != nil {
		warn("Ignore pattern errors: %v", err)
		config.IgnorePatterns = d.IgnorePatterns
	}

	if config.SettingsPath == "" {
		config.SettingsPath = d.SettingsPath
	}

	config.Keybindings = fillMissing(config.Keybindings, d.Keybindings)
	if err := validateKeybindings(config.Keybindings); err != nil {
		warn("Keybinding errors: %v", err)
		config.Keybindings = d.Keybindings
	}

	config.Mousebindings = fillMissing(config.Mousebindings, d.Mousebindings)
	if err := validateMousebindings(config.Mousebindings); err != nil {
		warn("Mouse binding errors: %v", err)
		config.Mousebindings = d.Mousebindings
	}

	if config.MouseSettings.WheelSensitivity <= 0 {
		config.MouseSettings.WheelSensitivity = d.MouseSettings.WheelSensitivity
	}
	if config.MouseSettings.DoubleClickTime <= 0 {
		config.MouseSettings.DoubleClickTime = d.MouseSettings.DoubleClickTime
	}
	if config.MouseSettings.WheelThrottleMs < 0 {
		config.MouseSettings.WheelThrottleMs = d.MouseSettings.WheelThrottleMs
	}
	if config.MouseSettings.ProgressBarHeight < 1 {
		config.MouseSettings.ProgressBarHeight = d.MouseSettings.ProgressBarHeight
	}

	return config
}

// fillMissing adds default bindings for actions the user did not configure
func fillMissing(bindings, defaults map[string][]string) map[string][]string {
	if bindings == nil {
		return defaults
	}
	for action, keys := range defaults {
		if _, exists := bindings[action]; !exists {
			bindings[action] = keys
		}
	}
	return bindings
}

// getSortMethodName returns the human-readable name of a sort method
func getSortMethodName(sortMethod int) string {
	return archive.GetSortStrategy(sortMethod).Name()
}

// archiveOptions builds the archive listing options for the configured
// sort method and ignore patterns
func (c Config) archiveOptions() archive.Options {
	filter, err := archive.NewFilter(c.IgnorePatterns)
	if err != nil {
		filter = archive.DefaultFilter()
	}
	return archive.Options{
		Sort:   archive.GetSortStrategy(c.SortMethod),
		Filter: filter,
	}
}

// initialLayout returns the configured starting view mode and direction
func (c Config) initialLayout() (spread.ViewMode, spread.Direction) {
	mode, _ := spread.ParseViewMode(c.ViewMode)
	dir, _ := spread.ParseDirection(c.ReadingDirection)
	return mode, dir
}
