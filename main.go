package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"mekuri/internal/log"
	"mekuri/internal/settings"
	"mekuri/internal/spread"
)

var (
	cfgFile      string
	settingsFile string
	logLevel     string
	logFile      string
	singleMode   bool
	leftToRight  bool
)

var rootCmd = &cobra.Command{
	Use:   "mekuri [file]",
	Short: "Two-page spread viewer for comic archives and PDFs",
	Long: `mekuri shows zip/cbz, rar/cbr, 7z/cb7 archives and PDFs as two-page
spreads, right to left by default. The cover is shown alone.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runViewer,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mekuri.json)")
	rootCmd.Flags().StringVar(&settingsFile, "settings", "", "settings store (default is $HOME/.mekuri/settings.json)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from MEKURI_LOG_LEVEL)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "also write JSON logs to this rotating file")
	rootCmd.Flags().BoolVar(&singleMode, "single", false, "start in single page mode")
	rootCmd.Flags().BoolVar(&leftToRight, "ltr", false, "start with left-to-right reading")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "mekuri:", err)
		os.Exit(1)
	}
}

// debugLog logs a formatted debug message
func debugLog(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...))
}

func runViewer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logOpts := log.FromEnv()
	if logLevel != "" {
		logOpts.Level = logLevel
	}
	if logFile != "" {
		logOpts.File = logFile
	}
	logger := log.Init(logOpts).With("session", uuid.NewString())
	defer log.Close()

	var cfg ConfigLoadResult
	if cfgFile != "" {
		cfg = loadConfigFromPath(cfgFile)
	} else {
		cfg = loadConfig()
	}
	logger.Debug("Config loaded", "status", cfg.Status, "warnings", len(cfg.Warnings))

	storePath := cfg.Config.SettingsPath
	if settingsFile != "" {
		storePath = settingsFile
	}
	store := settings.NewFileStore(storePath)

	mode, dir := startLayout(ctx, cmd, cfg.Config, store, logger)

	if err := InitGraphics(); err != nil {
		return fmt.Errorf("initializing graphics: %w", err)
	}

	g, err := NewGame(ctx, cfg, GameOptions{
		Store:     store,
		Mode:      mode,
		Direction: dir,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.Open(args[0]); err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}

	w, h := startWindowSize(ctx, cfg.Config, store, logger)
	debugLog("Window size %dx%d", w, h)
	g.lastWinW, g.lastWinH = w, h

	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(cfg.Config.Fullscreen)
	ebiten.SetScreenClearedEveryFrame(false)

	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

// startLayout picks the initial view mode and direction: flags win over
// stored preferences, which win over the config file
func startLayout(ctx context.Context, cmd *cobra.Command, cfg Config, store settings.Store, logger *slog.Logger) (spread.ViewMode, spread.Direction) {
	mode, dir := cfg.initialLayout()

	prefs, err := store.GetViewerPreferences(ctx)
	if err != nil {
		logger.Warn("Failed to read viewer preferences", "error", err)
	} else {
		if prefs.Mode != nil {
			mode = *prefs.Mode
		}
		if prefs.Direction != nil {
			dir = *prefs.Direction
		}
	}

	if cmd.Flags().Changed("single") {
		mode = spread.ModeSpread
		if singleMode {
			mode = spread.ModeSingle
		}
	}
	if cmd.Flags().Changed("ltr") {
		dir = spread.RTL
		if leftToRight {
			dir = spread.LTR
		}
	}
	return mode, dir
}

// startWindowSize returns the persisted window size, or the configured one
// when the store cannot be read
func startWindowSize(ctx context.Context, cfg Config, store settings.Store, logger *slog.Logger) (int, int) {
	ws, err := store.GetViewerWindow(ctx)
	if err != nil {
		logger.Warn("Failed to read window size", "error", err)
		return cfg.WindowWidth, cfg.WindowHeight
	}
	return ws.Width, ws.Height
}
