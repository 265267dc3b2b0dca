package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/yildizm/LogoMatch/internal/config"
	"github.com/yildizm/LogoMatch/internal/engine"
	"github.com/yildizm/LogoMatch/internal/formatter"
	"github.com/yildizm/LogoMatch/internal/logger"
	"github.com/yildizm/LogoMatch/internal/ui"
)

// loadConfig resolves the effective configuration: files and env
// first, then command-line flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader().LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if noColor {
		cfg.Output.ColorMode = "never"
	}
	if outputFmt != "" {
		cfg.Output.DefaultFormat = outputFmt
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New("cli", func() bool { return cfg.Output.Verbose })
}

func newEngine(cfg *config.Config, log *logger.Logger) (*engine.Engine, error) {
	return engine.New(cfg, log)
}

// colorEnabled resolves the color mode against the environment
func colorEnabled(cfg *config.Config) bool {
	switch cfg.Output.ColorMode {
	case "always":
		return true
	case "never":
		return false
	default:
		return os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb"
	}
}

// writeReport renders a report with the configured formatter
func writeReport(cfg *config.Config, report *formatter.Report) error {
	f, err := formatter.New(cfg.Output.DefaultFormat, colorEnabled(cfg))
	if err != nil {
		return err
	}
	report.GeneratedAt = time.Now()
	out, err := f.Format(report)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}

// attachProgress installs a progress bar when the output is a plain
// text terminal. Returns a finish func; always safe to call.
func attachProgress(cfg *config.Config, e *engine.Engine) func() {
	if !cfg.Output.ShowProgress || cfg.Output.DefaultFormat != "text" && cfg.Output.DefaultFormat != "" {
		return func() {}
	}
	bar := ui.NewProgressBar(os.Stderr)
	e.SetProgress(bar.Update)
	return bar.Finish
}

// signalContext returns a context canceled on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fileExists(path string) bool {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// statsReport assembles the combined engine + cache stats section
func statsReport(e *engine.Engine) (*formatter.StatsReport, error) {
	cacheStats, err := e.CacheStats()
	if err != nil {
		return nil, fmt.Errorf("reading cache stats: %w", err)
	}
	return &formatter.StatsReport{Engine: e.Stats(), Cache: cacheStats}, nil
}
