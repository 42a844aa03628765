// Package cmd implements the fintrack command line.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/fintrack"
	"github.com/etnz/fintrack/config"
	"github.com/etnz/fintrack/server"
	"github.com/etnz/fintrack/store"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&recalcCmd{}, "engine")
	c.Register(&serveCmd{}, "engine")
	c.Register(&reportCmd{}, "reports")
	c.Register(&importCmd{}, "data")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFiles = flag.String("config", "fintrack.toml", "Comma separated TOML configuration files, later ones override earlier ones")

// app is what a subcommand works with.
type app struct {
	config *config.Config
	logger *zap.Logger
	store  store.Store
}

// openApp loads the configuration, builds the logger and opens the store.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(strings.Split(*configFiles, ",")...)
	if err != nil {
		return nil, err
	}
	logger, err := server.NewLogger(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	s, err := cfg.OpenStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s store: %w", cfg.Store.Driver, err)
	}
	logger.Debug("store opened", zap.String("driver", cfg.Store.Driver))
	return &app{config: cfg, logger: logger, store: s}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("cannot close store", zap.Error(err))
	}
	a.logger.Sync()
}

func (a *app) engine() (*fintrack.Engine, error) {
	settings, err := a.config.Settings()
	if err != nil {
		return nil, err
	}
	return fintrack.NewEngine(a.store, settings, fintrack.WithLogger(a.logger))
}

// printMarkdown renders md for the terminal, or prints it raw when it cannot.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}
