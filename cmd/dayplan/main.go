package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dayplan/internal/config"
	"dayplan/internal/ics"
	appLog "dayplan/internal/log"
	"dayplan/internal/store"
)

const version = "0.1.0"

// app carries what every command needs after flag parsing.
type app struct {
	configPath string
	envFile    string
	owner      string
	logLevel   string
	logFormat  string

	cfg *config.Config
	out io.Writer
}

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:          "dayplan",
		Short:        "Tasks, reminders and notes on a calendar",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "./dayplan.yaml", "path to config file (created with defaults if missing)")
	flags.StringVar(&a.envFile, "env", ".env", "optional .env file with DAYPLAN_* overrides")
	flags.StringVar(&a.owner, "owner", "", "owner id (overrides config)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flags.StringVar(&a.logFormat, "log-format", "json", "json or console")

	root.AddCommand(
		serveCmd(a),
		addCmd(a),
		listCmd(a),
		dayCmd(a),
		gridCmd(a),
		doneCmd(a),
		rmCmd(a),
		exportCmd(a),
		importCmd(a),
		captureCmd(a),
	)
	return root
}

// load reads the config, applies env and flag overrides and configures
// logging.
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(a.envFile); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	if a.owner != "" {
		cfg.Owner = a.owner
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	if a.logFormat == "console" {
		appLog.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	appLog.Debug("effective config",
		"config_path", a.configPath,
		"listen", cfg.Listen,
		"week_start", cfg.WeekStart,
		"owner", cfg.Owner,
		"db_driver", cfg.Database.Driver,
		"refresh", cfg.RefreshCron,
		"feeds", len(cfg.Feeds),
	)
	return nil
}

func (a *app) openStore() (*store.Store, error) {
	st, err := store.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func (a *app) feeds() []ics.Feed {
	out := make([]ics.Feed, 0, len(a.cfg.Feeds))
	for _, f := range a.cfg.Feeds {
		if f.URL == "" {
			continue
		}
		out = append(out, ics.Feed{ID: f.ID, URL: f.URL, Owner: f.Owner})
	}
	return out
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
