// Package cli implements the callcache command line.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/charlesng35/callcache/internal/app"
	"github.com/charlesng35/callcache/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "text" | "json" | "yaml"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the callcache CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "callcache",
		Short: "Instrumented value cache and expiring page cache",
		Long: `callcache stores values under generated keys while recording every call,
replays that call history, and serves web pages through a short-lived cache
with per-URL access counters. Redis, SQL databases and an in-process map can
back the store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration directory or file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewStoreCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewPageCommand(opts))
	cmd.AddCommand(NewFlushCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads configuration and initialises logging. One-shot commands log to stderr
// in console form; serve logs JSON.
func (o *RootOptions) loadConfig(console bool) (*app.Config, error) {
	cfg, err := loadApplicationConfig(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load configuration", err)
	}

	level := strings.TrimSpace(o.LogLevel)
	if level == "" {
		level = cfg.Server.LogLevel
		if console {
			level = "warn"
		}
	}

	if console {
		err = logger.InitWithOptions(logger.Options{Level: level, Console: true})
	} else {
		err = app.ConfigureLogging(level)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "configure logging", err)
	}
	return cfg, nil
}

// withRuntime runs fn against a freshly bootstrapped stack and shuts it down afterwards.
func (o *RootOptions) withRuntime(ctx context.Context, fn func(ctx context.Context, stack *runtimeStack) error) error {
	cfg, err := o.loadConfig(true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	stack, err := bootstrapRuntime(ctx, cfg, runtimeOptions{})
	if err != nil {
		return WrapExitError(ExitCommandError, "initialise store", err)
	}
	defer func() { _ = stack.Shutdown(context.Background()) }()

	return fn(ctx, stack)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
