package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/crashwatch/internal/config"
	"github.com/blackwell-systems/crashwatch/internal/console"
)

// loadConfig reads the config file and environment and applies the
// command line on top.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	dir := opts.configDir
	if dir == "" {
		d, err := config.Dir()
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to get config directory: %w", err)
		}
		dir = d
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return config.Config{}, err
	}
	return applyOptions(cfg, cmd, opts), nil
}

// applyOptions overlays command-line settings onto cfg. Channels are a
// union of both sources; everything else given on the command line wins.
func applyOptions(cfg config.Config, cmd *cobra.Command, opts *options) config.Config {
	cfg.Mode = opts.mode
	for _, ch := range opts.channels.Channels() {
		cfg.Channels = cfg.Channels.With(ch)
	}
	if cfg.Mode == config.ModeConsole {
		cfg.Channels = cfg.Channels.With(config.ChannelConsole)
	}
	if opts.styleSet {
		cfg.Style = opts.style
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if flags.Changed("spool-dir") {
		cfg.SpoolDir = opts.spoolDir
	}
	if flags.Changed("state-dir") {
		cfg.StateDir = opts.stateDir
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	cfg.DetachedChild = opts.detachedChild
	return cfg
}

// report prints a one-line outcome where the user can see it.
func report(cmd *cobra.Command, msg string) error {
	if err := console.Attach(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), msg)
	return err
}
