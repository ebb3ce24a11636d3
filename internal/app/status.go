package app

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/crashwatch/internal/config"
	"github.com/blackwell-systems/crashwatch/internal/instance"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether a watcher is running",
		Long: `Display whether a crashwatch watcher is running for this user, and where
it keeps its state.

Shows:
  • Watcher running status (and PID where known)
  • Config, state and log locations
  • The spool directory used where there is no system event log`,
		Example: `  # Check status
  crashwatch status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts)
		},
	}
}

func runStatus(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	running, who, err := probe(opts.registry(cfg))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if running {
		fmt.Fprintf(out, "Watcher:      running (%s)\n", who)
	} else {
		fmt.Fprintf(out, "Watcher:      not running\n")
	}

	configDir := opts.configDir
	if configDir == "" {
		if d, err := config.Dir(); err == nil {
			configDir = d
		}
	}
	fmt.Fprintf(out, "Config dir:   %s\n", configDir)
	fmt.Fprintf(out, "State dir:    %s\n", cfg.StateDir)
	fmt.Fprintf(out, "Log file:     %s\n", cfg.LogFile())
	if runtime.GOOS != "windows" {
		fmt.Fprintf(out, "Spool dir:    %s\n", cfg.SpoolDir)
	}
	return nil
}

// probe opens the instance token without signaling it.
func probe(reg instance.Registry) (bool, string, error) {
	h, err := reg.Open()
	if errors.Is(err, instance.ErrNotRunning) {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("failed to check watcher status: %w", err)
	}
	defer h.Close()
	return true, h.Describe(), nil
}
