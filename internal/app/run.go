package app

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/crashwatch/internal/config"
	"github.com/blackwell-systems/crashwatch/internal/console"
	"github.com/blackwell-systems/crashwatch/internal/eventlog"
	"github.com/blackwell-systems/crashwatch/internal/instance"
	"github.com/blackwell-systems/crashwatch/internal/logger"
	"github.com/blackwell-systems/crashwatch/internal/metrics"
	"github.com/blackwell-systems/crashwatch/internal/output"
	"github.com/blackwell-systems/crashwatch/internal/watcher"
)

// WaitingMessage is printed in console mode whenever the watcher goes
// back to waiting.
const WaitingMessage = "Waiting, press any key to exit."

// startTimeout bounds how long --silent waits for the background process
// to take the instance token.
var startTimeout = 5 * time.Second

func runRoot(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	log, closer, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	reg := opts.registry(cfg)
	decision, err := instance.NewController(reg).DetermineRunMode(cfg.Mode)
	if err != nil {
		log.Error().Err(err).Msg("run mode decision failed")
		return err
	}
	log.Debug().
		Str("mode", cfg.Mode.String()).
		Str("channels", cfg.Channels.String()).
		Str("style", cfg.Style.String()).
		Msg("run mode decided")

	switch decision.Outcome {
	case instance.OutcomeHelp:
		if err := console.Attach(); err != nil {
			return err
		}
		return cmd.Help()
	case instance.OutcomeStopped, instance.OutcomeNotRunning, instance.OutcomeAlreadyRunning:
		return report(cmd, decision.Message)
	}

	if cfg.Mode == config.ModeSilent && !cfg.DetachedChild {
		return startBackground(cmd, cfg, reg, opts.configDir)
	}

	if cfg.Mode == config.ModeConsole {
		if err := console.Attach(); err != nil {
			return err
		}
	}
	if err := runWatcher(cmd.OutOrStdout(), cfg, log); err != nil {
		log.Error().Err(err).Msg("watcher stopped")
		return err
	}
	return nil
}

// startBackground spawns the detached watcher and waits until it holds
// the instance token.
func startBackground(cmd *cobra.Command, cfg config.Config, reg instance.Registry, configDir string) error {
	pid, err := watcher.SpawnDetached(childArgs(cfg, configDir))
	if err != nil {
		return err
	}

	deadline := time.Now().Add(startTimeout)
	for {
		h, err := reg.Open()
		if err == nil {
			h.Close()
			break
		}
		if !errors.Is(err, instance.ErrNotRunning) {
			return fmt.Errorf("failed to check background process: %w", err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("background process %d did not start, see %s", pid, cfg.LogFile())
		}
		time.Sleep(50 * time.Millisecond)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "crashwatch is running in the background (pid %d)\n", pid)
	fmt.Fprintf(out, "  Log file: %s\n", cfg.LogFile())
	fmt.Fprintf(out, "\nTo stop: crashwatch --kill\n")
	return nil
}

// childArgs returns the command line of the background process. Settings
// are passed resolved so the child does not depend on the order of the
// parent's flags.
func childArgs(cfg config.Config, configDir string) []string {
	args := []string{"--silent", "--detached-child"}
	if configDir != "" {
		args = append(args, "--config="+configDir)
	}
	for _, ch := range cfg.Channels.Channels() {
		switch ch {
		case config.ChannelDialog:
			args = append(args, "--messagebox")
		case config.ChannelViewer:
			args = append(args, "--notepad")
		case config.ChannelShell:
			args = append(args, "--powershell")
		case config.ChannelToast:
			args = append(args, "--notification")
		}
	}
	if cfg.Style == config.StyleRaw {
		args = append(args, "--xml")
	} else {
		args = append(args, "--text")
	}
	args = append(args,
		"--state-dir="+cfg.StateDir,
		"--spool-dir="+cfg.SpoolDir,
		"--log-file="+cfg.LogFile(),
	)
	if cfg.Log.Level != "" {
		args = append(args, "--log-level="+cfg.Log.Level)
	}
	if cfg.MetricsAddr != "" {
		args = append(args, "--metrics-addr="+cfg.MetricsAddr)
	}
	return args
}

// runWatcher becomes the instance and runs the wait loop until stopped.
func runWatcher(stdout io.Writer, cfg config.Config, log zerolog.Logger) (err error) {
	inst, err := instance.Acquire(cfg)
	if errors.Is(err, instance.ErrAlreadyRunning) {
		fmt.Fprintln(stdout, instance.MsgAlreadyRunning)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create instance token: %w", err)
	}
	defer inst.Close()
	log.Info().Str("instance", inst.Describe()).Msg("watcher started")

	if cfg.MetricsAddr != "" {
		srv, err := metrics.Serve(cfg.MetricsAddr)
		if err != nil {
			return err
		}
		defer srv.Close()
		log.Info().Str("addr", srv.Addr()).Msg("serving metrics")
	}

	platform := output.DefaultPlatform()
	if cfg.Channels.Has(config.ChannelToast) {
		if err := platform.Notifier.Register(); err != nil {
			return fmt.Errorf("failed to register notifications: %w", err)
		}
		defer func() {
			if cerr := platform.Notifier.Cleanup(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("failed to clean up notifications: %w", cerr))
			}
		}()
	}

	dispatcher, err := output.NewDispatcher(cfg.Channels, cfg.Style,
		output.Sinks(cfg.Channels, stdout, platform, log), log)
	if err != nil {
		return err
	}

	sub, err := eventlog.Subscribe(eventlog.CrashQuery, eventlog.Options{SpoolDir: cfg.SpoolDir})
	if err != nil {
		return fmt.Errorf("failed to subscribe to event log: %w", err)
	}
	defer sub.Close()

	var in *console.Input
	idle := func() {}
	if cfg.Mode == config.ModeConsole {
		in, err = console.Open()
		if err != nil {
			return err
		}
		defer in.Close()
		idle = func() { fmt.Fprintln(stdout, WaitingMessage) }
	}

	log.Info().
		Str("channels", cfg.Channels.String()).
		Str("style", cfg.Style.String()).
		Msg("waiting for crash records")

	loop := watcher.NewLoop(watcher.NewWaiter(inst, sub, in), sub, dispatcher,
		watcher.WithLogger(log),
		watcher.WithIdle(idle))
	return loop.Run()
}
