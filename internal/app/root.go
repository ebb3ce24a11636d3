package app

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blackwell-systems/crashwatch/internal/config"
	"github.com/blackwell-systems/crashwatch/internal/instance"
)

// options collects everything the command line sets.
type options struct {
	mode     config.RunMode
	channels config.ChannelSet
	style    config.Style
	styleSet bool

	configDir     string
	logLevel      string
	logFile       string
	spoolDir      string
	stateDir      string
	metricsAddr   string
	detachedChild bool

	// registry opens the instance token; replaced in tests.
	registry func(config.Config) instance.Registry
}

// RootCmd is the root command for crashwatch
var RootCmd = NewRootCmd()

// NewRootCmd returns a fresh crashwatch command tree.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *options) {
	opts := &options{registry: instance.DefaultRegistry}

	cmd := &cobra.Command{
		Use:   "crashwatch",
		Short: "Notify about application crashes as they are logged",
		Long: `crashwatch watches the system event log for application crash records
(channel Application, level Error) and reports each new one through the
selected output channels.

Only one watcher runs per user. Starting a second one reports the running
instance; --kill asks the running instance to stop.

Run modes (the last one given wins):
  --console   Watch in this terminal; any key stops (default)
  --silent    Watch in the background
  --kill      Stop the running watcher
  --help      Print this help

Output channels (combine freely; --console mode always includes the console):
  --messagebox    Show a modal dialog per crash
  --notepad       Open each crash in a text viewer
  --powershell    Open each crash in a shell window
  --notification  Post a notification with the key fields

Output style (the last one given wins):
  --text  Named fields, one per line (default)
  --xml   The record's XML as logged

Single-dash forms such as -console are accepted too.`,
		Example: `  # Watch in this terminal
  crashwatch

  # Watch in the background with notifications
  crashwatch --silent --notification

  # Stop the background watcher
  crashwatch --kill

  # Raw XML in a dialog and the console
  crashwatch -console -messagebox -xml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts)
		},
	}

	cmd.SetGlobalNormalizationFunc(normalizeFlagName)

	fs := cmd.Flags()
	switchVar(fs, &modeFlag{target: &opts.mode, mode: config.ModeConsole}, "console", "", "watch in this terminal; any key stops")
	switchVar(fs, &modeFlag{target: &opts.mode, mode: config.ModeSilent}, "silent", "", "watch in the background")
	switchVar(fs, &modeFlag{target: &opts.mode, mode: config.ModeKill}, "kill", "", "stop the running watcher (alias --stop)")
	switchVar(fs, &helpFlag{modeFlag{target: &opts.mode, mode: config.ModeHelp}}, "help", "h", "print this help")

	switchVar(fs, &channelFlag{target: &opts.channels, channel: config.ChannelDialog}, "messagebox", "", "show a modal dialog (alias --dialog)")
	switchVar(fs, &channelFlag{target: &opts.channels, channel: config.ChannelViewer}, "notepad", "", "open a text viewer (alias --viewer)")
	switchVar(fs, &channelFlag{target: &opts.channels, channel: config.ChannelShell}, "powershell", "", "open a shell window (alias --shell)")
	switchVar(fs, &channelFlag{target: &opts.channels, channel: config.ChannelToast}, "notification", "", "post a notification (alias --toast)")

	switchVar(fs, &styleFlag{target: &opts.style, set: &opts.styleSet, style: config.StyleStructured}, "text", "", "print named fields")
	switchVar(fs, &styleFlag{target: &opts.style, set: &opts.styleSet, style: config.StyleRaw}, "xml", "", "print raw XML (alias --raw)")

	fs.BoolVar(&opts.detachedChild, "detached-child", false, "internal flag for the background process")
	fs.MarkHidden("detached-child")

	pfs := cmd.PersistentFlags()
	pfs.StringVar(&opts.configDir, "config", "", "config directory (default: $XDG_CONFIG_HOME/crashwatch)")
	pfs.StringVar(&opts.logLevel, "log-level", "", "diagnostic log level: debug, info, warn, error")
	pfs.StringVar(&opts.logFile, "log-file", "", "background log file (default: ~/.crashwatch/crashwatch.log)")
	pfs.StringVar(&opts.spoolDir, "spool-dir", "", "directory watched for record files where there is no system event log")
	pfs.StringVar(&opts.stateDir, "state-dir", "", "runtime state directory (default: ~/.crashwatch)")
	pfs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")

	cmd.SuggestionsMinimumDistance = 2
	cmd.AddCommand(newStatusCmd(opts))

	return cmd, opts
}

// Execute runs the root command
func Execute() error {
	RootCmd.SetArgs(normalizeArgs(os.Args[1:], knownFlag(RootCmd)))
	return RootCmd.Execute()
}

// knownFlag reports whether name is a long flag of cmd or its subcommands.
func knownFlag(cmd *cobra.Command) func(string) bool {
	sets := []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()}
	for _, sub := range cmd.Commands() {
		sets = append(sets, sub.Flags())
	}
	return func(name string) bool {
		for _, fs := range sets {
			if fs.Lookup(name) != nil {
				return true
			}
		}
		return false
	}
}
