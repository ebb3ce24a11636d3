package app

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/blackwell-systems/crashwatch/internal/config"
	"github.com/blackwell-systems/crashwatch/internal/instance"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Use != "crashwatch" {
		t.Errorf("expected Use to be 'crashwatch', got '%s'", cmd.Use)
	}
	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}
	if cmd.Long == "" {
		t.Error("expected Long description to be set")
	}
	if cmd.Example == "" {
		t.Error("expected Example to be set")
	}
	if cmd.RunE == nil {
		t.Error("expected RunE to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	found := map[string]bool{}
	for _, c := range NewRootCmd().Commands() {
		found[c.Use] = true
	}
	if !found["status"] {
		t.Error("expected command 'status' to be registered")
	}
}

func TestRootCommandFlags(t *testing.T) {
	tests := []struct {
		name       string
		persistent bool
		hidden     bool
	}{
		{"console", false, false},
		{"silent", false, false},
		{"kill", false, false},
		{"help", false, false},
		{"messagebox", false, false},
		{"notepad", false, false},
		{"powershell", false, false},
		{"notification", false, false},
		{"text", false, false},
		{"xml", false, false},
		{"detached-child", false, true},
		{"config", true, false},
		{"log-level", true, false},
		{"log-file", true, false},
		{"spool-dir", true, false},
		{"state-dir", true, false},
		{"metrics-addr", true, false},
	}

	cmd := NewRootCmd()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := cmd.Flags()
			if tt.persistent {
				fs = cmd.PersistentFlags()
			}
			flag := fs.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected --%s flag to be registered", tt.name)
			}
			if flag.Hidden != tt.hidden {
				t.Errorf("--%s hidden = %v, want %v", tt.name, flag.Hidden, tt.hidden)
			}
			if flag.Usage == "" {
				t.Errorf("expected --%s flag to have usage text", tt.name)
			}
		})
	}
}

func TestFlagParsing(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantMode     config.RunMode
		wantChannels config.ChannelSet
		wantStyle    config.Style
		wantStyleSet bool
	}{
		{
			name:     "defaults",
			args:     nil,
			wantMode: config.ModeConsole,
		},
		{
			name:     "mode last wins",
			args:     []string{"--kill", "--silent"},
			wantMode: config.ModeSilent,
		},
		{
			name:     "help then console",
			args:     []string{"--help", "--console"},
			wantMode: config.ModeConsole,
		},
		{
			name:     "console then help",
			args:     []string{"--console", "-h"},
			wantMode: config.ModeHelp,
		},
		{
			name:     "stop alias",
			args:     []string{"--stop"},
			wantMode: config.ModeKill,
		},
		{
			name:         "channels combine",
			args:         []string{"--messagebox", "--notification", "--dialog"},
			wantMode:     config.ModeConsole,
			wantChannels: config.NewChannelSet(config.ChannelDialog, config.ChannelToast),
		},
		{
			name:         "channel aliases",
			args:         []string{"--viewer", "--shell", "--toast"},
			wantMode:     config.ModeConsole,
			wantChannels: config.NewChannelSet(config.ChannelViewer, config.ChannelShell, config.ChannelToast),
		},
		{
			name:         "style last wins",
			args:         []string{"--xml", "--text"},
			wantMode:     config.ModeConsole,
			wantStyle:    config.StyleStructured,
			wantStyleSet: true,
		},
		{
			name:         "raw alias",
			args:         []string{"--text", "--raw"},
			wantMode:     config.ModeConsole,
			wantStyle:    config.StyleRaw,
			wantStyleSet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, opts := newRootCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags(%v) error = %v", tt.args, err)
			}
			if opts.mode != tt.wantMode {
				t.Errorf("mode = %v, want %v", opts.mode, tt.wantMode)
			}
			if opts.channels != tt.wantChannels {
				t.Errorf("channels = %v, want %v", opts.channels, tt.wantChannels)
			}
			if opts.style != tt.wantStyle {
				t.Errorf("style = %v, want %v", opts.style, tt.wantStyle)
			}
			if opts.styleSet != tt.wantStyleSet {
				t.Errorf("styleSet = %v, want %v", opts.styleSet, tt.wantStyleSet)
			}

			// cobra must never see help as set; usage is printed by runRoot.
			if help, err := cmd.Flags().GetBool("help"); err != nil || help {
				t.Errorf("GetBool(help) = %v, %v; want false, nil", help, err)
			}
		})
	}
}

func TestFlagParsing_UnknownFlag(t *testing.T) {
	cmd, _ := newRootCmd()
	if err := cmd.ParseFlags([]string{"--bogus"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestNormalizeArgs(t *testing.T) {
	known := knownFlag(NewRootCmd())
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"-console", "-messagebox"}, []string{"--console", "--messagebox"}},
		{[]string{"-kill"}, []string{"--kill"}},
		{[]string{"-help"}, []string{"--help"}},
		{[]string{"-h"}, []string{"-h"}},
		{[]string{"-xml", "-raw"}, []string{"--xml", "--raw"}},
		{[]string{"-state-dir=/tmp/x"}, []string{"--state-dir=/tmp/x"}},
		{[]string{"--silent"}, []string{"--silent"}},
		{[]string{"-bogus"}, []string{"-bogus"}},
		{[]string{"status", "-state-dir", "/tmp/x"}, []string{"status", "--state-dir", "/tmp/x"}},
		{[]string{"--", "-console"}, []string{"--", "-console"}},
	}

	for _, tt := range tests {
		got := normalizeArgs(tt.in, known)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("normalizeArgs(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestApplyOptions(t *testing.T) {
	t.Run("console adds console channel", func(t *testing.T) {
		cmd, opts := newRootCmd()
		if err := cmd.ParseFlags([]string{"--notification"}); err != nil {
			t.Fatal(err)
		}
		cfg := applyOptions(config.Config{Channels: config.NewChannelSet(config.ChannelDialog)}, cmd, opts)
		want := config.NewChannelSet(config.ChannelConsole, config.ChannelDialog, config.ChannelToast)
		if cfg.Channels != want {
			t.Errorf("Channels = %v, want %v", cfg.Channels, want)
		}
	})

	t.Run("silent keeps channels as given", func(t *testing.T) {
		cmd, opts := newRootCmd()
		if err := cmd.ParseFlags([]string{"--silent", "--notification"}); err != nil {
			t.Fatal(err)
		}
		cfg := applyOptions(config.Config{}, cmd, opts)
		if cfg.Channels != config.NewChannelSet(config.ChannelToast) {
			t.Errorf("Channels = %v, want toast", cfg.Channels)
		}
	})

	t.Run("style flag overrides file", func(t *testing.T) {
		cmd, opts := newRootCmd()
		if err := cmd.ParseFlags([]string{"--xml"}); err != nil {
			t.Fatal(err)
		}
		cfg := applyOptions(config.Config{Style: config.StyleStructured}, cmd, opts)
		if cfg.Style != config.StyleRaw {
			t.Errorf("Style = %v, want raw", cfg.Style)
		}
	})

	t.Run("file style kept without flag", func(t *testing.T) {
		cmd, opts := newRootCmd()
		cfg := applyOptions(config.Config{Style: config.StyleRaw}, cmd, opts)
		if cfg.Style != config.StyleRaw {
			t.Errorf("Style = %v, want raw", cfg.Style)
		}
	})

	t.Run("path flags", func(t *testing.T) {
		cmd, opts := newRootCmd()
		if err := cmd.ParseFlags([]string{"--state-dir", "/s", "--log-level", "debug", "--detached-child"}); err != nil {
			t.Fatal(err)
		}
		cfg := applyOptions(config.Config{StateDir: "/old", SpoolDir: "/spool"}, cmd, opts)
		if cfg.StateDir != "/s" || cfg.SpoolDir != "/spool" || cfg.Log.Level != "debug" || !cfg.DetachedChild {
			t.Errorf("unexpected config %+v", cfg)
		}
	})
}

func TestChildArgs(t *testing.T) {
	cfg := config.Config{
		Mode:        config.ModeSilent,
		Channels:    config.NewChannelSet(config.ChannelViewer, config.ChannelToast),
		Style:       config.StyleRaw,
		StateDir:    "/state",
		SpoolDir:    "/spool",
		Log:         config.LogConfig{Level: "debug"},
		MetricsAddr: "127.0.0.1:9464",
	}
	got := childArgs(cfg, "/cfg")
	want := []string{
		"--silent", "--detached-child", "--config=/cfg",
		"--notepad", "--notification", "--xml",
		"--state-dir=/state", "--spool-dir=/spool", "--log-file=" + filepath.Join("/state", "crashwatch.log"),
		"--log-level=debug", "--metrics-addr=127.0.0.1:9464",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("childArgs() =\n%v\nwant\n%v", got, want)
	}

	// The child must parse its own arguments back to the same settings.
	cmd, opts := newRootCmd()
	if err := cmd.ParseFlags(got); err != nil {
		t.Fatalf("ParseFlags(childArgs) error = %v", err)
	}
	if opts.mode != config.ModeSilent || !opts.detachedChild || opts.style != config.StyleRaw {
		t.Errorf("child options = %+v", opts)
	}
	if opts.channels != cfg.Channels {
		t.Errorf("child channels = %v, want %v", opts.channels, cfg.Channels)
	}
}

// fakeRegistry reports a running watcher and counts signals.
type fakeRegistry struct {
	running bool
	signals int
}

func (r *fakeRegistry) Open() (instance.Handle, error) {
	if !r.running {
		return nil, instance.ErrNotRunning
	}
	return fakeHandle{r}, nil
}

type fakeHandle struct{ r *fakeRegistry }

func (h fakeHandle) Signal() error {
	h.r.signals++
	return nil
}

func (h fakeHandle) Describe() string { return "pid 4242" }

func (h fakeHandle) Close() error { return nil }

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
}

func execute(t *testing.T, reg *fakeRegistry, args ...string) string {
	t.Helper()
	cmd, opts := newRootCmd()
	if reg != nil {
		opts.registry = func(config.Config) instance.Registry { return reg }
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--state-dir", t.TempDir()))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute(%v) error = %v", args, err)
	}
	return out.String()
}

func TestExecute_KillWithoutWatcher(t *testing.T) {
	isolate(t)
	for i := 0; i < 2; i++ {
		got := execute(t, nil, "--kill")
		if got != instance.MsgNotRunning+"\n" {
			t.Errorf("call %d: output = %q, want %q", i, got, instance.MsgNotRunning)
		}
	}
}

func TestExecute_KillRunningWatcher(t *testing.T) {
	isolate(t)
	reg := &fakeRegistry{running: true}
	got := execute(t, reg, "--kill")
	if got != instance.MsgStopped+"\n" {
		t.Errorf("output = %q, want %q", got, instance.MsgStopped)
	}
	if reg.signals != 1 {
		t.Errorf("signals = %d, want 1", reg.signals)
	}
}

func TestExecute_StartWhileRunning(t *testing.T) {
	isolate(t)
	for _, mode := range []string{"--console", "--silent"} {
		reg := &fakeRegistry{running: true}
		got := execute(t, reg, mode)
		if got != instance.MsgAlreadyRunning+"\n" {
			t.Errorf("%s: output = %q, want %q", mode, got, instance.MsgAlreadyRunning)
		}
		if reg.signals != 0 {
			t.Errorf("%s: signals = %d, want 0", mode, reg.signals)
		}
	}
}

func TestExecute_Help(t *testing.T) {
	isolate(t)
	reg := &fakeRegistry{running: true}
	got := execute(t, reg, "--console", "--help")
	if !strings.Contains(got, "crashwatch watches the system event log") {
		t.Errorf("help output missing description:\n%s", got)
	}
	if reg.signals != 0 {
		t.Errorf("help signaled the watcher")
	}
}

func TestExecute_Status(t *testing.T) {
	isolate(t)

	got := execute(t, nil, "status")
	if !strings.Contains(got, "Watcher:      not running") {
		t.Errorf("status output = %q", got)
	}

	got = execute(t, &fakeRegistry{running: true}, "status")
	if !strings.Contains(got, "Watcher:      running (pid 4242)") {
		t.Errorf("status output = %q", got)
	}
}
