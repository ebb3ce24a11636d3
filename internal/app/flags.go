package app

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/blackwell-systems/crashwatch/internal/config"
)

// modeFlag is one of the mutually exclusive run mode switches. All of them
// share a target, so the last one on the command line wins.
type modeFlag struct {
	target *config.RunMode
	mode   config.RunMode
}

func (f *modeFlag) String() string {
	if f.target == nil {
		return "false"
	}
	return strconv.FormatBool(*f.target == f.mode)
}

func (f *modeFlag) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if v {
		*f.target = f.mode
	}
	return nil
}

func (f *modeFlag) Type() string { return "bool" }

// helpFlag selects the help mode. It reports false to cobra so usage is
// printed through the run mode decision rather than by cobra itself.
type helpFlag struct {
	modeFlag
}

func (f *helpFlag) String() string { return "false" }

// styleFlag selects the output style; the last style flag wins.
type styleFlag struct {
	target *config.Style
	set    *bool
	style  config.Style
}

func (f *styleFlag) String() string {
	if f.target == nil {
		return "false"
	}
	return strconv.FormatBool(*f.set && *f.target == f.style)
}

func (f *styleFlag) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if v {
		*f.target = f.style
		*f.set = true
	}
	return nil
}

func (f *styleFlag) Type() string { return "bool" }

// channelFlag adds one channel to the selected set. Channel flags combine.
type channelFlag struct {
	target  *config.ChannelSet
	channel config.Channel
}

func (f *channelFlag) String() string {
	if f.target == nil {
		return "false"
	}
	return strconv.FormatBool(f.target.Has(f.channel))
}

func (f *channelFlag) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if v {
		*f.target = f.target.With(f.channel)
	}
	return nil
}

func (f *channelFlag) Type() string { return "bool" }

// switchVar registers a value-less switch.
func switchVar(fs *pflag.FlagSet, v pflag.Value, name, shorthand, usage string) {
	fl := fs.VarPF(v, name, shorthand, usage)
	fl.NoOptDefVal = "true"
	fl.DefValue = "false"
}

// flagAliases maps alternative flag names to their canonical name.
var flagAliases = map[string]string{
	"stop":   "kill",
	"dialog": "messagebox",
	"viewer": "notepad",
	"shell":  "powershell",
	"toast":  "notification",
	"raw":    "xml",
}

func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if canonical, ok := flagAliases[name]; ok {
		return pflag.NormalizedName(canonical)
	}
	return pflag.NormalizedName(name)
}

// normalizeArgs rewrites single-dash long flags such as -console to
// --console when known reports the name as a flag. Arguments after "--"
// are left alone.
func normalizeArgs(args []string, known func(name string) bool) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}
		if len(arg) > 2 && arg[0] == '-' && arg[1] != '-' {
			name, _, _ := strings.Cut(arg[1:], "=")
			if len(name) > 1 && known(name) {
				arg = "-" + arg
			}
		}
		out = append(out, arg)
	}
	return out
}
