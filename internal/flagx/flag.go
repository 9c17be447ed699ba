// Package flagx lets several loaders share one command line: each loader
// picks out the flags it owns and parses only those.
package flagx

import (
	"flag"
	"strings"
)

type boolFlag interface {
	IsBoolFlag() bool
}

// Own returns the arguments that belong to flags defined on fs, with their
// values, in command-line order. Both -name and --name are recognised, as
// well as the name=value form. A flag that is not boolean takes the
// following argument as its value unless that argument is itself a flag.
// Scanning stops at a bare "--".
func Own(fs *flag.FlagSet, args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			continue
		}

		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		out = append(out, arg)
		if hasValue {
			continue
		}
		if b, ok := f.Value.(boolFlag); ok && b.IsBoolFlag() {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ParseOwn parses into fs only the arguments Own selects. Everything else
// on the command line is left for other loaders.
func ParseOwn(fs *flag.FlagSet, args []string) error {
	return fs.Parse(Own(fs, args))
}

// JSONConfigPath extracts the config file path given with -c or -config.
// An empty string means no JSON file was requested.
func JSONConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = ParseOwn(fs, args)

	return path
}
