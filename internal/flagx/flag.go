// Package flagx lets several independent parsers share one command line.
// Each component keeps only the flags it declares and parses them with its
// own flag.FlagSet, so unknown flags belonging to others never cause errors.
package flagx

import (
	"flag"
	"io"
	"strconv"
	"strings"
)

// ConfigFlags are the names accepted for the JSON configuration file.
var ConfigFlags = []string{"-c", "-config"}

// FilterArgs keeps the flags listed in allowed together with their values.
//
// "-name value", "-name=value", "--name value" and "--name=value" are all
// recognized; allowed entries are written with a single dash. A value may
// be a negative number. Everything after a bare "--" is ignored.
func FilterArgs(args []string, allowed []string) []string {
	names := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		names[normalize(f)] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !isFlag(arg) {
			continue
		}

		name, _, hasValue := strings.Cut(arg, "=")
		if _, ok := names[normalize(name)]; !ok {
			continue
		}

		out = append(out, arg)
		if hasValue {
			continue
		}
		if i+1 < len(args) && !isFlag(args[i+1]) && args[i+1] != "--" {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigFile returns the path given by -c or -config, or "" when absent.
// When the flag repeats, the last occurrence wins.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, ConfigFlags))

	return path
}

func normalize(name string) string {
	return "-" + strings.TrimLeft(name, "-")
}

// isFlag reports whether arg names a flag rather than a value. Negative
// numbers such as "-1.5" are values.
func isFlag(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	if _, err := strconv.ParseFloat(arg, 64); err == nil {
		return false
	}
	return true
}
