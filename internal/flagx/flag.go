// Package flagx lets several components share os.Args, each parsing only the
// flags it owns with its own flag.FlagSet.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args that belongs to the listed flags,
// keeping their order.
//
// valueFlags take a value, either as the next argument (-c conf.json) or
// inline (--config=conf.json). A following argument that starts with '-' is
// never consumed as a value. boolFlags never consume the next argument; use
// -flag=false to switch one off.
//
// The result is never nil. Parsing stops at a "--" terminator.
func FilterArgs(args []string, valueFlags []string, boolFlags ...string) []string {
	flags, _ := split(args, valueFlags, boolFlags)
	return flags
}

// Positional returns the arguments that are neither one of the listed flags
// nor a value consumed by one, keeping their order. Unknown flags are
// dropped. Everything after a "--" terminator is positional.
func Positional(args []string, valueFlags []string, boolFlags ...string) []string {
	_, rest := split(args, valueFlags, boolFlags)
	return rest
}

func split(args []string, valueFlags, boolFlags []string) (flags, rest []string) {
	kinds := make(map[string]bool, len(valueFlags)+len(boolFlags))
	for _, f := range valueFlags {
		kinds[f] = true
	}
	for _, f := range boolFlags {
		kinds[f] = false
	}

	flags = make([]string, 0, len(args))
	rest = make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			rest = append(rest, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") {
			rest = append(rest, arg)
			continue
		}

		name, _, inline := strings.Cut(arg, "=")
		takesValue, known := kinds[name]
		if !known {
			continue
		}
		flags = append(flags, arg)

		if inline || !takesValue {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			flags = append(flags, args[i+1])
			i++
		}
	}

	return flags, rest
}

// ConfigFile returns the JSON config path given with -c or -config, or "" when
// neither is present. When both are given the last one wins.
func ConfigFile() string {
	var path string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config", "--config"})

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(args)

	return path
}
