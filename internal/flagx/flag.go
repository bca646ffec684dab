// Package flagx lets several components parse their own subset of the
// command line without tripping over each other's flags.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the flags named in allowed, plus their values.
// Both "-c value" and "-c=value" forms are recognised; a following token that
// starts with "-" is never taken as a value.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		known[f] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, keep := known[name]; keep {
				out = append(out, arg)
			}
			continue
		}

		if _, keep := known[arg]; !keep {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigFileFlag returns the JSON config path passed as -c or -config.
// The last occurrence wins; "" when absent.
func ConfigFileFlag(args []string) string {
	return stringFlag(args, "config", "c", "path to JSON config file")
}

// EnvFileFlag returns the dotenv path passed as -env, "" when absent.
func EnvFileFlag(args []string) string {
	return stringFlag(args, "env", "", "path to .env file")
}

func stringFlag(args []string, long, short, usage string) string {
	var value string

	allowed := []string{"-" + long, "--" + long}
	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&value, long, "", usage)
	if short != "" {
		allowed = append(allowed, "-"+short)
		fs.StringVar(&value, short, "", usage)
	}

	_ = fs.Parse(FilterArgs(args, allowed))
	return value
}
