// Command rexprctl is a small development aid for poking at the rexpr
// engine from a shell: it parses an expression against atom bindings
// given on the command line and prints the result. The engine itself
// exposes no CLI surface; this binary exists purely to exercise its
// library operations.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cbarrick/rexpr"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var binds []string
	var trace bool
	var noOpt bool
	var render bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "rexprctl <expression>",
		Short: "Parse and evaluate a boolean/arithmetic expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseBindings(binds)
			if err != nil {
				return err
			}

			var opts []rexpr.Option
			if verbose {
				logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
				opts = append(opts, rexpr.WithLogger(logger))
			}

			h, err := rexpr.Parse(args[0], identitySubr{values: values}, nil, opts...)
			if err != nil {
				return err
			}
			defer h.Close()

			var flags rexpr.Flags
			if noOpt {
				flags |= rexpr.NoOpt
			}

			if render {
				fmt.Println(h.ToText())
			}

			if trace {
				result, track := h.EvalTrack(nil, flags)
				names := make([]string, len(track))
				for i, a := range track {
					names[i] = a.Text
				}
				fmt.Printf("%g\ntrace: %s\n", result, strings.Join(names, ", "))
				return nil
			}

			fmt.Printf("%g\n", h.Eval(nil, flags))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&binds, "bind", nil, "atom binding name=value, repeatable")
	cmd.Flags().BoolVar(&trace, "trace", false, "print the contributing-atoms trace")
	cmd.Flags().BoolVar(&noOpt, "no-opt", false, "disable short-circuit evaluation")
	cmd.Flags().BoolVar(&render, "render", false, "print the round-tripped canonical text before evaluating")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log resort cadence and atom dispatch to stderr")

	return cmd
}

func parseBindings(raw []string) (map[string]float64, error) {
	values := make(map[string]float64, len(raw))
	for _, b := range raw {
		name, val, ok := strings.Cut(b, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --bind %q: expected name=value", b)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --bind %q: %w", b, err)
		}
		values[name] = f
	}
	return values, nil
}

// identitySubr is a toy host vtable: atoms are bare identifiers (letters,
// digits, underscore), and their value is looked up in a fixed binding
// map supplied on the command line (0 when unbound).
type identitySubr struct {
	values map[string]float64
}

func (s identitySubr) Parse(text string, _ any) (any, int, error) {
	n := 0
	for n < len(text) && isIdentByte(text[n]) {
		n++
	}
	if n == 0 {
		return nil, 0, fmt.Errorf("expected an identifier at %q", text)
	}
	return text[:n], n, nil
}

func (s identitySubr) Process(atom any, _ any) float64 {
	return s.values[atom.(string)]
}

func isIdentByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '_':
		return true
	default:
		return false
	}
}
