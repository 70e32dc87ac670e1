package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/keskad/dcc/pkgs/app"
	"github.com/spf13/cobra"
)

func NewEncodeFnCommand(app *app.DCCApp) *cobra.Command {
	type Args struct {
		LocoId uint16
	}

	cmdArgs := Args{}
	command := &cobra.Command{
		Use:   "fn [FUNCTION...]",
		Short: "Encode the function group commands with the given functions on",
		Long: `Encode the function group commands with the given functions on, all other functions are off.

Examples:
  dcc encode fn --loco 3 F0 F5
  dcc encode fn --loco 3 0 12`,
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			fns, err := parseFunctions(args)
			if err != nil {
				return err
			}

			return app.EncodeFnAction(cmdArgs.LocoId, fns)
		},
	}

	command.Flags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	command.Flags().Uint16VarP(&cmdArgs.LocoId, "loco", "l", 0, "Locomotive address (required)")

	command.MarkFlagRequired("loco")

	return command
}

// parseFunctions accepts function numbers with or without the F prefix, FL is the same as F0
func parseFunctions(args []string) ([]int, error) {
	var fns []int
	for _, arg := range args {
		raw := strings.ToUpper(strings.TrimSpace(arg))
		if raw == "FL" {
			fns = append(fns, 0)
			continue
		}
		num, err := strconv.ParseUint(strings.TrimPrefix(raw, "F"), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid function number %q: %w", arg, err)
		}
		fns = append(fns, int(num))
	}
	return fns, nil
}
