package cli

import (
	"fmt"
	"strconv"

	"github.com/keskad/dcc/pkgs/app"
	"github.com/keskad/dcc/pkgs/dcc"
	"github.com/spf13/cobra"
)

func NewEncodeThrottleCommand(app *app.DCCApp) *cobra.Command {
	type Args struct {
		LocoId    uint16
		Forward   bool
		Emergency bool
	}

	cmdArgs := Args{}
	command := &cobra.Command{
		Use:   "throttle SPEED",
		Short: "Encode a 128 speed step command",
		Long: `Encode a 128 speed step command.

SPEED is a value from 0 (stop) to 126 (full speed).

Examples:
  dcc encode throttle 63 --loco 3 --forward
  dcc encode throttle 0 --loco 1234            # Stop locomotive
  dcc encode throttle 0 --loco 3 --emergency   # Emergency stop`,
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			speed, err := parseSpeed(args[0])
			if err != nil {
				return err
			}

			return app.EncodeThrottleAction(cmdArgs.LocoId, speed, cmdArgs.Forward, cmdArgs.Emergency)
		},
	}

	command.Flags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	command.Flags().Uint16VarP(&cmdArgs.LocoId, "loco", "l", 0, "Locomotive address (required)")
	command.Flags().BoolVarP(&cmdArgs.Forward, "forward", "f", false, "Set direction to forward (default is reverse)")
	command.Flags().BoolVarP(&cmdArgs.Emergency, "emergency", "e", false, "Emergency stop, the speed is ignored")

	command.MarkFlagRequired("loco")

	return command
}

func parseSpeed(raw string) (uint8, error) {
	speed, err := strconv.ParseUint(raw, 10, 8)
	if err != nil || speed > dcc.MaxSpeed {
		return 0, fmt.Errorf("invalid speed value %q (must be 0-%d)", raw, dcc.MaxSpeed)
	}
	return uint8(speed), nil
}
