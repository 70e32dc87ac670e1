package cli

import (
	"github.com/keskad/dcc/pkgs/app"
	"github.com/spf13/cobra"
)

func NewServeCommand(app *app.DCCApp) *cobra.Command {
	type Args struct {
		Port  string
		Baud  int
		Slots int
	}

	cmdArgs := Args{}
	command := &cobra.Command{
		Use:   "serve",
		Short: "Run the command station, reading commands from a serial port or stdin",
		Long: `Run the command station, reading commands from a serial port or stdin.

Commands, one per line:
  S <slot> <address> <speed> <direction> [<function-bits>]   refresh a locomotive in a slot
  N <slot> <address>                                         emergency stop
  T <address> <speed> <direction>                            drive a locomotive in its slot or the first free one
  F <address> <function> <0|1>                               switch a single function
  Q <address>                                                speed, direction and active functions
  P                                                          track power on
  O                                                          track power off

Function bits are FL-F4-F3-F2-F1-F8-F7-F6-F5-F12-F11-F10-F9, missing ones are off.

Examples:
  dcc serve --port /dev/ttyACM0
  echo "S 0 3 63 1 1" | dcc serve`,
		Args: cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			// flags take precedence over the configuration file
			if command.Flags().Changed("port") {
				app.Config.Serial.Port = cmdArgs.Port
			}
			if command.Flags().Changed("baud") {
				app.Config.Serial.Baud = cmdArgs.Baud
			}
			if command.Flags().Changed("slots") {
				app.Config.Station.Slots = cmdArgs.Slots
			}

			return app.ServeAction(command.Context(), app.Config.Serial.Port, app.Config.Serial.Baud)
		},
	}

	command.Flags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	command.Flags().StringVarP(&cmdArgs.Port, "port", "p", "-", "Serial port to read commands from, '-' for stdin")
	command.Flags().IntVarP(&cmdArgs.Baud, "baud", "b", 57600, "Serial port baud rate")
	command.Flags().IntVarP(&cmdArgs.Slots, "slots", "s", 2, "Number of refresh slots")

	return command
}

func NewPortsCommand(app *app.DCCApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}
			return app.ListPortsAction()
		},
	}

	command.Flags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")

	return command
}
