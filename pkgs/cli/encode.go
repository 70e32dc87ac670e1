package cli

import (
	"github.com/keskad/dcc/pkgs/app"
	"github.com/spf13/cobra"
)

func NewEncodeCommand(app *app.DCCApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "encode",
		Short: "Print DCC commands and the bits they are sent as",
		RunE: func(command *cobra.Command, args []string) error {
			return command.Help()
		},
	}

	command.AddCommand(NewEncodeIdleCommand(app))
	command.AddCommand(NewEncodeThrottleCommand(app))
	command.AddCommand(NewEncodeFnCommand(app))

	return command
}

func NewEncodeIdleCommand(app *app.DCCApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "idle",
		Short: "Encode the idle command",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}
			return app.EncodeIdleAction()
		},
	}

	command.Flags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")

	return command
}
