package cli

import (
	"github.com/keskad/dcc/pkgs/app"
	"github.com/spf13/cobra"
)

func NewRootCommand(app *app.DCCApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "dcc",
		Short: "DCC command station generating the track signal from a refresh buffer",
		RunE: func(command *cobra.Command, args []string) error {
			return command.Help()
		},
	}

	command.AddCommand(NewServeCommand(app))
	command.AddCommand(NewPortsCommand(app))
	command.AddCommand(NewEncodeCommand(app))
	command.AddCommand(NewStreamCommand(app))
	command.AddCommand(NewCaptureCommand(app))

	return command
}
