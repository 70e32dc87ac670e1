package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/keskad/dcc/pkgs/app"
	"github.com/spf13/cobra"
)

func NewStreamCommand(app *app.DCCApp) *cobra.Command {
	type Args struct {
		Slots  int
		Cycles int
	}

	cmdArgs := Args{}
	command := &cobra.Command{
		Use:   "stream [COMMAND...]",
		Short: "Decode what the track gets over a few refresh cycles",
		Long: `Load the refresh slots with protocol commands and decode what the track gets over a few refresh cycles.

Examples:
  dcc stream "S 0 3 63 1 1" "S 1 1234 10 0"
  dcc stream --cycles 1 -- - < commands.txt`,
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			lines, err := readLines(args, os.Stdin)
			if err != nil {
				return err
			}

			return app.StreamAction(cmdArgs.Slots, cmdArgs.Cycles, lines)
		},
	}

	command.Flags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	command.Flags().IntVarP(&cmdArgs.Slots, "slots", "s", 2, "Number of refresh slots")
	command.Flags().IntVarP(&cmdArgs.Cycles, "cycles", "c", 2, "Number of refresh cycles to decode")

	return command
}

func NewCaptureCommand(app *app.DCCApp) *cobra.Command {
	type Args struct {
		Slots  int
		Cycles int
		Output string
	}

	cmdArgs := Args{}
	command := &cobra.Command{
		Use:   "capture [COMMAND...]",
		Short: "Write the modulated bit stream of many refresh cycles to a file",
		Long: `Load the refresh slots with protocol commands and write the modulated bit stream to a file,
one '0' or '1' character per bit.

Examples:
  dcc capture --cycles 10000 --output track.txt "S 0 3 63 1"`,
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			lines, err := readLines(args, os.Stdin)
			if err != nil {
				return err
			}

			return app.CaptureAction(cmdArgs.Output, cmdArgs.Slots, cmdArgs.Cycles, lines)
		},
	}

	command.Flags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	command.Flags().IntVarP(&cmdArgs.Slots, "slots", "s", 2, "Number of refresh slots")
	command.Flags().IntVarP(&cmdArgs.Cycles, "cycles", "c", 1000, "Number of refresh cycles to capture")
	command.Flags().StringVarP(&cmdArgs.Output, "output", "o", "capture.txt", "File to write the bit stream to")

	return command
}

// readLines returns protocol lines from the arguments, "-" as the last argument appends the lines read from stdin
func readLines(args []string, stdin io.Reader) ([]string, error) {
	var lines []string
	for i, a := range args {
		if a == "-" && i == len(args)-1 {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("failed to read from stdin: %v", err)
			}
			for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r", ""), "\n") {
				if strings.TrimSpace(line) != "" {
					lines = append(lines, line)
				}
			}
			continue
		}
		if strings.TrimSpace(a) == "" {
			continue
		}
		lines = append(lines, a)
	}
	return lines, nil
}
