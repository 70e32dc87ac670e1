package app

import (
	"fmt"
	"strings"

	"github.com/keskad/dcc/pkgs/dcc"
	"github.com/keskad/dcc/pkgs/refresh"
)

// EncodeIdleAction prints the idle command
func (app *DCCApp) EncodeIdleAction() error {
	return app.printCommands(dcc.Idle())
}

// printCommands prints every command with its meaning, then the packet they make on the track
func (app *DCCApp) printCommands(cmds ...dcc.Command) error {
	var packet refresh.Packet
	for _, cmd := range cmds {
		if err := packet.Append(cmd); err != nil {
			return fmt.Errorf("cannot frame %s: %w", cmd, err)
		}
		in, err := dcc.Interpret(cmd.Bytes())
		if err != nil {
			return err
		}
		app.P.Printf("%-20s %s\n", cmd, in)
	}
	app.P.Printf("%d bits: %s\n", packet.Len(), formatBits(&packet))
	return nil
}

// formatBits prints a bit stream in groups of eight
func formatBits(s dcc.BitStream) string {
	var sb strings.Builder
	for i := 0; i < s.Len(); i++ {
		if i > 0 && i%8 == 0 {
			sb.WriteByte(' ')
		}
		if s.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
