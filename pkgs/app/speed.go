package app

import (
	"fmt"
	"strings"

	"github.com/keskad/dcc/pkgs/commandstation"
	"github.com/keskad/dcc/pkgs/dcc"
	"github.com/keskad/dcc/pkgs/syntax"
)

// EncodeThrottleAction prints the 128 speed step command for a locomotive
func (app *DCCApp) EncodeThrottleAction(addr uint16, speed uint8, forward bool, emergencyStop bool) error {
	cmd, err := dcc.Throttle(dcc.Address(addr), speed, forward, emergencyStop)
	if err != nil {
		return err
	}
	return app.printCommands(cmd)
}

// executeThrottle drives a locomotive by address, the station refreshes it in its slot or the first free one
func (app *DCCApp) executeThrottle(req syntax.Request) string {
	if err := app.station.SetSpeed(commandstation.LocoAddr(req.Address), req.Speed, req.Forward); err != nil {
		return "ERROR " + err.Error()
	}
	return fmt.Sprintf("OK adr=%d,spd=%d,dir=%d", req.Address, req.Speed, digit(req.Forward))
}

// executeQuery reports what the station refreshes for a locomotive
func (app *DCCApp) executeQuery(req syntax.Request) string {
	addr := commandstation.LocoAddr(req.Address)
	speed, forward, err := app.station.GetSpeed(addr)
	if err != nil {
		return "ERROR " + err.Error()
	}
	active, err := app.station.ListFunctions(addr)
	if err != nil {
		return "ERROR " + err.Error()
	}

	fns := "none"
	if len(active) > 0 {
		names := make([]string, 0, len(active))
		for _, num := range active {
			names = append(names, fmt.Sprintf("F%d", num))
		}
		fns = strings.Join(names, "-")
	}
	return fmt.Sprintf("OK adr=%d,spd=%d,dir=%d,fns=%s", req.Address, speed, digit(forward), fns)
}
