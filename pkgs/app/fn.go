package app

import (
	"fmt"

	"github.com/keskad/dcc/pkgs/commandstation"
	"github.com/keskad/dcc/pkgs/dcc"
	"github.com/keskad/dcc/pkgs/syntax"
)

// EncodeFnAction prints the function group commands with the given functions switched on, all others off
func (app *DCCApp) EncodeFnAction(addr uint16, active []int) error {
	var fns dcc.Functions
	for _, num := range active {
		if err := commandstation.FuncNum(num).Validate(); err != nil {
			return err
		}
		fns = fns.Set(num, true)
	}

	a := dcc.Address(addr)
	fg1, err := dcc.FunctionGroup1(a, fns.Group1())
	if err != nil {
		return err
	}
	fg2Low, err := dcc.FunctionGroup2Low(a, fns.Group2Low())
	if err != nil {
		return err
	}
	fg2High, err := dcc.FunctionGroup2High(a, fns.Group2High())
	if err != nil {
		return err
	}
	return app.printCommands(fg1, fg2Low, fg2High)
}

// executeFunction switches a single function of a locomotive, the other functions keep their state
func (app *DCCApp) executeFunction(req syntax.Request) string {
	if err := app.station.SendFn(commandstation.LocoAddr(req.Address), commandstation.FuncNum(req.Function), req.On); err != nil {
		return "ERROR " + err.Error()
	}
	state := "off"
	if req.On {
		state = "on"
	}
	return fmt.Sprintf("OK adr=%d,fn=F%d,%s", req.Address, req.Function, state)
}
