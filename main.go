package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keskad/dcc/pkgs/app"
	"github.com/keskad/dcc/pkgs/cli"
)

func main() {
	app := app.DCCApp{}
	cmd := cli.NewRootCommand(&app)
	args := os.Args
	if args != nil {
		args = args[1:]
		cmd.SetArgs(args)
	}

	// serve runs until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
