package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/keskad/dcc/pkgs/commandstation"
	"github.com/keskad/dcc/pkgs/config"
	"github.com/keskad/dcc/pkgs/output"
	"github.com/keskad/dcc/pkgs/power"
	"github.com/keskad/dcc/pkgs/refresh"
)

type DCCApp struct {
	Config  *config.Configuration
	P       output.Printer
	station commandstation.Station
	buffer  *refresh.Buffer
	track   *power.Track

	// runtime parameters
	Debug bool
}

// Initialize is running after parsing the arguments, so we know how to configure the app
func (app *DCCApp) Initialize() error {
	// logging
	if app.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if app.P == nil {
		app.P = output.ConsolePrinter{}
	}

	// configuration
	logrus.Debug("Reading configuration files")
	cfg, cfgErr := config.NewConfig()
	app.Config = cfg
	if cfgErr != nil {
		return fmt.Errorf("cannot initialize app: %s", cfgErr)
	}
	return nil
}

// initializeStation builds the refresh buffer with the given number of slots and a local command station on top of it
func (app *DCCApp) initializeStation(slots int) error {
	logrus.Debugf("Initializing command station with %d slots", slots)
	buffer, err := refresh.New(slots)
	if err != nil {
		return fmt.Errorf("cannot initialize command station: %w", err)
	}
	app.buffer = buffer
	app.track = power.NewTrack()
	app.station = commandstation.NewLocal(buffer, app.track)
	return nil
}
