package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/keskad/dcc/pkgs/commandstation"
	"github.com/keskad/dcc/pkgs/output"
	"github.com/keskad/dcc/pkgs/power"
	"github.com/keskad/dcc/pkgs/signal"
	"github.com/keskad/dcc/pkgs/syntax"
)

const (
	greeting     = "HELO"
	overloadLine = "POFF"
	eol          = "\r\n"
)

// ServeAction runs the command station: protocol lines come from the serial port (or stdin for "-"),
// the refresh buffer is modulated until the context is done or the input ends
func (app *DCCApp) ServeAction(ctx context.Context, port string, baud int) error {
	if err := app.initializeStation(app.Config.Station.Slots); err != nil {
		return err
	}
	defer app.station.CleanUp()

	link, err := openLink(port, baud)
	if err != nil {
		return err
	}
	defer link.Close()
	logrus.Infof("Command station listening on %s with %d slots", port, app.Config.Station.Slots)

	return app.serve(ctx, link)
}

func (app *DCCApp) serve(ctx context.Context, link io.ReadWriter) error {
	timing := signal.Timing{One: app.Config.Signal.OneHalfCycle, Zero: app.Config.Signal.ZeroHalfCycle}
	if err := timing.Validate(); err != nil {
		return fmt.Errorf("cannot start signal generator: %w", err)
	}
	if app.Config.Signal.Tick <= 0 {
		return fmt.Errorf("cannot start signal generator: invalid tick %s", app.Config.Signal.Tick)
	}
	p := output.NewWriterPrinter(link)

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := &signal.CountingSink{}
	generator := signal.NewGenerator(app.buffer, sink, timing, app.track.IsOn)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := generator.Run(ctx, app.Config.Signal.Tick); err != nil {
			logrus.Errorf("Signal generator failed: %s", err)
		}
		logrus.Infof("Signal generator emitted %d ones, %d zeros, %d bits blanked", sink.Ones(), sink.Zeros(), generator.Blanked())
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(app.Config.Signal.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := app.station.Poll(); err != nil {
					logrus.Errorf("Cannot finish slot update: %s", err)
				}
			}
		}
	}()

	if app.Config.Power.SensePath != "" {
		monitor := power.NewMonitor(app.track,
			power.WithSmoothing(app.Config.Power.Smoothing),
			power.WithLimit(app.Config.Power.Limit),
			power.WithInterval(app.Config.Power.SampleInterval),
			power.WithOverload(func(value float64) {
				p.Printf("%s%s", overloadLine, eol)
			}))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := monitor.Run(ctx, power.FileSampler{Path: app.Config.Power.SensePath}); err != nil {
				logrus.Errorf("Current sense stopped: %s", err)
			}
			logrus.Infof("Current sense stopped at %.1f (limit %.1f)", monitor.Value(), app.Config.Power.Limit)
		}()
	}

	p.Printf("%s%s", greeting, eol)

	// the reader is not waited for, a blocking stdin read cannot be interrupted
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(link)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logrus.Errorf("Cannot read commands: %s", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				logrus.Debug("End of command input")
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			p.Printf("%s%s", app.Execute(line), eol)
		}
	}
}

// Execute runs a single protocol line against the command station and returns the reply
func (app *DCCApp) Execute(line string) string {
	req, err := syntax.ParseLine(line)
	if err != nil {
		logrus.Debugf("Rejected %q: %s", line, err)
		return "ERROR " + err.Error()
	}

	switch req.Verb {
	case syntax.VerbSlot:
		state := commandstation.LocoState{
			Addr:      commandstation.LocoAddr(req.Address),
			Speed:     req.Speed,
			Forward:   req.Forward,
			Functions: req.Functions.Functions(),
		}
		if err := app.station.SetSlot(req.Slot, state); err != nil {
			return "ERROR " + err.Error()
		}
		return fmt.Sprintf("OK slot=%d,adr=%d,spd=%d,dir=%d,fns=0b%b", req.Slot, req.Address, req.Speed, digit(req.Forward), uint16(req.Functions))
	case syntax.VerbEmergency:
		if err := app.station.EmergencyStop(req.Slot, commandstation.LocoAddr(req.Address)); err != nil {
			return "ERROR " + err.Error()
		}
		return fmt.Sprintf("OK slot=%d,adr=%d,emergency", req.Slot, req.Address)
	case syntax.VerbThrottle:
		return app.executeThrottle(req)
	case syntax.VerbQuery:
		return app.executeQuery(req)
	case syntax.VerbFunction:
		return app.executeFunction(req)
	case syntax.VerbPowerOn:
		if err := app.station.PowerOn(); err != nil {
			return "ERROR " + err.Error()
		}
		return "OK power is on"
	case syntax.VerbPowerOff:
		if err := app.station.PowerOff(); err != nil {
			return "ERROR " + err.Error()
		}
		return "OK power is off"
	}
	return "ERROR " + syntax.ErrNoCommand.Error()
}

func digit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// stdio is the command link when no serial port is used
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return nil }

func openLink(port string, baud int) (io.ReadWriteCloser, error) {
	if port == "-" {
		return stdio{}, nil
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	link, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("cannot open serial port %s: %w", port, err)
	}
	return link, nil
}

// ListPortsAction prints the serial ports a command link can be opened on
func (app *DCCApp) ListPortsAction() error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("cannot list serial ports: %w", err)
	}
	if len(ports) == 0 {
		app.P.Printf("No serial ports found\n")
		return nil
	}
	for _, port := range ports {
		app.P.Printf("%s\n", port)
	}
	return nil
}
