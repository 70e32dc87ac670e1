package app

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/keskad/dcc/pkgs/dcc"
	"github.com/keskad/dcc/pkgs/signal"
)

// StreamAction loads the slots with protocol lines and prints what the track gets over a number of refresh cycles
func (app *DCCApp) StreamAction(slots int, cycles int, lines []string) error {
	if err := app.initializeStation(slots); err != nil {
		return err
	}
	for _, line := range lines {
		app.P.Printf("> %s\n%s\n", line, app.Execute(line))
	}

	for c := 0; c < cycles; c++ {
		bits := app.nextCycle()
		if err := app.station.Poll(); err != nil {
			return err
		}
		frames, err := dcc.DecodeStream(bits)
		if err != nil {
			return fmt.Errorf("cannot decode refresh cycle %d: %w", c, err)
		}
		app.P.Printf("cycle %d, %d bits\n", c, bits.Len())
		for _, f := range frames {
			in, err := dcc.Interpret(f.Bytes)
			meaning := in.String()
			if err != nil {
				meaning = "ERROR " + err.Error()
			}
			app.P.Printf("  @%-5d preamble=%d %-20s %s\n", f.Offset, f.Preamble, fmt.Sprintf("% X", f.Bytes), meaning)
		}
	}
	return nil
}

// nextCycle reads bits until the cursor is back at the first bit of slot 0
func (app *DCCApp) nextCycle() dcc.Bits {
	var bits dcc.Bits
	for {
		bits = append(bits, app.buffer.NextBit())
		if slot, bit := app.buffer.Cursor(); slot == 0 && bit == 0 {
			return bits
		}
	}
}

// CaptureAction writes a number of refresh cycles to a file as '0' and '1' characters, the way the signal
// generator hands them to the output
func (app *DCCApp) CaptureAction(path string, slots int, cycles int, lines []string) error {
	timing := signal.Timing{One: app.Config.Signal.OneHalfCycle, Zero: app.Config.Signal.ZeroHalfCycle}
	if err := timing.Validate(); err != nil {
		return fmt.Errorf("cannot capture: %w", err)
	}
	if err := app.initializeStation(slots); err != nil {
		return err
	}
	for _, line := range lines {
		logrus.Infof("%s: %s", line, app.Execute(line))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create capture file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	generator := signal.NewGenerator(app.buffer, signal.WriterSink{W: w}, timing, nil)

	bar := progressbar.NewOptions(cycles,
		progressbar.OptionSetDescription("Capturing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	var elapsed time.Duration
	for c := 0; c < cycles; c++ {
		for {
			elapsed += generator.Step()
			if slot, bit := app.buffer.Cursor(); slot == 0 && bit == 0 {
				break
			}
		}
		if err := app.station.Poll(); err != nil {
			return err
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if err := w.Flush(); err != nil {
		return fmt.Errorf("cannot write capture file: %w", err)
	}
	app.P.Printf("%d refresh cycles, %s of signal written to %s\n", cycles, elapsed, path)
	return nil
}
