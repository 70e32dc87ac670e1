// Package signal turns the refresh buffer bits into DCC half-cycle timings.
//
// A DCC one bit is two half-cycles of about 58µs, a zero bit two half-cycles of about 100µs. The
// generator pulls bits at the cadence of a ticker and hands each bit with its half-cycle duration to
// a Sink, which would program the output timer of a booster.
package signal

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultOneHalfCycle  = 58 * time.Microsecond
	DefaultZeroHalfCycle = 100 * time.Microsecond
	DefaultTick          = 10 * time.Millisecond
)

// NMRA S-9.1 tolerances for the command station output
const (
	minOneHalfCycle  = 55 * time.Microsecond
	maxOneHalfCycle  = 61 * time.Microsecond
	minZeroHalfCycle = 95 * time.Microsecond
	maxZeroHalfCycle = 9900 * time.Microsecond
)

type Timing struct {
	One  time.Duration
	Zero time.Duration
}

func DefaultTiming() Timing {
	return Timing{One: DefaultOneHalfCycle, Zero: DefaultZeroHalfCycle}
}

func (t Timing) Validate() error {
	if t.One < minOneHalfCycle || t.One > maxOneHalfCycle {
		return fmt.Errorf("one bit half-cycle %s out of range %s-%s", t.One, minOneHalfCycle, maxOneHalfCycle)
	}
	if t.Zero < minZeroHalfCycle || t.Zero > maxZeroHalfCycle {
		return fmt.Errorf("zero bit half-cycle %s out of range %s-%s", t.Zero, minZeroHalfCycle, maxZeroHalfCycle)
	}
	return nil
}

// HalfCycle returns the duration of each of the two half-cycles of a bit
func (t Timing) HalfCycle(bit bool) time.Duration {
	if bit {
		return t.One
	}
	return t.Zero
}

// BitSource is the refresh buffer side
type BitSource interface {
	NextBit() bool
}

// Sink receives one call per bit, the bit is modulated as two half-cycles of the given duration
type Sink interface {
	Emit(bit bool, halfCycle time.Duration)
}

// Generator is the only consumer of its BitSource
type Generator struct {
	source  BitSource
	sink    Sink
	timing  Timing
	powered func() bool

	blanked atomic.Uint64
}

// NewGenerator builds a generator, powered may be nil for an always powered output
func NewGenerator(source BitSource, sink Sink, timing Timing, powered func() bool) *Generator {
	return &Generator{source: source, sink: sink, timing: timing, powered: powered}
}

// Step modulates one bit and returns its duration. With the power off the bit is still consumed, so the
// refresh cycle keeps moving, but nothing reaches the sink.
func (g *Generator) Step() time.Duration {
	bit := g.source.NextBit()
	half := g.timing.HalfCycle(bit)
	if g.powered != nil && !g.powered() {
		g.blanked.Add(1)
	} else {
		g.sink.Emit(bit, half)
	}
	return 2 * half
}

// Blanked returns the number of bits consumed while the power was off
func (g *Generator) Blanked() uint64 {
	return g.blanked.Load()
}

// Run keeps the bit stream going in real time until the context is done. Every tick emits as many bits
// as fit into the elapsed time.
func (g *Generator) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		return fmt.Errorf("invalid tick %s", tick)
	}
	logrus.Debugf("Signal generator running, one=%s zero=%s tick=%s", g.timing.One, g.timing.Zero, tick)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	last := time.Now()
	var budget time.Duration
	for {
		select {
		case <-ctx.Done():
			logrus.Debug("Signal generator stopped")
			return nil
		case now := <-ticker.C:
			budget += now.Sub(last)
			last = now
			for budget > 0 {
				budget -= g.Step()
			}
		}
	}
}

// CountingSink tracks what has been emitted
type CountingSink struct {
	ones     atomic.Uint64
	zeros    atomic.Uint64
	duration atomic.Int64
}

func (c *CountingSink) Emit(bit bool, halfCycle time.Duration) {
	if bit {
		c.ones.Add(1)
	} else {
		c.zeros.Add(1)
	}
	c.duration.Add(int64(2 * halfCycle))
}

func (c *CountingSink) Ones() uint64 {
	return c.ones.Load()
}

func (c *CountingSink) Zeros() uint64 {
	return c.zeros.Load()
}

// Elapsed is the total signal time emitted so far
func (c *CountingSink) Elapsed() time.Duration {
	return time.Duration(c.duration.Load())
}

// WriterSink prints the bit stream as '0' and '1' characters
type WriterSink struct {
	W io.Writer
}

func (w WriterSink) Emit(bit bool, _ time.Duration) {
	c := byte('0')
	if bit {
		c = '1'
	}
	_, _ = w.W.Write([]byte{c})
}
