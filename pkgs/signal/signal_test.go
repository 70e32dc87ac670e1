package signal

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pattern struct {
	bits []bool
	pos  int
}

func (p *pattern) NextBit() bool {
	b := p.bits[p.pos%len(p.bits)]
	p.pos++
	return b
}

func TestTiming(t *testing.T) {
	timing := DefaultTiming()
	assert.NoError(t, timing.Validate())
	assert.Equal(t, 58*time.Microsecond, timing.HalfCycle(true))
	assert.Equal(t, 100*time.Microsecond, timing.HalfCycle(false))

	assert.Error(t, Timing{One: 50 * time.Microsecond, Zero: 100 * time.Microsecond}.Validate())
	assert.Error(t, Timing{One: 58 * time.Microsecond, Zero: 90 * time.Microsecond}.Validate())
}

func TestGenerator_Step(t *testing.T) {
	src := &pattern{bits: []bool{true, false, true}}
	sink := &CountingSink{}
	g := NewGenerator(src, sink, DefaultTiming(), nil)

	assert.Equal(t, 116*time.Microsecond, g.Step())
	assert.Equal(t, 200*time.Microsecond, g.Step())
	assert.Equal(t, 116*time.Microsecond, g.Step())

	assert.Equal(t, uint64(2), sink.Ones())
	assert.Equal(t, uint64(1), sink.Zeros())
	assert.Equal(t, 432*time.Microsecond, sink.Elapsed())
}

func TestGenerator_Blanking(t *testing.T) {
	src := &pattern{bits: []bool{true}}
	sink := &CountingSink{}
	on := false
	g := NewGenerator(src, sink, DefaultTiming(), func() bool { return on })

	g.Step()
	g.Step()
	assert.Equal(t, uint64(2), g.Blanked())
	assert.Equal(t, uint64(0), sink.Ones())
	assert.Equal(t, 2, src.pos, "bits are consumed while blanked")

	on = true
	g.Step()
	assert.Equal(t, uint64(1), sink.Ones())
}

func TestGenerator_Run(t *testing.T) {
	src := &pattern{bits: []bool{true, false}}
	sink := &CountingSink{}
	g := NewGenerator(src, sink, DefaultTiming(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, g.Run(ctx, time.Millisecond))

	assert.Greater(t, sink.Ones()+sink.Zeros(), uint64(0))
	assert.Error(t, g.Run(context.Background(), 0))
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := WriterSink{W: &buf}
	sink.Emit(true, DefaultOneHalfCycle)
	sink.Emit(false, DefaultZeroHalfCycle)
	assert.Equal(t, "10", buf.String())
}
