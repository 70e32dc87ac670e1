package refresh

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keskad/dcc/pkgs/dcc"
)

func mustCmd(t *testing.T) func(dcc.Command, error) dcc.Command {
	return func(c dcc.Command, err error) dcc.Command {
		t.Helper()
		require.NoError(t, err)
		return c
	}
}

func TestPacket_IdleLayout(t *testing.T) {
	var p Packet
	require.NoError(t, p.Append(dcc.Idle()))

	// 22 ones | 0 FF | 0 00 | 0 FF | 7 padding ones
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFD, 0xFE, 0x00, 0x7F, 0xFF}, p.Bytes())
	assert.Equal(t, 56, p.Len())
}

func TestPacket_ThrottleLayout(t *testing.T) {
	cmd := mustCmd(t)(dcc.Throttle(3, 63, true, false)) // 03 3F C0 FC

	var p Packet
	require.NoError(t, p.Append(cmd))

	// 22 ones | 0 03 | 0 3F | 0 C0 | 0 FC | 6 padding ones
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFC, 0x06, 0x3F, 0x60, 0x3F, 0x3F}, p.Bytes())
}

func TestPacket_Lengths(t *testing.T) {
	tests := []struct {
		payload []byte
		bits    int
	}{
		{[]byte{0xFF, 0x00}, 56},                   // 3 bytes with checksum: 22+27 -> 56
		{[]byte{0x03, 0x3F, 0xC0}, 64},             // 4 bytes: 22+36 -> 64
		{[]byte{0xC3, 0xE7, 0x3F, 0xE4}, 72},       // 5 bytes: 22+45 -> 72
		{[]byte{0xC3, 0xE7, 0xEC, 0x00, 0x01}, 80}, // 6 bytes: 22+54 -> 80
	}

	for _, tt := range tests {
		cmd, err := dcc.NewCommand(tt.payload...)
		require.NoError(t, err)

		var p Packet
		require.NoError(t, p.Append(cmd))
		assert.Equal(t, tt.bits, p.Len(), "% X", tt.payload)
		assert.Equal(t, tt.bits/8, EncodedSize(cmd))
	}
}

func TestPacket_RoundTrip(t *testing.T) {
	m := mustCmd(t)
	cmds := []dcc.Command{
		m(dcc.FunctionGroup1(998, 0b10101)),
		m(dcc.Throttle(999, 99, true, false)),
		dcc.Idle(),
	}

	var p Packet
	for _, cmd := range cmds {
		require.NoError(t, p.Append(cmd))
	}

	frames, err := dcc.DecodeStream(&p)
	require.NoError(t, err)
	require.Len(t, frames, len(cmds))
	for i, f := range frames {
		assert.True(t, f.Valid())
		assert.GreaterOrEqual(t, f.Preamble, dcc.MinPreamble)
		assert.Equal(t, cmds[i].Bytes(), f.Bytes)
	}

	in, err := dcc.Interpret(frames[1].Bytes)
	require.NoError(t, err)
	assert.Equal(t, dcc.Instruction{Kind: dcc.KindThrottle, Address: 999, Speed: 99, Forward: true}, in)
}

func TestPacket_RoundTripEveryKind(t *testing.T) {
	m := mustCmd(t)
	rnd := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		addr := dcc.Address(1 + rnd.Intn(dcc.MaxAddress))
		speed := uint8(rnd.Intn(dcc.MaxSpeed + 1))
		forward := rnd.Intn(2) == 0
		bits := byte(rnd.Intn(32))

		var p Packet
		require.NoError(t, p.Append(m(dcc.Throttle(addr, speed, forward, false))))
		require.NoError(t, p.Append(m(dcc.FunctionGroup1(addr, bits))))
		require.NoError(t, p.Append(m(dcc.FunctionGroup2High(addr, bits))))

		frames, err := dcc.DecodeStream(&p)
		require.NoError(t, err)
		require.Len(t, frames, 3)

		throttle, err := dcc.Interpret(frames[0].Bytes)
		require.NoError(t, err)
		assert.Equal(t, dcc.Instruction{Kind: dcc.KindThrottle, Address: addr, Speed: speed, Forward: forward}, throttle)

		fg1, err := dcc.Interpret(frames[1].Bytes)
		require.NoError(t, err)
		assert.Equal(t, dcc.Instruction{Kind: dcc.KindFunctionGroup1, Address: addr, Functions: bits}, fg1)

		fg2, err := dcc.Interpret(frames[2].Bytes)
		require.NoError(t, err)
		assert.Equal(t, dcc.Instruction{Kind: dcc.KindFunctionGroup2High, Address: addr, Functions: bits & 0x0F}, fg2)
	}
}

func TestPacket_Capacity(t *testing.T) {
	worst, err := dcc.NewCommand(0xC3, 0xE7, 0xEC, 0x00, 0x01)
	require.NoError(t, err)

	var p Packet
	for i := 0; i < MaxCommands; i++ {
		require.NoError(t, p.Append(worst))
	}
	assert.Equal(t, 8*PacketCapacity, p.Len())

	err = p.Append(dcc.Idle())
	assert.True(t, errors.Is(err, ErrPacketFull))
	assert.Equal(t, 8*PacketCapacity, p.Len(), "failed append must not change the packet")

	assert.True(t, errors.Is(p.Append(dcc.Command{}), ErrEmptyCommand))
}

func TestPacket_Reset(t *testing.T) {
	m := mustCmd(t)
	var p Packet
	require.NoError(t, p.Append(m(dcc.Throttle(3, 63, true, false))))
	p.Reset()
	assert.Equal(t, 0, p.Len())

	require.NoError(t, p.Append(dcc.Idle()))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFD, 0xFE, 0x00, 0x7F, 0xFF}, p.Bytes())
}

func TestPacket_BitBoundaries(t *testing.T) {
	var p Packet
	require.NoError(t, p.Append(dcc.Idle()))

	// every index below Len is addressable, the last one is padding
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		idx := rnd.Intn(p.Len())
		assert.Equal(t, p.Bytes()[idx/8]&(0x80>>uint(idx%8)) != 0, p.Bit(idx))
	}
	assert.True(t, p.Bit(p.Len()-1))
	assert.True(t, p.Bit(0))
	assert.False(t, p.Bit(22), "first data start bit")
}
