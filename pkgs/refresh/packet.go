package refresh

import (
	"errors"
	"fmt"

	"github.com/keskad/dcc/pkgs/dcc"
)

const (
	// MaxCommands is the number of commands a single packet can carry in one refresh cycle
	MaxCommands = 3

	// MaxEncodedCommand is the size in bytes of the longest framed command
	MaxEncodedCommand = (preambleBits + 9*dcc.MaxCommandBytes + 7) / 8

	PacketCapacity = MaxCommands * MaxEncodedCommand

	// 8+8+6 one bits, DCC requires at least 14
	preambleBits = 22
)

var (
	ErrPacketFull   = errors.New("packet capacity exceeded")
	ErrEmptyCommand = errors.New("empty command")
)

// Packet holds one or more framed DCC commands back to back. The zero value is an empty packet.
type Packet struct {
	buf [PacketCapacity]byte
	n   int // bytes in use
}

// Len returns the packet length in bits
func (p *Packet) Len() int {
	return 8 * p.n
}

// Bit returns i-th bit, most significant bit of each byte first. The caller must keep i below Len().
func (p *Packet) Bit(i int) bool {
	return p.buf[i>>3]&(0x80>>uint(i&7)) != 0
}

// Reset empties the packet without touching the memory
func (p *Packet) Reset() {
	p.n = 0
}

// Bytes returns a copy of the framed content
func (p *Packet) Bytes() []byte {
	out := make([]byte, p.n)
	copy(out, p.buf[:p.n])
	return out
}

// Append frames the command behind whatever the packet already holds:
// 22 preamble bits, a zero start bit before each byte, the byte itself MSB first, then ones up to the byte
// boundary. The padding is the packet end bit and also the head of the next preamble.
func (p *Packet) Append(cmd dcc.Command) error {
	size := EncodedSize(cmd)
	if size == 0 {
		return ErrEmptyCommand
	}
	if p.n+size > PacketCapacity {
		return fmt.Errorf("%w: %d bytes used, %d more requested, capacity %d", ErrPacketFull, p.n, size, PacketCapacity)
	}

	w := bitWriter{buf: p.buf[p.n : p.n+size]}
	w.ones(preambleBits)
	for i := 0; i < cmd.Len(); i++ {
		w.put(false)
		w.putByte(cmd.Byte(i))
	}
	w.ones(8*size - w.pos)

	p.n += size
	return nil
}

// EncodedSize returns how many bytes the command takes once framed
func EncodedSize(cmd dcc.Command) int {
	if cmd.Len() == 0 {
		return 0
	}
	return (preambleBits + 9*cmd.Len() + 7) / 8
}

// checkCapacity verifies that the commands fit into an empty packet
func checkCapacity(cmds []dcc.Command) error {
	total := 0
	for _, cmd := range cmds {
		size := EncodedSize(cmd)
		if size == 0 {
			return ErrEmptyCommand
		}
		total += size
	}
	if total > PacketCapacity {
		return fmt.Errorf("%w: %d commands need %d bytes, capacity %d", ErrPacketFull, len(cmds), total, PacketCapacity)
	}
	return nil
}

type bitWriter struct {
	buf []byte
	pos int
}

func (w *bitWriter) put(bit bool) {
	mask := byte(0x80) >> uint(w.pos&7)
	if bit {
		w.buf[w.pos>>3] |= mask
	} else {
		w.buf[w.pos>>3] &^= mask
	}
	w.pos++
}

func (w *bitWriter) putByte(b byte) {
	for i := 7; i >= 0; i-- {
		w.put(b&(1<<uint(i)) != 0)
	}
}

func (w *bitWriter) ones(n int) {
	for i := 0; i < n; i++ {
		w.put(true)
	}
}
