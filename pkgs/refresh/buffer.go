// Package refresh keeps the DCC refresh cycle: a fixed set of slots, each repeating its last committed
// packet, read out one bit at a time by the signal generator.
//
// Initially the active packet in each slot is an idle command and the staging packet is empty, so
// NextBit can be called right after New and the track gets an endless loop of idle commands until
// real commands arrive.
package refresh

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/keskad/dcc/pkgs/dcc"
)

var ErrInvalidSlot = errors.New("invalid slot")

// Buffer is the set of slots being modulated
type Buffer struct {
	slots []Slot

	// read cursor, owned by the consumer
	slot int
	bit  int
}

func New(slots int) (*Buffer, error) {
	if slots < 1 {
		return nil, fmt.Errorf("%w: need at least one slot, got %d", ErrInvalidSlot, slots)
	}

	b := &Buffer{slots: make([]Slot, slots)}
	idle := dcc.Idle()
	for i := range b.slots {
		if err := b.slots[i].Load(idle); err != nil {
			return nil, fmt.Errorf("cannot load idle command into slot %d: %w", i, err)
		}
		b.slots[i].Flip()
	}
	logrus.Debugf("Refresh buffer ready with %d idle slots", slots)
	return b, nil
}

// Slot returns n-th slot for the producer side
func (b *Buffer) Slot(n int) (*Slot, error) {
	if n < 0 || n >= len(b.slots) {
		return nil, fmt.Errorf("%w: %d (must be 0-%d)", ErrInvalidSlot, n, len(b.slots)-1)
	}
	return &b.slots[n], nil
}

// Slots returns the number of slots
func (b *Buffer) Slots() int {
	return len(b.slots)
}

// Cursor returns the position of the next bit NextBit will return
func (b *Buffer) Cursor() (slot int, bit int) {
	return b.slot, b.bit
}

// NextBit returns the bit under the cursor and moves on. When the active packet of the current slot is
// exhausted the cursor goes to the next slot, which is flipped before any of its bits is read.
// It runs in constant time and never allocates. There must be a single caller.
func (b *Buffer) NextBit() bool {
	s := &b.slots[b.slot]
	res := s.Bit(b.bit)
	b.bit++
	if b.bit >= s.Len() {
		b.slot++
		if b.slot == len(b.slots) {
			b.slot = 0
		}
		b.slots[b.slot].Flip()
		b.bit = 0
	}
	return res
}
