package refresh

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/keskad/dcc/pkgs/dcc"
)

var ErrNoCommands = errors.New("no commands to load")

// hand-off states of the staging packet
const (
	stateIdle     uint32 = iota // staging packet is empty and free
	stateWriting                // producer is building the staging packet
	stateReady                  // staging packet is complete, waiting for the consumer
	stateFlipping               // consumer is swapping the roles
)

// Slot is a pair of packets: the active one is modulated, the staging one latches new commands.
//
// There is a single producer (Stage, Commit, Load) and a single consumer (Flip, Bit, Len). The consumer
// swaps the roles itself, only at a packet boundary, and never waits for the producer: a staging packet
// that is still being written is simply left for the next boundary.
type Slot struct {
	packets [2]Packet
	active  atomic.Uint32
	state   atomic.Uint32
}

func (s *Slot) activePacket() *Packet {
	return &s.packets[s.active.Load()]
}

func (s *Slot) stagingPacket() *Packet {
	return &s.packets[1-s.active.Load()]
}

// Stage hands the staging packet to the producer. Content staged earlier but not yet flipped stays in the
// packet, callers normally Reset it first. Every Stage has to be followed by Commit.
func (s *Slot) Stage() *Packet {
	for {
		switch st := s.state.Load(); st {
		case stateIdle, stateReady:
			if s.state.CompareAndSwap(st, stateWriting) {
				return s.stagingPacket()
			}
		case stateWriting:
			return s.stagingPacket()
		}
		// the consumer is in the middle of a flip, it takes constant time
		runtime.Gosched()
	}
}

// Commit publishes the staging packet, so the consumer flips it in at the next boundary. Committing an
// empty packet withdraws the pending update.
func (s *Slot) Commit() {
	next := stateReady
	if s.stagingPacket().Len() == 0 {
		next = stateIdle
	}
	s.state.CompareAndSwap(stateWriting, next)
}

// Load replaces the staged content of the slot with the given commands. Nothing is touched when the
// commands do not fit into a packet.
func (s *Slot) Load(cmds ...dcc.Command) error {
	if len(cmds) == 0 {
		return ErrNoCommands
	}
	if err := checkCapacity(cmds); err != nil {
		return err
	}

	p := s.Stage()
	p.Reset()
	for _, cmd := range cmds {
		if err := p.Append(cmd); err != nil {
			p.Reset()
			s.Commit()
			return err
		}
	}
	s.Commit()
	return nil
}

// Pending tells if there is a committed update waiting for the next flip
func (s *Slot) Pending() bool {
	return s.state.Load() == stateReady
}

// Flip promotes a committed staging packet to active and empties the former active one. Without a
// committed update it does nothing, so the slot keeps repeating its last content.
// Only the consumer calls Flip, and only between two full traversals of the active packet.
func (s *Slot) Flip() {
	if !s.state.CompareAndSwap(stateReady, stateFlipping) {
		return
	}
	next := 1 - s.active.Load()
	s.active.Store(next)
	s.packets[1-next].Reset()
	s.state.Store(stateIdle)
}

// Bit reads the active packet
func (s *Slot) Bit(i int) bool {
	return s.activePacket().Bit(i)
}

// Len of the active packet in bits
func (s *Slot) Len() int {
	return s.activePacket().Len()
}
