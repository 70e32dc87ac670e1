package commandstation

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/keskad/dcc/pkgs/dcc"
	"github.com/keskad/dcc/pkgs/power"
	"github.com/keskad/dcc/pkgs/refresh"
)

// NewLocal constructor
func NewLocal(buffer *refresh.Buffer, track *power.Track) *Local {
	return &Local{
		buffer:   buffer,
		track:    track,
		slots:    make([]slotState, buffer.Slots()),
		followUp: make([][]dcc.Command, buffer.Slots()),
	}
}

// Local is a command station generating the track signal itself from a refresh buffer.
// It is the only producer of the buffer; the signal generator is the consumer.
type Local struct {
	mu     sync.Mutex
	buffer *refresh.Buffer
	track  *power.Track
	slots  []slotState

	// content to load into a slot once the generator has picked up its current update
	followUp [][]dcc.Command
}

type slotState struct {
	LocoState
	used bool

	// which half of function group 2 goes into the refresh cycle
	group2High bool
}

func (l *Local) SetSlot(slot int, state LocoState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setSlot(slot, state)
}

func (l *Local) setSlot(slot int, state LocoState) error {
	s, err := l.buffer.Slot(slot)
	if err != nil {
		return err
	}
	prev := l.slots[slot]
	if !prev.used || prev.Addr != state.Addr {
		prev = slotState{}
	}
	high := chooseGroup2(prev, state.Functions)

	// Both halves of group 2 have to reach the decoder: the high half goes first, the low one follows
	// after the next flip. The same applies while the low half of an earlier update is still outstanding.
	bothHalves := prev.Functions.Group2Low() != state.Functions.Group2Low() &&
		prev.Functions.Group2High() != state.Functions.Group2High()
	unsent := l.followUp[slot] != nil
	if bothHalves || unsent {
		high = true
	}

	// everything is encoded before the slot is touched, so an invalid request leaves it as it was
	cmds, err := refreshCommands(state, high)
	if err != nil {
		return err
	}
	var followUp []dcc.Command
	if bothHalves || unsent {
		if followUp, err = refreshCommands(state, false); err != nil {
			return err
		}
		high = false
	}

	if err := s.Load(cmds...); err != nil {
		return fmt.Errorf("cannot load slot %d: %w", slot, err)
	}
	l.followUp[slot] = followUp
	l.release(state.Addr, slot)

	l.slots[slot] = slotState{LocoState: state, used: true, group2High: high}
	logrus.Debugf("Slot %d: %s", slot, state)
	return nil
}

// release puts idle into any slot other than keep that refreshes addr, a locomotive is driven by one slot only
func (l *Local) release(addr LocoAddr, keep int) {
	for i := range l.slots {
		if i == keep || !l.slots[i].used || l.slots[i].Addr != addr {
			continue
		}
		s, _ := l.buffer.Slot(i)
		if err := s.Load(dcc.Idle()); err != nil {
			logrus.Errorf("Cannot release slot %d: %s", i, err)
			continue
		}
		l.slots[i] = slotState{}
		l.followUp[i] = nil
		logrus.Debugf("Slot %d: loco %d moved to slot %d", i, addr, keep)
	}
}

// Poll loads the pending function group 2 follow-ups into the slots the generator has already flipped.
// It has to be called regularly while the generator runs.
func (l *Local) Poll() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, cmds := range l.followUp {
		if cmds == nil {
			continue
		}
		s, err := l.buffer.Slot(i)
		if err != nil {
			return err
		}
		if s.Pending() {
			continue
		}
		if err := s.Load(cmds...); err != nil {
			return fmt.Errorf("cannot load slot %d: %w", i, err)
		}
		l.followUp[i] = nil
		logrus.Debugf("Slot %d: function group 2 follow-up loaded", i)
	}
	return nil
}

// chooseGroup2 picks the half of function group 2 that changed last. A packet carries at most three
// commands, decoders latch function states, so the other half keeps what it got before.
func chooseGroup2(prev slotState, next dcc.Functions) bool {
	switch {
	case prev.Functions.Group2High() != next.Group2High():
		return true
	case prev.Functions.Group2Low() != next.Group2Low():
		return false
	}
	return prev.group2High
}

func refreshCommands(state LocoState, group2High bool) ([]dcc.Command, error) {
	addr := dcc.Address(state.Addr)
	throttle, err := dcc.Throttle(addr, state.Speed, state.Forward, false)
	if err != nil {
		return nil, err
	}
	fg1, err := dcc.FunctionGroup1(addr, state.Functions.Group1())
	if err != nil {
		return nil, err
	}
	var fg2 dcc.Command
	if group2High {
		fg2, err = dcc.FunctionGroup2High(addr, state.Functions.Group2High())
	} else {
		fg2, err = dcc.FunctionGroup2Low(addr, state.Functions.Group2Low())
	}
	if err != nil {
		return nil, err
	}
	return []dcc.Command{throttle, fg1, fg2}, nil
}

func (l *Local) EmergencyStop(slot int, addr LocoAddr) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.buffer.Slot(slot)
	if err != nil {
		return err
	}
	cmd, err := dcc.Throttle(dcc.Address(addr), 0, false, true)
	if err != nil {
		return err
	}
	if err := s.Load(cmd); err != nil {
		return fmt.Errorf("cannot load slot %d: %w", slot, err)
	}
	l.followUp[slot] = nil
	l.release(addr, slot)

	state := l.slots[slot]
	if !state.used || state.Addr != addr {
		state = slotState{LocoState: LocoState{Addr: addr}, used: true}
	}
	state.Speed = 0
	l.slots[slot] = state
	logrus.Infof("Slot %d: emergency stop for loco %d", slot, addr)
	return nil
}

// slotFor returns the slot already driving addr, or the first free one
func (l *Local) slotFor(addr LocoAddr) (int, error) {
	free := -1
	for i, s := range l.slots {
		if s.used && s.Addr == addr {
			return i, nil
		}
		if !s.used && free < 0 {
			free = i
		}
	}
	if free < 0 {
		return 0, fmt.Errorf("%w for loco %d (%d slots)", ErrNoFreeSlots, addr, len(l.slots))
	}
	return free, nil
}

// stateOf returns the current state for addr in the given slot, a fresh one for a new locomotive
func (l *Local) stateOf(slot int, addr LocoAddr) LocoState {
	s := l.slots[slot]
	if !s.used || s.Addr != addr {
		return LocoState{Addr: addr, Forward: true}
	}
	return s.LocoState
}

func (l *Local) SetSpeed(addr LocoAddr, speed uint8, forward bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, err := l.slotFor(addr)
	if err != nil {
		return err
	}
	state := l.stateOf(slot, addr)
	state.Speed = speed
	state.Forward = forward
	return l.setSlot(slot, state)
}

func (l *Local) GetSpeed(addr LocoAddr) (uint8, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.slots {
		if s.used && s.Addr == addr {
			return s.Speed, s.Forward, nil
		}
	}
	return 0, false, fmt.Errorf("%w: %d", ErrUnknownLoco, addr)
}

func (l *Local) SendFn(addr LocoAddr, num FuncNum, toggle bool) error {
	if err := num.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	slot, err := l.slotFor(addr)
	if err != nil {
		return err
	}
	state := l.stateOf(slot, addr)
	state.Functions = state.Functions.Set(int(num), toggle)
	return l.setSlot(slot, state)
}

func (l *Local) ListFunctions(addr LocoAddr) ([]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.slots {
		if s.used && s.Addr == addr {
			return s.Functions.Active(), nil
		}
	}
	return nil, nil
}

func (l *Local) PowerOn() error {
	l.track.On()
	return nil
}

func (l *Local) PowerOff() error {
	l.track.Off()
	return nil
}

// CleanUp switches the track off, the refresh buffer lives as long as the process
func (l *Local) CleanUp() error {
	logrus.Debug("Switching track power off")
	l.track.Off()
	return nil
}
