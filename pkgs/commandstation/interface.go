package commandstation

import (
	"errors"
	"fmt"

	"github.com/keskad/dcc/pkgs/dcc"
)

var (
	ErrNoFreeSlots     = errors.New("no free slots")
	ErrUnknownLoco     = errors.New("locomotive is not in any slot")
	ErrInvalidFunction = errors.New("invalid function number")
)

type Station interface {
	// SetSlot replaces the refresh content of a slot with the given locomotive state
	SetSlot(slot int, state LocoState) error
	// EmergencyStop replaces the refresh content of a slot with a single emergency stop command
	EmergencyStop(slot int, addr LocoAddr) error
	// SetSpeed sets the speed and direction of a locomotive, the first free slot is taken for a new address
	SetSpeed(addr LocoAddr, speed uint8, forward bool) error
	GetSpeed(addr LocoAddr) (speed uint8, forward bool, err error)
	SendFn(addr LocoAddr, num FuncNum, toggle bool) error
	// ListFunctions returns a list of function numbers that are currently active (on) for the given locomotive
	ListFunctions(addr LocoAddr) ([]int, error)
	// Poll finishes multi-step slot updates, it is called periodically while the signal runs
	Poll() error
	PowerOn() error
	PowerOff() error
	CleanUp() error
}

// LocoAddr represents locomotive address
type LocoAddr uint16

// Function number
type FuncNum int

func (n FuncNum) Validate() error {
	if n < 0 || n > dcc.MaxFunction {
		return fmt.Errorf("%w: F%d (must be F0-F%d)", ErrInvalidFunction, n, dcc.MaxFunction)
	}
	return nil
}

// LocoState is what a slot keeps repeating for a locomotive
type LocoState struct {
	Addr      LocoAddr
	Speed     uint8
	Forward   bool
	Functions dcc.Functions
}

func (s LocoState) String() string {
	dir := "backward"
	if s.Forward {
		dir = "forward"
	}
	return fmt.Sprintf("loco:%d,speed:%d,direction:%s,functions:%v", s.Addr, s.Speed, dir, s.Functions.Active())
}
