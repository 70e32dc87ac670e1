package syntax

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/keskad/dcc/pkgs/dcc"
)

// Verb is the first letter of a protocol line, case-insensitive
type Verb byte

const (
	// S <slot> <address> <speed> <direction> [<function-bits>]
	VerbSlot Verb = 'S'
	// N <slot> <address>
	VerbEmergency Verb = 'N'
	VerbPowerOn   Verb = 'P'
	VerbPowerOff  Verb = 'O'
	// T <address> <speed> <direction>, the station picks the slot
	VerbThrottle Verb = 'T'
	// F <address> <function> <0|1>
	VerbFunction Verb = 'F'
	// Q <address>
	VerbQuery Verb = 'Q'
	// L <hex bytes>, LocoNet relay
	VerbLocoNet Verb = 'L'
)

// FunctionCount is F0 (FL) up to F12
const FunctionCount = 13

var (
	ErrNoCommand          = errors.New("no command")
	ErrUnsupported        = errors.New("unsupported command")
	ErrNoSlot             = errors.New("no slot")
	ErrNoAddress          = errors.New("no address")
	ErrNoSpeed            = errors.New("no speed")
	ErrNoDirection        = errors.New("no direction")
	ErrNoFunction         = errors.New("no function")
	ErrInvalidFunctionBit = errors.New("invalid function bits")
	ErrTrailingInput      = errors.New("unexpected trailing input")
)

// FunctionBits are the 13 function states in wire order, FL-F4-F3-F2-F1-F8-F7-F6-F5-F12-F11-F10-F9,
// most significant bit first
type FunctionBits uint16

// Functions converts the wire order into function numbers
func (f FunctionBits) Functions() dcc.Functions {
	return dcc.FunctionsFromGroups(byte(f>>8)&0x1F, byte(f>>4)&0x0F, byte(f)&0x0F)
}

// FunctionBitsFrom is the reverse of FunctionBits.Functions
func FunctionBitsFrom(fns dcc.Functions) FunctionBits {
	return FunctionBits(fns.Group1())<<8 | FunctionBits(fns.Group2Low())<<4 | FunctionBits(fns.Group2High())
}

func (f FunctionBits) String() string {
	return fmt.Sprintf("%013b", uint16(f))
}

// Request is a single parsed protocol line
type Request struct {
	Verb      Verb
	Slot      int
	Address   dcc.Address
	Speed     uint8
	Forward   bool
	Functions FunctionBits

	// single function switch of the F verb
	Function int
	On       bool
}

func (r Request) String() string {
	switch r.Verb {
	case VerbSlot:
		return fmt.Sprintf("S %d %d %d %s %s", r.Slot, r.Address, r.Speed, direction(r.Forward), r.Functions)
	case VerbEmergency:
		return fmt.Sprintf("N %d %d", r.Slot, r.Address)
	case VerbThrottle:
		return fmt.Sprintf("T %d %d %s", r.Address, r.Speed, direction(r.Forward))
	case VerbFunction:
		return fmt.Sprintf("F %d %d %s", r.Address, r.Function, direction(r.On))
	case VerbQuery:
		return fmt.Sprintf("Q %d", r.Address)
	}
	return string(r.Verb)
}

func direction(forward bool) string {
	if forward {
		return "1"
	}
	return "0"
}

// ParseLine parses a single line of the serial command protocol. Address and speed are validated here,
// the slot number is checked by the command station which knows how many slots there are.
func ParseLine(line string) (Request, error) {
	line = strings.TrimSpace(strings.TrimRight(line, "\r\n"))
	if line == "" {
		return Request{}, ErrNoCommand
	}

	req := Request{Verb: Verb(strings.ToUpper(line[:1])[0])}
	args := strings.Fields(line[1:])

	switch req.Verb {
	case VerbSlot:
		return parseSlot(req, args)
	case VerbEmergency:
		return parseEmergency(req, args)
	case VerbThrottle:
		return parseThrottle(req, args)
	case VerbFunction:
		return parseFunction(req, args)
	case VerbQuery:
		return parseQuery(req, args)
	case VerbPowerOn, VerbPowerOff:
		if len(args) > 0 {
			return Request{}, fmt.Errorf("%w: %s", ErrTrailingInput, strings.Join(args, " "))
		}
		return req, nil
	case VerbLocoNet:
		return Request{}, fmt.Errorf("%w: LocoNet relay", ErrUnsupported)
	}
	return Request{}, fmt.Errorf("%w: %q", ErrNoCommand, line[:1])
}

func parseSlot(req Request, args []string) (Request, error) {
	var err error
	if req.Slot, req.Address, err = parseSlotAndAddress(args); err != nil {
		return Request{}, err
	}

	if req.Speed, req.Forward, err = parseSpeedAndDirection(args[2:]); err != nil {
		return Request{}, err
	}

	// function bits are optional and may be split by blanks, missing ones are off
	bits := strings.Join(args[4:], "")
	if len(bits) > FunctionCount {
		return Request{}, fmt.Errorf("%w: %d bits, at most %d", ErrInvalidFunctionBit, len(bits), FunctionCount)
	}
	for _, c := range bits {
		req.Functions <<= 1
		switch c {
		case '1':
			req.Functions |= 1
		case '0':
		default:
			return Request{}, fmt.Errorf("%w: %q", ErrInvalidFunctionBit, c)
		}
	}
	req.Functions <<= uint(FunctionCount - len(bits))

	return req, nil
}

func parseEmergency(req Request, args []string) (Request, error) {
	var err error
	if req.Slot, req.Address, err = parseSlotAndAddress(args); err != nil {
		return Request{}, err
	}
	if len(args) > 2 {
		return Request{}, fmt.Errorf("%w: %s", ErrTrailingInput, strings.Join(args[2:], " "))
	}
	return req, nil
}

func parseThrottle(req Request, args []string) (Request, error) {
	var err error
	if req.Address, err = parseAddress(args); err != nil {
		return Request{}, err
	}
	if req.Speed, req.Forward, err = parseSpeedAndDirection(args[1:]); err != nil {
		return Request{}, err
	}
	if len(args) > 3 {
		return Request{}, fmt.Errorf("%w: %s", ErrTrailingInput, strings.Join(args[3:], " "))
	}
	return req, nil
}

func parseFunction(req Request, args []string) (Request, error) {
	var err error
	if req.Address, err = parseAddress(args); err != nil {
		return Request{}, err
	}
	if len(args) < 2 {
		return Request{}, ErrNoFunction
	}
	num, err := strconv.ParseUint(strings.TrimPrefix(strings.ToUpper(args[1]), "F"), 10, 8)
	if err != nil || num > dcc.MaxFunction {
		return Request{}, fmt.Errorf("%w: %s (must be 0-%d)", ErrNoFunction, args[1], dcc.MaxFunction)
	}
	req.Function = int(num)

	if len(args) < 3 {
		return Request{}, fmt.Errorf("%w: missing on/off", ErrNoFunction)
	}
	switch args[2] {
	case "1":
		req.On = true
	case "0":
		req.On = false
	default:
		return Request{}, fmt.Errorf("%w: %s (must be 0 or 1)", ErrNoFunction, args[2])
	}
	if len(args) > 3 {
		return Request{}, fmt.Errorf("%w: %s", ErrTrailingInput, strings.Join(args[3:], " "))
	}
	return req, nil
}

func parseQuery(req Request, args []string) (Request, error) {
	var err error
	if req.Address, err = parseAddress(args); err != nil {
		return Request{}, err
	}
	if len(args) > 1 {
		return Request{}, fmt.Errorf("%w: %s", ErrTrailingInput, strings.Join(args[1:], " "))
	}
	return req, nil
}

func parseSlotAndAddress(args []string) (int, dcc.Address, error) {
	if len(args) < 1 {
		return 0, 0, ErrNoSlot
	}
	slot, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrNoSlot, args[0])
	}
	addr, err := parseAddress(args[1:])
	if err != nil {
		return 0, 0, err
	}
	return int(slot), addr, nil
}

// parseAddress reads the address from the first argument
func parseAddress(args []string) (dcc.Address, error) {
	if len(args) < 1 {
		return 0, ErrNoAddress
	}
	addr, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNoAddress, args[0])
	}
	if err := dcc.Address(addr).Validate(); err != nil {
		return 0, err
	}
	return dcc.Address(addr), nil
}

// parseSpeedAndDirection reads "<speed> <direction>" from the first two arguments
func parseSpeedAndDirection(args []string) (uint8, bool, error) {
	if len(args) < 1 {
		return 0, false, ErrNoSpeed
	}
	speed, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil || speed > dcc.MaxSpeed {
		return 0, false, fmt.Errorf("%w: %s (must be 0-%d)", dcc.ErrInvalidSpeed, args[0], dcc.MaxSpeed)
	}

	if len(args) < 2 {
		return 0, false, ErrNoDirection
	}
	switch args[1] {
	case "1":
		return uint8(speed), true, nil
	case "0":
		return uint8(speed), false, nil
	}
	return 0, false, fmt.Errorf("%w: %s (must be 0 or 1)", ErrNoDirection, args[1])
}
