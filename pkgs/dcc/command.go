package dcc

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MinAddress      = 1
	MaxAddress      = 9999
	MaxShortAddress = 127

	// MaxSpeed is the highest step of the 128 speed step mode (codes 2..127 on the wire)
	MaxSpeed = 126

	// MaxCommandBytes is the longest command we encode, checksum included
	MaxCommandBytes = 6
)

// instruction bytes, NMRA S-9.2 and S-9.2.1
const (
	broadcastIdle     = 0xFF
	longAddressMarker = 0xC0 // 11AAAAAA
	speed128Steps     = 0x3F // 001 11111: advanced operations, 128 speed step control
	speedStop         = 0x00
	speedEmergency    = 0x01
	directionForward  = 0x80

	fnGroup1     = 0x80 // 100D DDDD: FL F4 F3 F2 F1
	fnGroup2Low  = 0xB0 // 1011 DDDD: F8 F7 F6 F5
	fnGroup2High = 0xA0 // 1010 DDDD: F12 F11 F10 F9
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidSpeed   = errors.New("invalid speed")
	ErrInvalidLength  = errors.New("invalid command length")
)

// Address represents locomotive address
type Address uint16

func (a Address) Validate() error {
	if a < MinAddress || a > MaxAddress {
		return fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidAddress, a, MinAddress, MaxAddress)
	}
	return nil
}

// IsLong tells if the address needs the two byte form
func (a Address) IsLong() bool {
	return a > MaxShortAddress
}

// Command is a single DCC instruction as it goes on the wire: address byte(s), instruction byte(s)
// and the trailing XOR checksum. It is a value type, so building one never allocates.
type Command struct {
	buf [MaxCommandBytes]byte
	n   uint8
}

// NewCommand seals raw address and instruction bytes with a checksum
func NewCommand(payload ...byte) (Command, error) {
	if len(payload) < 2 || len(payload) > MaxCommandBytes-1 {
		return Command{}, fmt.Errorf("%w: %d bytes (must be 2-%d)", ErrInvalidLength, len(payload), MaxCommandBytes-1)
	}
	var c Command
	for _, b := range payload {
		c.push(b)
	}
	c.seal()
	return c, nil
}

func (c *Command) push(b byte) {
	c.buf[c.n] = b
	c.n++
}

func (c *Command) pushAddress(a Address) {
	if a.IsLong() {
		c.push(byte(a>>8) | longAddressMarker)
	}
	c.push(byte(a & 0xFF))
}

func (c *Command) seal() {
	c.push(xorSum(c.buf[:c.n]))
}

// Len returns the number of bytes including the checksum
func (c Command) Len() int {
	return int(c.n)
}

// Byte returns i-th byte of the command
func (c Command) Byte(i int) byte {
	return c.buf[i]
}

// Bytes returns a copy of the command bytes, checksum included
func (c Command) Bytes() []byte {
	out := make([]byte, c.n)
	copy(out, c.buf[:c.n])
	return out
}

// Checksum returns the trailing error detection byte
func (c Command) Checksum() byte {
	if c.n == 0 {
		return 0
	}
	return c.buf[c.n-1]
}

func (c Command) String() string {
	parts := make([]string, 0, c.n)
	for _, b := range c.buf[:c.n] {
		parts = append(parts, fmt.Sprintf("%02X", b))
	}
	return strings.Join(parts, " ")
}

// Idle is the broadcast idle packet: FF 00 FF
func Idle() Command {
	var c Command
	c.push(broadcastIdle)
	c.push(0x00)
	c.seal()
	return c
}

// Throttle builds a 128 speed step command. Speed 0 means stop, 1..126 are mapped to the wire codes 2..127
// as the code 1 is reserved for the emergency stop.
func Throttle(addr Address, speed uint8, forward bool, emergencyStop bool) (Command, error) {
	if err := addr.Validate(); err != nil {
		return Command{}, err
	}
	if speed > MaxSpeed {
		return Command{}, fmt.Errorf("%w: %d (must be 0-%d)", ErrInvalidSpeed, speed, MaxSpeed)
	}

	var c Command
	c.pushAddress(addr)
	c.push(speed128Steps)
	if emergencyStop {
		c.push(speedEmergency)
	} else {
		code := byte(speedStop)
		if speed > 0 {
			code = speed + 1
		}
		if forward {
			code |= directionForward
		}
		c.push(code)
	}
	c.seal()
	return c, nil
}

// FunctionGroup1 controls FL and F1-F4, bits ordered FL F4 F3 F2 F1
func FunctionGroup1(addr Address, bits byte) (Command, error) {
	return functionGroup(addr, fnGroup1, bits&0x1F)
}

// FunctionGroup2Low controls F5-F8, bits ordered F8 F7 F6 F5
func FunctionGroup2Low(addr Address, bits byte) (Command, error) {
	return functionGroup(addr, fnGroup2Low, bits&0x0F)
}

// FunctionGroup2High controls F9-F12, bits ordered F12 F11 F10 F9
func FunctionGroup2High(addr Address, bits byte) (Command, error) {
	return functionGroup(addr, fnGroup2High, bits&0x0F)
}

func functionGroup(addr Address, prefix byte, bits byte) (Command, error) {
	if err := addr.Validate(); err != nil {
		return Command{}, err
	}
	var c Command
	c.pushAddress(addr)
	c.push(prefix | bits)
	c.seal()
	return c, nil
}

func xorSum(b []byte) byte {
	var x byte
	for _, v := range b {
		x ^= v
	}
	return x
}
