package dcc

import (
	"errors"
	"fmt"
)

// MinPreamble is the shortest preamble a decoder has to accept
const MinPreamble = 14

var (
	ErrShortPreamble = errors.New("preamble too short")
	ErrTruncated     = errors.New("bit stream truncated")
	ErrChecksum      = errors.New("checksum mismatch")
	ErrUnknown       = errors.New("unknown instruction")
)

// BitStream is a sequence of encoded DCC commands, addressable bit by bit
type BitStream interface {
	// Len in bits
	Len() int
	Bit(i int) bool
}

// Bits is a trivial BitStream backed by a bool slice
type Bits []bool

func (b Bits) Len() int       { return len(b) }
func (b Bits) Bit(i int) bool { return b[i] }

// Frame is a single command found in a bit stream
type Frame struct {
	Offset   int // bit position of the first preamble bit
	Preamble int
	Bytes    []byte
}

// Valid tells if the checksum of the frame is correct
func (f Frame) Valid() bool {
	return len(f.Bytes) >= 3 && xorSum(f.Bytes) == 0
}

// DecodeStream splits a bit stream into frames. Trailing one bits that do not start a new command are
// treated as padding.
func DecodeStream(s BitStream) ([]Frame, error) {
	var frames []Frame
	pos := 0
	for pos < s.Len() {
		frame, next, err := decodeFrame(s, pos)
		if err != nil {
			return frames, err
		}
		if next < 0 {
			break
		}
		frames = append(frames, frame)
		pos = next
	}
	return frames, nil
}

// decodeFrame returns the frame starting at pos and the position right after its stop bit, or -1 when only
// padding is left
func decodeFrame(s BitStream, pos int) (Frame, int, error) {
	frame := Frame{Offset: pos}
	for pos < s.Len() && s.Bit(pos) {
		frame.Preamble++
		pos++
	}
	if pos >= s.Len() {
		return frame, -1, nil
	}
	if frame.Preamble < MinPreamble {
		return frame, 0, fmt.Errorf("%w: %d bits at %d", ErrShortPreamble, frame.Preamble, frame.Offset)
	}

	// a zero is the data start bit, a one is the packet end bit
	for !s.Bit(pos) {
		pos++
		if pos+8 > s.Len() {
			return frame, 0, fmt.Errorf("%w: data byte %d at bit %d", ErrTruncated, len(frame.Bytes), pos)
		}
		var b byte
		for j := 0; j < 8; j++ {
			b <<= 1
			if s.Bit(pos) {
				b |= 1
			}
			pos++
		}
		frame.Bytes = append(frame.Bytes, b)
		if pos >= s.Len() {
			return frame, 0, fmt.Errorf("%w: missing packet end bit at %d", ErrTruncated, pos)
		}
	}
	return frame, pos + 1, nil
}

// Kind of instruction carried by a command
type Kind int

const (
	KindIdle Kind = iota
	KindThrottle
	KindFunctionGroup1
	KindFunctionGroup2Low
	KindFunctionGroup2High
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindThrottle:
		return "throttle"
	case KindFunctionGroup1:
		return "fn-group-1"
	case KindFunctionGroup2Low:
		return "fn-group-2-low"
	case KindFunctionGroup2High:
		return "fn-group-2-high"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Instruction is the logical meaning of a decoded command
type Instruction struct {
	Kind          Kind
	Address       Address
	Speed         uint8
	Forward       bool
	EmergencyStop bool

	// Functions holds the raw bits of a function group instruction, in the wire order
	Functions byte
}

func (in Instruction) String() string {
	switch in.Kind {
	case KindIdle:
		return "idle"
	case KindThrottle:
		if in.EmergencyStop {
			return fmt.Sprintf("adr=%d emergency stop", in.Address)
		}
		dir := "backward"
		if in.Forward {
			dir = "forward"
		}
		return fmt.Sprintf("adr=%d speed=%d %s", in.Address, in.Speed, dir)
	case KindFunctionGroup1:
		return fmt.Sprintf("adr=%d FL-F4-F3-F2-F1=%05b", in.Address, in.Functions)
	case KindFunctionGroup2Low:
		return fmt.Sprintf("adr=%d F8-F7-F6-F5=%04b", in.Address, in.Functions)
	case KindFunctionGroup2High:
		return fmt.Sprintf("adr=%d F12-F11-F10-F9=%04b", in.Address, in.Functions)
	}
	return in.Kind.String()
}

// Interpret translates command bytes, checksum included, back to an instruction
func Interpret(raw []byte) (Instruction, error) {
	if len(raw) < 3 {
		return Instruction{}, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(raw))
	}
	if xorSum(raw) != 0 {
		return Instruction{}, fmt.Errorf("%w: % X", ErrChecksum, raw)
	}
	data := raw[:len(raw)-1]

	if data[0] == broadcastIdle {
		return Instruction{Kind: KindIdle}, nil
	}

	var in Instruction
	if data[0]&longAddressMarker == longAddressMarker {
		if len(data) < 3 {
			return Instruction{}, fmt.Errorf("%w: % X", ErrTruncated, raw)
		}
		in.Address = Address(data[0]&0x3F)<<8 | Address(data[1])
		data = data[2:]
	} else {
		in.Address = Address(data[0])
		data = data[1:]
	}

	op := data[0]
	switch {
	case op == speed128Steps:
		if len(data) < 2 {
			return Instruction{}, fmt.Errorf("%w: % X", ErrTruncated, raw)
		}
		in.Kind = KindThrottle
		code := data[1] & 0x7F
		switch code {
		case speedEmergency:
			in.EmergencyStop = true
		case speedStop:
			in.Forward = data[1]&directionForward != 0
		default:
			in.Speed = code - 1
			in.Forward = data[1]&directionForward != 0
		}
	case op&0xE0 == fnGroup1:
		in.Kind = KindFunctionGroup1
		in.Functions = op & 0x1F
	case op&0xF0 == fnGroup2Low:
		in.Kind = KindFunctionGroup2Low
		in.Functions = op & 0x0F
	case op&0xF0 == fnGroup2High:
		in.Kind = KindFunctionGroup2High
		in.Functions = op & 0x0F
	default:
		return Instruction{}, fmt.Errorf("%w: % X", ErrUnknown, raw)
	}
	return in, nil
}
