package sci

import "errors"

// SCI operation codes, the first byte of every frame.
const (
	OpWrite uint8 = 0b10
	OpRead  uint8 = 0b11
)

// FrameBits is the length of an SCI frame on the wire.
const FrameBits = 32

var (
	errShortFrame = errors.New("sci: frame shorter than 4 bytes")
	errBadOpcode  = errors.New("sci: unknown opcode")
	errBadAddress = errors.New("sci: register address out of range")
)

// AppendWrite appends the 4 byte write frame for value at register a.
func AppendWrite(dst []byte, a Address, value uint16) []byte {
	return append(dst, OpWrite, uint8(a), uint8(value>>8), uint8(value))
}

// AppendRead appends the read frame for register a. The trailing 2 bytes are
// clocked out while the chip shifts the register value in.
func AppendRead(dst []byte, a Address) []byte {
	return append(dst, OpRead, uint8(a), 0, 0)
}

// ReadValue combines the response bytes of a read frame.
func ReadValue(miso []byte) uint16 {
	_ = miso[3]
	return uint16(miso[2])<<8 | uint16(miso[3])
}

// Frame is a decoded SCI transaction.
type Frame struct {
	Op    uint8
	Addr  Address
	Value uint16
}

// IsWrite reports whether the frame is a register write.
func (f Frame) IsWrite() bool { return f.Op == OpWrite }

// ParseFrame decodes a captured transaction. mosi holds bytes sent by the
// host and miso bytes sent by the chip; miso is only used for reads.
func ParseFrame(mosi, miso []byte) (Frame, error) {
	if len(mosi) < 4 {
		return Frame{}, errShortFrame
	}
	f := Frame{Op: mosi[0], Addr: Address(mosi[1])}
	if !f.Addr.Valid() {
		return f, errBadAddress
	}
	switch f.Op {
	case OpWrite:
		f.Value = uint16(mosi[2])<<8 | uint16(mosi[3])
	case OpRead:
		if len(miso) < 4 {
			return f, errShortFrame
		}
		f.Value = ReadValue(miso)
	default:
		return f, errBadOpcode
	}
	return f, nil
}
