package sci

import (
	"strconv"

	"golang.org/x/exp/constraints"
)

// Field is the bit range [first, last] of register type R.
type Field[R Register] struct {
	first, last uint8
}

// NewField returns the field spanning bits last down to first of R.
// It panics if the range does not satisfy 0 <= first <= last <= 15.
func NewField[R Register](last, first uint8) Field[R] {
	if first > last || last > 15 {
		panic("sci: bad field range [" + strconv.Itoa(int(last)) + ":" + strconv.Itoa(int(first)) + "]")
	}
	return Field[R]{first: first, last: last}
}

// Bit returns the single bit field n of R.
func Bit[R Register](n uint8) Field[R] { return NewField[R](n, n) }

func (f Field[R]) First() uint8 { return f.first }
func (f Field[R]) Last() uint8  { return f.last }
func (f Field[R]) Width() uint8 { return f.last - f.first + 1 }

// Mask returns the field bits in register position.
func (f Field[R]) Mask() uint16 { return bitmask[uint16](f.first, f.last) }

// Max returns the largest value the field can hold.
func (f Field[R]) Max() uint16 { return f.Mask() >> f.first }

// Get extracts the field value from r.
func (f Field[R]) Get(r R) uint16 {
	return (uint16(r) & f.Mask()) >> f.first
}

// Put returns r with the field set to v. Bits outside the field are kept and
// bits of v that do not fit the field are discarded.
func (f Field[R]) Put(r R, v uint16) R {
	m := f.Mask()
	return R((uint16(r) &^ m) | ((v << f.first) & m))
}

// IsSet reports whether any bit of the field is set in r. Mostly useful for Bit fields.
func (f Field[R]) IsSet(r R) bool { return uint16(r)&f.Mask() != 0 }

// Set returns r with the field set to b.
func (f Field[R]) Set(r R, b bool) R {
	if b {
		return f.Put(r, f.Max())
	}
	return f.Put(r, 0)
}

// bitmask returns a mask with bits first through last (inclusive) set.
func bitmask[T constraints.Unsigned](first, last uint8) T {
	width := last - first + 1
	var ones T = ^T(0)
	if int(width) < bitsize[T]() {
		ones = T(1)<<width - 1
	}
	return ones << first
}

func bitsize[T constraints.Unsigned]() int {
	n := 0
	for v := ^T(0); v != 0; v >>= 1 {
		n++
	}
	return n
}
