package sci

// Version is the SS_VER field of SCI_STATUS.
type Version uint8

const (
	VersionVS1001 Version = 0
	VersionVS1011 Version = 1
	VersionVS1002 Version = 2
	VersionVS1003 Version = 3
	// VersionUnknown is never read from hardware, it marks an unread version.
	VersionUnknown Version = 0xff
)

// ChipName returns the name of the chip reporting version v.
func (v Version) ChipName() string {
	switch v {
	case VersionVS1001:
		return "VS1001"
	case VersionVS1011:
		return "VS1011"
	case VersionVS1002:
		return "VS1002"
	case VersionVS1003:
		return "VS1003"
	}
	return "Unknown"
}

// Version returns the chip version stored in the status register.
func (s Status) Version() Version { return Version(SSVer.Get(s)) }

// Mult is the SC_MULT field of SCI_CLOCKF.
type Mult uint8

// ClkiForXtali returns the internal clock frequency in Hz for a crystal frequency xtali.
//
//	clki = xtali * (2 + mult) / 2
func (m Mult) ClkiForXtali(xtali uint32) uint32 {
	return uint32(uint64(xtali) * (2 + uint64(m)) / 2)
}

// Mult returns the clock multiplier field.
func (c ClockF) Mult() Mult { return Mult(SCMult.Get(c)) }

// Add returns the SC_ADD field, the multiplier addition allowed to firmware.
func (c ClockF) Add() uint8 { return uint8(SCAdd.Get(c)) }

// Freq returns the SC_FREQ field.
func (c ClockF) Freq() uint16 { return SCFreq.Get(c) }

// DefaultXtaliHz is the crystal frequency the chip assumes when SC_FREQ is 0.
const DefaultXtaliHz = 12_288_000

// FreqFromHz returns the SC_FREQ encoding of a crystal frequency in Hz.
func FreqFromHz(hz uint32) uint16 {
	return uint16((hz - 8_000_000) / 4000)
}

// HzFromFreq is the inverse of FreqFromHz. A value of 0 selects DefaultXtaliHz.
func HzFromFreq(freq uint16) uint32 {
	if freq == 0 {
		return DefaultXtaliHz
	}
	return uint32(freq)*4000 + 8_000_000
}
