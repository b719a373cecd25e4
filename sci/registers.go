// Package sci describes the Serial Control Interface registers of the VS10x3
// family of audio decoders: addresses, access modes, power-on-reset values,
// bit fields and the worst case time the chip needs to process a write.
package sci

import "strconv"

// Address of an SCI register. Valid addresses are 0..15.
type Address uint8

const (
	AddrMode Address = iota
	AddrStatus
	AddrBass
	AddrClockF
	AddrDecodeTime
	AddrAuData
	AddrWRAM
	AddrWRAMAddr
	AddrHDAT0
	AddrHDAT1
	AddrAIAddr
	AddrVol
	AddrAICtrl0
	AddrAICtrl1
	AddrAICtrl2
	AddrAICtrl3

	NumRegisters = 16
)

// Access describes which SCI operations a register supports.
type Access uint8

const (
	AccessRW Access = iota
	AccessR
	AccessW
)

func (a Access) String() string {
	switch a {
	case AccessR:
		return "R"
	case AccessW:
		return "W"
	case AccessRW:
		return "RW"
	}
	return "Access(" + strconv.Itoa(int(a)) + ")"
}

// Readable reports whether the register can be read over SCI.
func (a Access) Readable() bool { return a != AccessW }

// Writable reports whether the register can be written over SCI.
func (a Access) Writable() bool { return a != AccessR }

// Info is static register metadata.
type Info struct {
	Name   string
	Access Access
	// POR is the power-on-reset value of the register.
	POR uint16
	// WriteDelay is the worst case busy time after the register is written.
	WriteDelay Delay
}

var registers = [NumRegisters]Info{
	AddrMode:       {Name: "MODE", Access: AccessRW, POR: 0x0800, WriteDelay: Clki(70)},
	AddrStatus:     {Name: "STATUS", Access: AccessRW, POR: 0x000C, WriteDelay: Clki(40)},
	AddrBass:       {Name: "BASS", Access: AccessRW, WriteDelay: Clki(2100)},
	AddrClockF:     {Name: "CLOCKF", Access: AccessRW, WriteDelay: Xtali(11000)},
	AddrDecodeTime: {Name: "DECODE_TIME", Access: AccessRW, WriteDelay: Clki(40)},
	AddrAuData:     {Name: "AUDATA", Access: AccessRW, WriteDelay: Clki(3200)},
	AddrWRAM:       {Name: "WRAM", Access: AccessRW, WriteDelay: Clki(80)},
	AddrWRAMAddr:   {Name: "WRAMADDR", Access: AccessRW, WriteDelay: Clki(80)},
	AddrHDAT0:      {Name: "HDAT0", Access: AccessR},
	AddrHDAT1:      {Name: "HDAT1", Access: AccessR},
	AddrAIAddr:     {Name: "AIADDR", Access: AccessRW, WriteDelay: Clki(3200)},
	AddrVol:        {Name: "VOL", Access: AccessRW, WriteDelay: Clki(2100)},
	AddrAICtrl0:    {Name: "AICTRL0", Access: AccessRW, WriteDelay: Clki(50)},
	AddrAICtrl1:    {Name: "AICTRL1", Access: AccessRW, WriteDelay: Clki(50)},
	AddrAICtrl2:    {Name: "AICTRL2", Access: AccessRW, WriteDelay: Clki(50)},
	AddrAICtrl3:    {Name: "AICTRL3", Access: AccessRW, WriteDelay: Clki(50)},
}

// Valid reports whether a is an existing SCI register address.
func (a Address) Valid() bool { return a < NumRegisters }

// Info returns the register metadata. It panics for invalid addresses.
func (a Address) Info() Info {
	if !a.Valid() {
		panic("sci: invalid register address " + strconv.Itoa(int(a)))
	}
	return registers[a]
}

// Lookup returns register metadata and whether the address is valid.
func Lookup(a Address) (Info, bool) {
	if !a.Valid() {
		return Info{}, false
	}
	return registers[a], true
}

func (a Address) String() string {
	if !a.Valid() {
		return "SCI(" + strconv.Itoa(int(a)) + ")"
	}
	return "SCI_" + registers[a].Name
}

// Register is satisfied by the typed shadow values of SCI registers.
// Binding a Field to a Register type keeps fields from being applied
// to the wrong register.
type Register interface {
	~uint16
	Addr() Address
}

// Mode is the SCI_MODE register.
type Mode uint16

// Status is the SCI_STATUS register.
type Status uint16

// Bass is the SCI_BASS register.
type Bass uint16

// ClockF is the SCI_CLOCKF register.
type ClockF uint16

// Vol is the SCI_VOL register.
type Vol uint16

func (Mode) Addr() Address   { return AddrMode }
func (Status) Addr() Address { return AddrStatus }
func (Bass) Addr() Address   { return AddrBass }
func (ClockF) Addr() Address { return AddrClockF }
func (Vol) Addr() Address    { return AddrVol }

// POR returns the power-on-reset value of register type R.
func POR[R Register]() R {
	var r R
	return R(r.Addr().Info().POR)
}

// SCI_MODE bits.
var (
	SMDiff      = Bit[Mode](0)
	SMSetToZero = Bit[Mode](1)
	SMReset     = Bit[Mode](2)
	SMOutOfWav  = Bit[Mode](3)
	SMPDown     = Bit[Mode](4)
	SMTests     = Bit[Mode](5)
	SMStream    = Bit[Mode](6)
	SMSetToZ2   = Bit[Mode](7)
	SMDAct      = Bit[Mode](8)
	SMSDIOrd    = Bit[Mode](9)
	SMSDIShare  = Bit[Mode](10)
	SMSDINew    = Bit[Mode](11)
	SMADPCM     = Bit[Mode](12)
	SMADPCMHP   = Bit[Mode](13)
	SMLineIn    = Bit[Mode](14)
)

// SCI_STATUS fields.
var (
	SSVer     = NewField[Status](6, 4)
	SSAPDown2 = Bit[Status](3)
	SSAPDown1 = Bit[Status](2)
	SSAVol    = NewField[Status](1, 0)
)

// SCI_BASS fields.
var (
	STAmplitude = NewField[Bass](15, 12)
	STFreqLimit = NewField[Bass](11, 8)
	SBAmplitude = NewField[Bass](7, 4)
	SBFreqLimit = NewField[Bass](3, 0)
)

// SCI_CLOCKF fields.
var (
	SCMult = NewField[ClockF](15, 13)
	SCAdd  = NewField[ClockF](12, 11)
	SCFreq = NewField[ClockF](10, 0)
)

// SCI_VOL fields. 0 is loudest, 0xFE silence, 0xFFFF on both powers down the analog section.
var (
	VolLeft  = NewField[Vol](15, 8)
	VolRight = NewField[Vol](7, 0)
)
