package main

import (
	"fmt"
	"strings"

	"github.com/soypat/saleae/analyzers"
	"github.com/soypat/vs10x3/sci"
)

// capture is a single chip-select window of a logic capture.
type capture struct {
	Start float64 // seconds
	MOSI  []byte
	MISO  []byte
}

func capturesFromSPI(txs []analyzers.TxSPI) []capture {
	caps := make([]capture, len(txs))
	for i, tx := range txs {
		caps[i] = capture{Start: tx.StartTime(), MOSI: tx.SDO, MISO: tx.SDI}
	}
	return caps
}

// scitx is a decoded SCI transaction.
type scitx struct {
	Num   int
	Frame sci.Frame
	Start float64
	// Gap is the time since the previous transaction started, in seconds.
	Gap float64
	// Early is set when the transaction started before the previous write's
	// worst case execution time elapsed.
	Early bool
	Err   error
	Raw   []byte
}

func (tx scitx) String() string {
	if tx.Err != nil {
		return fmt.Sprintf("%4d t=%.6f  invalid %x: %s", tx.Num, tx.Start, tx.Raw, tx.Err)
	}
	op := "RD"
	if tx.Frame.IsWrite() {
		op = "WR"
	}
	s := fmt.Sprintf("%4d t=%.6f gap=%9.1fus %s %-11s %#04x", tx.Num, tx.Start, tx.Gap*1e6, op, tx.Frame.Addr.String(), tx.Frame.Value)
	if fields := describe(tx.Frame.Addr, tx.Frame.Value); fields != "" {
		s += "  " + fields
	}
	if tx.Early {
		s += "  EARLY"
	}
	return s
}

// analyzer tracks the chip clocks across a capture so write delays can be checked.
type analyzer struct {
	xtali     uint32
	clki      uint32
	OmitRead  bool
	OmitWrite bool
}

func newAnalyzer(xtali uint32) *analyzer {
	return &analyzer{xtali: xtali, clki: xtali}
}

func (a *analyzer) process(caps []capture) (txs []scitx) {
	var (
		prevStart float64
		worstUs   uint32
	)
	for i, c := range caps {
		f, err := sci.ParseFrame(c.MOSI, c.MISO)
		tx := scitx{Num: i, Frame: f, Start: c.Start, Err: err, Raw: c.MOSI}
		if i > 0 {
			tx.Gap = c.Start - prevStart
			tx.Early = worstUs > 0 && tx.Gap*1e6 < float64(worstUs)
		}
		prevStart = c.Start
		worstUs = 0
		if err == nil && f.IsWrite() {
			worstUs = 1 + f.Addr.Info().WriteDelay.Micros(a.xtali, a.clki)
			if f.Addr == sci.AddrClockF {
				cf := sci.ClockF(f.Value)
				a.xtali = sci.HzFromFreq(cf.Freq())
				a.clki = cf.Mult().ClkiForXtali(a.xtali)
			}
		}
		if (a.OmitRead && err == nil && !f.IsWrite()) || (a.OmitWrite && f.IsWrite()) {
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}

var modeBits = [...]struct {
	name string
	f    sci.Field[sci.Mode]
}{
	{"DIFF", sci.SMDiff}, {"SETTOZERO", sci.SMSetToZero}, {"RESET", sci.SMReset},
	{"OUTOFWAV", sci.SMOutOfWav}, {"PDOWN", sci.SMPDown}, {"TESTS", sci.SMTests},
	{"STREAM", sci.SMStream}, {"SETTOZERO2", sci.SMSetToZ2}, {"DACT", sci.SMDAct},
	{"SDIORD", sci.SMSDIOrd}, {"SDISHARE", sci.SMSDIShare}, {"SDINEW", sci.SMSDINew},
	{"ADPCM", sci.SMADPCM}, {"ADPCM_HP", sci.SMADPCMHP}, {"LINE_IN", sci.SMLineIn},
}

// describe breaks a register value into its named fields.
func describe(addr sci.Address, v uint16) string {
	switch addr {
	case sci.AddrMode:
		var names []string
		for _, b := range modeBits {
			if b.f.IsSet(sci.Mode(v)) {
				names = append(names, b.name)
			}
		}
		return "[" + strings.Join(names, "|") + "]"
	case sci.AddrStatus:
		s := sci.Status(v)
		return fmt.Sprintf("ver=%d(%s) apdown2=%v apdown1=%v avol=%d",
			sci.SSVer.Get(s), s.Version().ChipName(), sci.SSAPDown2.IsSet(s), sci.SSAPDown1.IsSet(s), sci.SSAVol.Get(s))
	case sci.AddrClockF:
		c := sci.ClockF(v)
		xtali := sci.HzFromFreq(c.Freq())
		return fmt.Sprintf("mult=%d add=%d freq=%d xtali=%dHz clki=%dHz",
			c.Mult(), c.Add(), c.Freq(), xtali, c.Mult().ClkiForXtali(xtali))
	case sci.AddrBass:
		b := sci.Bass(v)
		return fmt.Sprintf("treble=%d@%d bass=%d@%d",
			sci.STAmplitude.Get(b), sci.STFreqLimit.Get(b), sci.SBAmplitude.Get(b), sci.SBFreqLimit.Get(b))
	case sci.AddrVol:
		vol := sci.Vol(v)
		return fmt.Sprintf("left=%d right=%d", sci.VolLeft.Get(vol), sci.VolRight.Get(vol))
	}
	return ""
}
