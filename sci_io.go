package vs10x3

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/soypat/vs10x3/sci"
)

// waitSCIReady blocks until the chip can accept the next SCI command. The wait
// ends early if DREQ goes active before the worst case duration of the last
// command elapses.
func (d *Device) waitSCIReady() {
	if d.lastCmdWorst == 0 {
		d.trace("sci:no previous command")
		return
	}
	since := d.sinceMicros(d.lastCmdSent)
	if since <= 1 {
		// XCS must stay inactive for at least 2 CLKI between commands.
		d.sleep(time.Microsecond)
	}
	txTime := d.frameMicros()
	if d.lastCmdWorst < txTime {
		d.trace("sci:command done before transmission ends", slog.Uint64("worst", uint64(d.lastCmdWorst)), slog.Uint64("tx", uint64(txTime)))
		return
	}
	toWait := d.lastCmdWorst - txTime
	d.trace("sci:waiting", slog.Uint64("us", uint64(toWait)))
	for !d.dreqActive() && d.sinceMicros(d.lastCmdSent) < toWait {
		d.sleep(time.Microsecond)
	}
}

// frameMicros is the time it takes to shift out a 32 bit SCI frame.
func (d *Device) frameMicros() uint32 {
	return uint32(1_000_000 * sci.FrameBits / uint64(d.sciRate))
}

func (d *Device) writeRegister(addr sci.Address, v uint16) error {
	d.waitSCIReady()
	frame := sci.AppendWrite(d.txbuf[:0], addr, v)
	d.csEnable(true)
	err := d.spi.Tx(frame, nil)
	d.csEnable(false)
	d.lastCmdSent = d.now()
	d.lastCmdWorst = 1 + d.delayToMicros(addr.Info().WriteDelay)
	d.trace("sci:write", slog.String("reg", addr.String()), slog.Uint64("val", uint64(v)), slog.Uint64("worst", uint64(d.lastCmdWorst)))
	if err != nil {
		return err
	}
	d.updateShadow(addr, v)
	return nil
}

func (d *Device) readRegister(addr sci.Address) (uint16, error) {
	d.waitSCIReady()
	frame := sci.AppendRead(d.txbuf[:0], addr)
	d.csEnable(true)
	err := d.spi.Tx(frame, d.rxbuf[:len(frame)])
	d.csEnable(false)
	d.lastCmdSent = d.now()
	d.lastCmdWorst = 1
	if err != nil {
		return 0, err
	}
	v := sci.ReadValue(d.rxbuf[:])
	d.trace("sci:read", slog.String("reg", addr.String()), slog.Uint64("val", uint64(v)))
	d.updateShadow(addr, v)
	return v, nil
}

// updateShadow keeps the register shadows and the derived clock in sync with
// values known to be in hardware.
func (d *Device) updateShadow(addr sci.Address, v uint16) {
	switch addr {
	case sci.AddrMode:
		d.mode = sci.Mode(v)
	case sci.AddrStatus:
		d.status = sci.Status(v)
	case sci.AddrClockF:
		d.clockf = sci.ClockF(v)
		d.clki = d.clockf.Mult().ClkiForXtali(d.xtali)
	}
}

// csEnable asserts the active low chip select when b is true.
func (d *Device) csEnable(b bool) {
	d.cs(!b)
}

// spin busy waits for dur. Used for microsecond waits where a scheduler
// sleep would overshoot.
func spin(dur time.Duration) {
	start := time.Now()
	for time.Since(start) < dur {
		runtime.Gosched()
	}
}
