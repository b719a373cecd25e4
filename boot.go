package vs10x3

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/soypat/vs10x3/sci"
)

const (
	// statusBootGarbage is seen in the low nibble of SCI_STATUS shortly after
	// boot on some VS1003 parts. It is the register's POR value.
	statusBootGarbage = 0xC
	// maxStatusReads bounds how long validation waits for a settled status.
	maxStatusReads = 1000
)

// enterBoot releases the reset line and starts timing the chip boot.
func (d *Device) enterBoot() {
	if d.rst != nil {
		d.rst(true)
	}
	d.hwResetStart = d.now()
	d.inHWReset = true
	d.state = StateBooting
	d.err = nil
}

// handleReset is the boot state machine step. It must not block: while the
// chip is booting it returns after a couple of comparisons.
func (d *Device) handleReset() error {
	if !d.inHWReset {
		return nil
	}
	worstBoot := d.delayToMicros(sci.WorstBootDelay)
	if d.dreq() {
		d.info("reset completed", slog.Uint64("us", uint64(d.sinceMicros(d.hwResetStart))), slog.Uint64("worstus", uint64(worstBoot)))
		err := d.validateBoot()
		if err != nil && !errors.Is(err, ErrUnsupportedChip) {
			// Bus failure, check again next tick.
			d.logerr("boot validation failed", slog.String("err", err.Error()))
			return err
		}
		d.inHWReset = false
		d.state = StateReady
		return err
	}
	elapsed := d.sinceMicros(d.hwResetStart)
	if elapsed < worstBoot {
		d.trace("waiting chip boot", slog.Uint64("us", uint64(elapsed)), slog.Uint64("worstus", uint64(worstBoot)))
		return nil
	}

	if d.rst == nil {
		d.state = StateFailed
		d.err = ErrNotResponding
		d.logerr("chip not responding after hw boot, check dreq pin or configure a reset pin", slog.Uint64("us", uint64(elapsed)))
		return ErrNotResponding
	}
	d.resetAttempts++
	attrs := []slog.Attr{slog.Uint64("us", uint64(elapsed)), slog.Uint64("worstus", uint64(worstBoot)), slog.Int("attempt", d.resetAttempts)}
	if d.resetAttempts == 1 {
		d.warn("chip not responding, resetting again; check dreq pin", attrs...)
	} else {
		d.debug("chip not responding, resetting again", attrs...)
	}
	d.pulseReset()
	d.hwResetStart = d.now()
	return nil
}

// pulseReset holds the chip in reset for at least 2 XTALI periods.
func (d *Device) pulseReset() {
	d.rst(false)
	d.sleep(micros(d.xtaliToMicros(2) + 1))
	d.rst(true)
	d.clki = d.xtali // CLOCKF back to its POR value.
}

// validateBoot reads back mode and status, checks the chip version and
// programs the clock. An unsupported version is recorded and returned but
// the clock is still programmed.
func (d *Device) validateBoot() (err error) {
	d.trace("reading mode after hw reset")
	mode, err := d.readRegister(sci.AddrMode)
	if err != nil {
		return err
	}
	d.debug("chip mode", slog.Uint64("mode", uint64(mode)))

	var status uint16
	for i := 0; ; i++ {
		status, err = d.readRegister(sci.AddrStatus)
		if err != nil {
			return err
		}
		if status&0xf != statusBootGarbage {
			break
		}
		if i == maxStatusReads {
			d.warn("status did not settle after boot", slog.Uint64("status", uint64(status)))
			break
		}
		d.trace("status not settled, reading again", slog.Uint64("status", uint64(status)))
	}
	d.version = d.status.Version()
	d.debug("chip status", slog.Uint64("status", uint64(status)), slog.String("chip", d.version.ChipName()), slog.Int("version", int(d.version)))

	var verErr error
	if d.version != sci.VersionVS1003 {
		verErr = fmt.Errorf("%w %#02x: %s", ErrUnsupportedChip, uint8(d.version), d.version.ChipName())
		d.err = verErr
		d.warn("chip not supported", slog.String("chip", d.version.ChipName()), slog.Int("version", int(d.version)))
	}

	clockf := sci.SCFreq.Put(d.clockf, sci.FreqFromHz(d.xtali))
	if err = d.writeClockF(clockf); err != nil {
		return err
	}
	d.debug("clock programmed", slog.Uint64("clki", uint64(d.clki)))
	return verErr
}
