package vs10x3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/soypat/vs10x3/sci"
	"tinygo.org/x/drivers"
)

var (
	// ErrNotResponding is returned once when the chip does not boot in time and
	// there is no reset line to retry with. The Device stays failed afterwards.
	ErrNotResponding = errors.New("vs10x3: chip not responding after hw boot; no reset pin to retry")
	// ErrUnsupportedChip is returned when the chip reports a version other than VS1003.
	// The Device keeps operating on a best effort basis.
	ErrUnsupportedChip = errors.New("vs10x3: unsupported chip")
	// ErrNotReady is returned by register access while the chip is booting.
	ErrNotReady = errors.New("vs10x3: chip booting")
	// ErrDeviceFailed is returned by register access after the boot sequencer failed.
	ErrDeviceFailed = errors.New("vs10x3: device failed")
	// ErrReadOnly is returned when writing a read only register such as HDAT0.
	ErrReadOnly = errors.New("vs10x3: register is read only")
	// ErrBadConfig wraps configuration validation errors.
	ErrBadConfig  = errors.New("vs10x3: bad config")
	errBadAddress = errors.New("vs10x3: bad register address")
	errWriteOnly  = errors.New("vs10x3: register is write only")
)

// OutputPin drives a digital output line.
type OutputPin func(level bool)

// InputPin samples a digital input line.
type InputPin func() bool

// State of the boot/reset sequencer.
type State uint8

const (
	// StateBooting waits for DREQ to rise after a hardware reset.
	StateBooting State = iota
	// StateReady means the chip booted and its clock was programmed.
	StateReady
	// StateFailed is terminal: the chip never booted and there is no reset line.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "State(" + fmt.Sprint(uint8(s)) + ")"
}

// Config is the board level configuration of the chip.
type Config struct {
	// XtalHz is the crystal (XTALI) frequency in Hz. Must be within 12..13MHz.
	XtalHz uint32
	// ClockMult is the raw SC_MULT value (0..7): CLKI = XTALI*(2+ClockMult)/2.
	ClockMult uint8
	// ClockAdd is the raw SC_ADD value (0..3), multiplier addition the firmware may use.
	ClockAdd uint8
	// SCIRate is the SPI bit rate used for SCI transactions in Hz.
	SCIRate uint32
	Logger  *slog.Logger
}

// DefaultConfig returns the configuration for a 12.288MHz crystal running the
// core at 3.0x with a +1.5x firmware allowance.
func DefaultConfig() Config {
	return Config{
		XtalHz:    sci.DefaultXtaliHz,
		ClockMult: 4,
		ClockAdd:  3,
		// Reads are limited to CLKI/7. CLKI is XTALI right after reset.
		SCIRate: 12_000_000 / 7,
	}
}

func (cfg *Config) validate() error {
	switch {
	case cfg.XtalHz < 12_000_000 || cfg.XtalHz > 13_000_000:
		return fmt.Errorf("%w: crystal frequency %dHz outside 12..13MHz", ErrBadConfig, cfg.XtalHz)
	case uint16(cfg.ClockMult) > sci.SCMult.Max():
		return fmt.Errorf("%w: clock multiplier %d", ErrBadConfig, cfg.ClockMult)
	case uint16(cfg.ClockAdd) > sci.SCAdd.Max():
		return fmt.Errorf("%w: clock multiplier addition %d", ErrBadConfig, cfg.ClockAdd)
	case cfg.SCIRate == 0:
		return fmt.Errorf("%w: zero SCI rate", ErrBadConfig)
	}
	return nil
}

// Device controls a VS10x3 decoder over its Serial Control Interface.
// All methods except the DREQ handlers must be called from one control loop.
type Device struct {
	mu   sync.Mutex
	spi  drivers.SPI
	cs   OutputPin
	rst  OutputPin // nil if the board has no reset line.
	dreq InputPin

	logger        *slog.Logger
	_traceenabled bool

	// Clock state in Hz.
	xtali   uint32
	clki    uint32
	sciRate uint32

	// Register shadows. Only in sync with hardware after an explicit read or write.
	mode    sci.Mode
	status  sci.Status
	clockf  sci.ClockF
	version sci.Version

	state         State
	err           error
	inHWReset     bool
	hwResetStart  time.Time
	resetAttempts int

	// Command pacing.
	lastCmdSent  time.Time
	lastCmdWorst uint32 // microseconds, 0 when no command was sent.

	irq           dreqLatch
	edgesAttached bool

	now   func() time.Time
	sleep func(time.Duration)

	txbuf [4]byte
	rxbuf [4]byte
}

// New returns a Device using spi for SCI transactions. cs is the active low
// SCI chip select (XCS), rst the active low reset line (XRESET, may be nil)
// and dreq samples the DREQ line. Call Init before use.
func New(spi drivers.SPI, cs, rst OutputPin, dreq InputPin) *Device {
	return &Device{
		spi:     spi,
		cs:      cs,
		rst:     rst,
		dreq:    dreq,
		version: sci.VersionUnknown,
		now:     time.Now,
		sleep:   spin,
	}
}

// Init configures the Device and starts the hardware boot sequence. It does not
// block waiting for the chip: Tick must be called periodically until State
// returns StateReady or StateFailed.
func (d *Device) Init(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	d.lock()
	defer d.unlock()
	d.logger = cfg.Logger
	d._traceenabled = d.logger != nil && d.logger.Handler().Enabled(context.Background(), levelTrace)
	d.xtali = cfg.XtalHz
	d.clki = cfg.XtalHz // Chip runs at 1.0x XTALI until CLOCKF is written.
	d.sciRate = cfg.SCIRate
	d.mode = sci.POR[sci.Mode]()
	d.status = sci.POR[sci.Status]()
	d.clockf = sci.SCAdd.Put(sci.SCMult.Put(sci.POR[sci.ClockF](), uint16(cfg.ClockMult)), uint16(cfg.ClockAdd))
	d.version = sci.VersionUnknown
	d.err = nil
	d.resetAttempts = 0
	d.lastCmdWorst = 0
	d.irq.isActive.Store(d.dreq())
	d.csEnable(false)
	d.info("Init", slog.Uint64("xtali", uint64(d.xtali)), slog.Uint64("clockf", uint64(d.clockf)), slog.Bool("resetpin", d.rst != nil))
	d.enterBoot()
	return d.handleReset()
}

// Tick runs one non-blocking step of the control loop. While booting it checks
// DREQ and retries the hardware reset on timeout. It returns ErrNotResponding
// once when the Device fails and ErrUnsupportedChip once when the booted chip
// is not a VS1003; the latter is not fatal.
func (d *Device) Tick() error {
	d.lock()
	defer d.unlock()
	if d.state != StateBooting {
		return nil
	}
	return d.handleReset()
}

// HardReset pulses the reset line, if present, and restarts the boot sequence.
func (d *Device) HardReset() {
	d.lock()
	defer d.unlock()
	if d.state == StateFailed && d.rst == nil {
		return
	}
	if d.rst != nil {
		d.pulseReset()
	}
	d.enterBoot()
}

// State returns the boot sequencer state.
func (d *Device) State() State {
	d.lock()
	defer d.unlock()
	return d.state
}

// Err returns the last error recorded by the boot sequencer.
func (d *Device) Err() error {
	d.lock()
	defer d.unlock()
	return d.err
}

// WriteRegister writes v to the register at addr after waiting for the chip
// to finish the previous command.
func (d *Device) WriteRegister(addr sci.Address, v uint16) error {
	d.lock()
	defer d.unlock()
	if err := d.checkAccess(addr, true); err != nil {
		return err
	}
	return d.writeRegister(addr, v)
}

// ReadRegister reads the register at addr.
func (d *Device) ReadRegister(addr sci.Address) (uint16, error) {
	d.lock()
	defer d.unlock()
	if err := d.checkAccess(addr, false); err != nil {
		return 0, err
	}
	return d.readRegister(addr)
}

// SetClockMultiplier sets SC_MULT and SC_ADD. If the chip is running the new
// value is written immediately, otherwise it is written once boot completes.
func (d *Device) SetClockMultiplier(mult, add uint8) error {
	if uint16(mult) > sci.SCMult.Max() || uint16(add) > sci.SCAdd.Max() {
		return fmt.Errorf("%w: multiplier %d addition %d", ErrBadConfig, mult, add)
	}
	d.lock()
	defer d.unlock()
	clockf := sci.SCAdd.Put(sci.SCMult.Put(d.clockf, uint16(mult)), uint16(add))
	if clockf == d.clockf {
		return nil
	}
	if d.inHWReset || d.state != StateReady {
		// Written by validateBoot once the chip is out of reset.
		d.clockf = clockf
		return nil
	}
	return d.writeClockF(clockf)
}

func (d *Device) checkAccess(addr sci.Address, write bool) error {
	info, ok := sci.Lookup(addr)
	switch {
	case !ok:
		return errBadAddress
	case d.state == StateFailed:
		return ErrDeviceFailed
	case d.state == StateBooting:
		return ErrNotReady
	case write && !info.Access.Writable():
		return ErrReadOnly
	case !write && !info.Access.Readable():
		return errWriteOnly
	}
	return nil
}

// writeClockF writes clockf to the chip. The shadow and CLKI are only
// updated once the write succeeds.
func (d *Device) writeClockF(clockf sci.ClockF) error {
	d.debug("writing clockf", slog.Uint64("clockf", uint64(clockf)))
	return d.writeRegister(sci.AddrClockF, uint16(clockf))
}

func (d *Device) lock()   { d.mu.Lock() }
func (d *Device) unlock() { d.mu.Unlock() }
