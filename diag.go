package vs10x3

import (
	"log/slog"

	"github.com/soypat/vs10x3/sci"
)

// Diagnostics is a snapshot of the Device's register shadows and clock state.
type Diagnostics struct {
	State   State
	Mode    sci.Mode
	Status  sci.Status
	ClockF  sci.ClockF
	Version sci.Version
	Chip    string
	// Crystal and internal clock frequencies in Hz.
	XtaliHz uint32
	ClkiHz  uint32
	// ResetAttempts counts hardware resets issued after boot timeouts.
	ResetAttempts int
	ResetPin      bool
	Err           error
}

// Diagnostics returns the current register shadows. It performs no bus I/O.
func (d *Device) Diagnostics() Diagnostics {
	d.lock()
	defer d.unlock()
	return Diagnostics{
		State:         d.state,
		Mode:          d.mode,
		Status:        d.status,
		ClockF:        d.clockf,
		Version:       d.version,
		Chip:          d.version.ChipName(),
		XtaliHz:       d.xtali,
		ClkiHz:        d.clki,
		ResetAttempts: d.resetAttempts,
		ResetPin:      d.rst != nil,
		Err:           d.err,
	}
}

// Attrs returns the diagnostics as structured log attributes.
func (diag Diagnostics) Attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("state", diag.State.String()),
		slog.String("chip", diag.Chip),
		slog.Int("version", int(diag.Version)),
		slog.String("mode", hex16(uint16(diag.Mode))),
		slog.String("status", hex16(uint16(diag.Status))),
		slog.String("clockf", hex16(uint16(diag.ClockF))),
		slog.Uint64("xtali", uint64(diag.XtaliHz)),
		slog.Uint64("clki", uint64(diag.ClkiHz)),
		slog.Int("resets", diag.ResetAttempts),
		slog.Bool("resetpin", diag.ResetPin),
	}
	if diag.Err != nil {
		attrs = append(attrs, slog.String("err", diag.Err.Error()))
	}
	return attrs
}

// LogConfig logs the Device configuration and register shadows at info level.
func (d *Device) LogConfig() {
	diag := d.Diagnostics()
	d.info("config", diag.Attrs()...)
}

func hex16(v uint16) string {
	const hextable = "0123456789ABCDEF"
	return string([]byte{hextable[v>>12], hextable[v>>8&0xf], hextable[v>>4&0xf], hextable[v&0xf]})
}
