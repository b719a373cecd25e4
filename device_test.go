package vs10x3

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/soypat/vs10x3/sci"
)

func TestBootReady(t *testing.T) {
	tb := newTestbench(t, true)
	tb.dreqLevel = true
	err := tb.dev.Init(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if tb.dev.State() != StateReady {
		t.Fatalf("want ready, got %s", tb.dev.State())
	}
	tb.expectFrames(
		sci.Frame{Op: sci.OpRead, Addr: sci.AddrMode},
		sci.Frame{Op: sci.OpRead, Addr: sci.AddrStatus},
		sci.Frame{Op: sci.OpWrite, Addr: sci.AddrClockF, Value: 0x9c30},
	)
	diag := tb.dev.Diagnostics()
	if diag.Chip != "VS1003" || diag.Version != sci.VersionVS1003 {
		t.Errorf("bad chip %s version %d", diag.Chip, diag.Version)
	}
	if diag.ClkiHz != 36_864_000 {
		t.Errorf("want clki 36864000 for 3.0x, got %d", diag.ClkiHz)
	}
	if diag.Mode != 0x0800 || diag.Status != 0x0030 {
		t.Errorf("bad shadows mode=%#04x status=%#04x", uint16(diag.Mode), uint16(diag.Status))
	}
	if tb.resetPulses() != 0 {
		t.Error("no reset pulse expected")
	}
}

func TestBootStatusGarbageFiltered(t *testing.T) {
	tb := newTestbench(t, true)
	tb.dreqLevel = true
	tb.chip.statusReads = []uint16{0x000c, 0x000c, 0x0030}
	err := tb.dev.Init(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	tb.expectFrames(
		sci.Frame{Op: sci.OpRead, Addr: sci.AddrMode},
		sci.Frame{Op: sci.OpRead, Addr: sci.AddrStatus},
		sci.Frame{Op: sci.OpRead, Addr: sci.AddrStatus},
		sci.Frame{Op: sci.OpRead, Addr: sci.AddrStatus},
		sci.Frame{Op: sci.OpWrite, Addr: sci.AddrClockF, Value: 0x9c30},
	)
}

func TestBootUnsupportedVersion(t *testing.T) {
	tb := newTestbench(t, true)
	tb.dreqLevel = true
	tb.chip.regs[sci.AddrStatus] = 0x0000
	err := tb.dev.Init(DefaultConfig())
	if !errors.Is(err, ErrUnsupportedChip) {
		t.Fatalf("want unsupported chip error, got %v", err)
	}
	if tb.dev.State() != StateReady {
		t.Fatalf("unsupported chip must not block boot, got %s", tb.dev.State())
	}
	if !errors.Is(tb.dev.Err(), ErrUnsupportedChip) {
		t.Error("unsupported chip error not recorded")
	}
	last := tb.chip.frames[len(tb.chip.frames)-1]
	if last.Addr != sci.AddrClockF || !last.IsWrite() {
		t.Errorf("clock must be programmed on unsupported chip, last frame %+v", last)
	}
	if err = tb.dev.WriteRegister(sci.AddrVol, 0); err != nil {
		t.Errorf("degraded device must keep operating: %v", err)
	}
}

func TestBootRetry(t *testing.T) {
	tb := newTestbench(t, true)
	err := tb.dev.Init(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	const worstBoot = 4069 * time.Microsecond // 50000 XTALI at 12.288MHz.
	for attempt := 1; attempt <= 3; attempt++ {
		tb.clk.advance(worstBoot - 10*time.Microsecond)
		if err = tb.dev.Tick(); err != nil {
			t.Fatal(err)
		}
		if tb.resetPulses() != attempt-1 {
			t.Fatalf("reset before timeout: %d pulses", tb.resetPulses())
		}
		tb.clk.advance(10 * time.Microsecond)
		if err = tb.dev.Tick(); err != nil {
			t.Fatal(err)
		}
		if tb.resetPulses() != attempt {
			t.Fatalf("want %d reset pulses, got %d", attempt, tb.resetPulses())
		}
		if tb.dev.State() != StateBooting {
			t.Fatalf("want booting, got %s", tb.dev.State())
		}
	}
	if len(tb.chip.frames) != 0 {
		t.Errorf("no SCI traffic expected while booting, got %d frames", len(tb.chip.frames))
	}
	// First event is the line released by Init.
	for i := 1; i+1 < len(tb.rstEvents); i += 2 {
		low, high := tb.rstEvents[i], tb.rstEvents[i+1]
		if low.level || !high.level {
			t.Fatal("reset pulse must go low then high")
		}
		if high.t.Sub(low.t) < time.Microsecond {
			t.Errorf("reset held low for %s", high.t.Sub(low.t))
		}
	}

	tb.dreqLevel = true
	if err = tb.dev.Tick(); err != nil {
		t.Fatal(err)
	}
	if tb.dev.State() != StateReady {
		t.Fatalf("want ready on first tick with dreq, got %s", tb.dev.State())
	}
	if tb.resetPulses() != 3 {
		t.Errorf("no extra reset expected, got %d", tb.resetPulses())
	}
	if got := tb.dev.Diagnostics().ResetAttempts; got != 3 {
		t.Errorf("want 3 reset attempts, got %d", got)
	}
}

func TestBootNoResetLineFatal(t *testing.T) {
	tb := newTestbench(t, false)
	err := tb.dev.Init(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	tb.clk.advance(4068 * time.Microsecond)
	if err = tb.dev.Tick(); err != nil {
		t.Fatal("failed before timeout:", err)
	}
	tb.clk.advance(2 * time.Microsecond)
	fatals := 0
	for i := 0; i < 10; i++ {
		if i == 5 {
			tb.dreqLevel = true // Late DREQ must not revive a failed device.
		}
		err = tb.dev.Tick()
		if errors.Is(err, ErrNotResponding) {
			fatals++
		} else if err != nil {
			t.Fatal(err)
		}
		if tb.dev.State() != StateFailed {
			t.Fatalf("tick %d: want failed, got %s", i, tb.dev.State())
		}
		tb.clk.advance(time.Millisecond)
	}
	if fatals != 1 {
		t.Errorf("fatal condition must be reported once, got %d", fatals)
	}
	if !errors.Is(tb.dev.Err(), ErrNotResponding) {
		t.Error("fatal error not recorded")
	}
	if err = tb.dev.WriteRegister(sci.AddrVol, 0); !errors.Is(err, ErrDeviceFailed) {
		t.Errorf("want device failed, got %v", err)
	}
	if len(tb.chip.frames) != 0 {
		t.Error("failed device must not issue transactions")
	}
}

func TestPacingSkip(t *testing.T) {
	tb := newTestbench(t, true)
	tb.dev.Init(DefaultConfig())
	start := tb.clk.t
	tb.dev.waitSCIReady()
	if tb.clk.t != start || tb.clk.sleeps != 0 {
		t.Errorf("no wait expected without previous command, slept %s", tb.clk.t.Sub(start))
	}
}

func TestPacingWaitBound(t *testing.T) {
	tb := newReadyTestbench(t)
	tb.dreqLevel = false
	// VOL: 2100 CLKI at 36.864MHz is 56us, +1 rounding.
	if err := tb.dev.WriteRegister(sci.AddrVol, 0x2020); err != nil {
		t.Fatal(err)
	}
	sent := tb.clk.t
	const worst = 57
	txTime := tb.dev.frameMicros()
	if txTime != 18 {
		t.Fatalf("want 18us frame at 12MHz/7, got %d", txTime)
	}
	if _, err := tb.dev.ReadRegister(sci.AddrMode); err != nil {
		t.Fatal(err)
	}
	waited := tb.clk.t.Sub(sent)
	minWait := micros(worst - txTime)
	if waited < minWait || waited > minWait+2*time.Microsecond {
		t.Errorf("want wait of about %s, got %s", minWait, waited)
	}
}

func TestPacingEarlyExitOnDREQ(t *testing.T) {
	tb := newReadyTestbench(t)
	tb.dreqLevel = false
	if err := tb.dev.WriteRegister(sci.AddrBass, 0); err != nil {
		t.Fatal(err)
	}
	sent := tb.clk.t
	base := tb.clk.sleeps
	tb.clk.onSleep = func(n int) {
		if n-base == 5 {
			tb.dreqLevel = true
		}
	}
	if err := tb.dev.WriteRegister(sci.AddrVol, 0); err != nil {
		t.Fatal(err)
	}
	if waited := tb.clk.t.Sub(sent); waited > 6*time.Microsecond {
		t.Errorf("must return once DREQ is active, waited %s", waited)
	}
}

func TestPacingWithEdgeLatch(t *testing.T) {
	tb := newReadyTestbench(t)
	tb.dev.edgesAttached = true
	tb.dev.HandleDREQFall()
	tb.dreqLevel = true // Pin is ignored when edges are attached.
	if err := tb.dev.WriteRegister(sci.AddrAuData, 44100); err != nil {
		t.Fatal(err)
	}
	sent := tb.clk.t
	base := tb.clk.sleeps
	tb.clk.onSleep = func(n int) {
		if n-base == 10 {
			tb.dev.HandleDREQRise()
		}
	}
	if _, err := tb.dev.ReadRegister(sci.AddrAuData); err != nil {
		t.Fatal(err)
	}
	if waited := tb.clk.t.Sub(sent); waited < 9*time.Microsecond || waited > 11*time.Microsecond {
		t.Errorf("want wait until rising edge, waited %s", waited)
	}
	if !tb.dev.ConsumeDREQ() {
		t.Error("rising edge not latched")
	}
}

func TestRegisterFraming(t *testing.T) {
	tb := newReadyTestbench(t)
	tb.chip.frames = nil
	if err := tb.dev.WriteRegister(sci.AddrVol, 0x2020); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(tb.chip.lastMOSI, []byte{0x02, 0x0b, 0x20, 0x20}) {
		t.Errorf("bad write frame %x", tb.chip.lastMOSI)
	}
	tb.chip.regs[sci.AddrHDAT0] = 0xbeef
	v, err := tb.dev.ReadRegister(sci.AddrHDAT0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xbeef {
		t.Errorf("want 0xbeef, got %#04x", v)
	}
	if !bytes.Equal(tb.chip.lastMOSI[:2], []byte{0x03, 0x08}) {
		t.Errorf("bad read frame %x", tb.chip.lastMOSI)
	}
	if tb.chip.csViolations != 0 {
		t.Errorf("%d transactions without chip select", tb.chip.csViolations)
	}
	if !tb.csLevel {
		t.Error("chip select left asserted")
	}
}

func TestRegisterAccess(t *testing.T) {
	tb := newTestbench(t, true)
	tb.dev.Init(DefaultConfig())
	if err := tb.dev.WriteRegister(sci.AddrVol, 0); !errors.Is(err, ErrNotReady) {
		t.Errorf("want not ready while booting, got %v", err)
	}
	tb.dreqLevel = true
	tb.dev.Tick()
	tb.chip.frames = nil
	if err := tb.dev.WriteRegister(sci.AddrHDAT1, 0); !errors.Is(err, ErrReadOnly) {
		t.Errorf("want read only, got %v", err)
	}
	if _, err := tb.dev.ReadRegister(16); !errors.Is(err, errBadAddress) {
		t.Errorf("want bad address, got %v", err)
	}
	if len(tb.chip.frames) != 0 {
		t.Error("refused access must not reach the bus")
	}
}

func TestWriteRecordsWorstDuration(t *testing.T) {
	tb := newReadyTestbench(t)
	tb.dev.WriteRegister(sci.AddrMode, 0x0800)
	if tb.dev.lastCmdWorst != 1+70*1_000_000/36_864_000 {
		t.Errorf("bad MODE worst duration %d", tb.dev.lastCmdWorst)
	}
	tb.dev.ReadRegister(sci.AddrMode)
	if tb.dev.lastCmdWorst != 1 {
		t.Errorf("read worst duration must be 1us, got %d", tb.dev.lastCmdWorst)
	}
}

func TestSetClockMultiplier(t *testing.T) {
	tb := newTestbench(t, true)
	tb.dev.Init(DefaultConfig())
	if err := tb.dev.SetClockMultiplier(2, 0); err != nil {
		t.Fatal(err)
	}
	if len(tb.chip.frames) != 0 {
		t.Fatal("clock must not be written while booting")
	}
	tb.dreqLevel = true
	if err := tb.dev.Tick(); err != nil {
		t.Fatal(err)
	}
	last := tb.chip.frames[len(tb.chip.frames)-1]
	if last.Value != 0x4430 {
		t.Errorf("want CLOCKF 0x4430, got %#04x", last.Value)
	}
	if clki := tb.dev.Diagnostics().ClkiHz; clki != 24_576_000 {
		t.Errorf("want clki 24576000, got %d", clki)
	}

	n := len(tb.chip.frames)
	if err := tb.dev.SetClockMultiplier(5, 3); err != nil {
		t.Fatal(err)
	}
	if len(tb.chip.frames) != n+1 {
		t.Fatal("clock must be written on running chip")
	}
	if clki := tb.dev.Diagnostics().ClkiHz; clki != 43_008_000 {
		t.Errorf("want clki 43008000, got %d", clki)
	}
	tb.dev.SetClockMultiplier(5, 3)
	if len(tb.chip.frames) != n+1 {
		t.Error("unchanged multiplier must not be written")
	}
	if err := tb.dev.SetClockMultiplier(8, 0); !errors.Is(err, ErrBadConfig) {
		t.Errorf("want bad config, got %v", err)
	}
}

func TestBootBusErrorRetried(t *testing.T) {
	tb := newTestbench(t, true)
	tb.dreqLevel = true
	tb.chip.failTx = 1
	err := tb.dev.Init(DefaultConfig())
	if !errors.Is(err, errBus) {
		t.Fatalf("want bus error, got %v", err)
	}
	if tb.dev.State() != StateBooting {
		t.Fatalf("bus error must keep device booting, got %s", tb.dev.State())
	}
	if err = tb.dev.Tick(); err != nil {
		t.Fatal(err)
	}
	if tb.dev.State() != StateReady {
		t.Fatalf("want ready after revalidation, got %s", tb.dev.State())
	}
	tb.expectFrames(
		sci.Frame{Op: sci.OpRead, Addr: sci.AddrMode},
		sci.Frame{Op: sci.OpRead, Addr: sci.AddrStatus},
		sci.Frame{Op: sci.OpWrite, Addr: sci.AddrClockF, Value: 0x9c30},
	)
	if tb.resetPulses() != 0 {
		t.Error("bus error must not pulse reset")
	}
}

func TestBootClockWriteError(t *testing.T) {
	tb := newTestbench(t, true)
	tb.dreqLevel = true
	tb.chip.failWrites = 1
	err := tb.dev.Init(DefaultConfig())
	if !errors.Is(err, errBus) {
		t.Fatalf("want bus error, got %v", err)
	}
	diag := tb.dev.Diagnostics()
	if diag.State != StateBooting || diag.ClkiHz != sci.DefaultXtaliHz {
		t.Errorf("failed CLOCKF write changed clock: state=%s clki=%d", diag.State, diag.ClkiHz)
	}
	if tb.chip.regs[sci.AddrClockF] != 0 {
		t.Fatalf("chip CLOCKF written: %#04x", tb.chip.regs[sci.AddrClockF])
	}
	if err = tb.dev.Tick(); err != nil {
		t.Fatal(err)
	}
	diag = tb.dev.Diagnostics()
	if diag.ClockF != 0x9c30 || diag.ClkiHz != 36_864_000 {
		t.Errorf("want clockf 0x9c30 clki 36864000, got %#04x %d", uint16(diag.ClockF), diag.ClkiHz)
	}
}

func TestBootStatusNeverSettles(t *testing.T) {
	var buf bytes.Buffer
	tb := newTestbench(t, true)
	tb.dreqLevel = true
	// Low nibble stuck at the POR pattern, version still readable.
	tb.chip.regs[sci.AddrStatus] = 0x003c
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if err := tb.dev.Init(cfg); err != nil {
		t.Fatal(err)
	}
	if tb.dev.State() != StateReady {
		t.Fatalf("want ready, got %s", tb.dev.State())
	}
	statusReads := 0
	for _, f := range tb.chip.frames {
		if f.Addr == sci.AddrStatus && !f.IsWrite() {
			statusReads++
		}
	}
	if statusReads != maxStatusReads+1 {
		t.Errorf("want %d status reads, got %d", maxStatusReads+1, statusReads)
	}
	last := tb.chip.frames[len(tb.chip.frames)-1]
	if last.Addr != sci.AddrClockF || last.Value != 0x9c30 {
		t.Errorf("clock not programmed after unsettled status, last frame %+v", last)
	}
	if !strings.Contains(buf.String(), "status did not settle") {
		t.Errorf("missing warning:\n%s", buf.String())
	}
}

func TestWriteErrorKeepsShadows(t *testing.T) {
	tb := newReadyTestbench(t)
	tb.chip.failTx = 1
	if err := tb.dev.WriteRegister(sci.AddrMode, 0x0804); !errors.Is(err, errBus) {
		t.Fatalf("want bus error, got %v", err)
	}
	if mode := tb.dev.Diagnostics().Mode; mode != 0x0800 {
		t.Errorf("mode shadow changed on failed write: %#04x", uint16(mode))
	}
	tb.chip.failTx = 1
	if _, err := tb.dev.ReadRegister(sci.AddrStatus); !errors.Is(err, errBus) {
		t.Fatalf("want bus error, got %v", err)
	}
	if status := tb.dev.Diagnostics().Status; status != 0x0030 {
		t.Errorf("status shadow changed on failed read: %#04x", uint16(status))
	}
}

func TestSetClockMultiplierBusError(t *testing.T) {
	tb := newReadyTestbench(t)
	n := len(tb.chip.frames)
	tb.chip.failTx = 1
	if err := tb.dev.SetClockMultiplier(7, 3); !errors.Is(err, errBus) {
		t.Fatalf("want bus error, got %v", err)
	}
	diag := tb.dev.Diagnostics()
	if diag.ClockF != 0x9c30 || diag.ClkiHz != 36_864_000 {
		t.Errorf("failed write changed clock state: clockf=%#04x clki=%d", uint16(diag.ClockF), diag.ClkiHz)
	}
	if err := tb.dev.SetClockMultiplier(7, 3); err != nil {
		t.Fatal(err)
	}
	if len(tb.chip.frames) != n+1 {
		t.Fatalf("retry must write CLOCKF, got %d frames", len(tb.chip.frames)-n)
	}
	if tb.chip.regs[sci.AddrClockF] != 0xfc30 {
		t.Errorf("chip CLOCKF %#04x, want 0xfc30", tb.chip.regs[sci.AddrClockF])
	}
	if clki := tb.dev.Diagnostics().ClkiHz; clki != 55_296_000 {
		t.Errorf("want clki 55296000, got %d", clki)
	}
}

func TestHardResetClearsError(t *testing.T) {
	tb := newTestbench(t, true)
	tb.dreqLevel = true
	tb.chip.regs[sci.AddrStatus] = 0x0000
	if err := tb.dev.Init(DefaultConfig()); !errors.Is(err, ErrUnsupportedChip) {
		t.Fatalf("want unsupported chip, got %v", err)
	}
	tb.chip.regs[sci.AddrStatus] = 0x0030
	tb.dev.HardReset()
	if err := tb.dev.Tick(); err != nil {
		t.Fatal(err)
	}
	diag := tb.dev.Diagnostics()
	if diag.State != StateReady || diag.Chip != "VS1003" {
		t.Fatalf("want ready VS1003, got %s %s", diag.State, diag.Chip)
	}
	if tb.dev.Err() != nil || diag.Err != nil {
		t.Errorf("stale error after reset: %v", tb.dev.Err())
	}
	if diag.ClkiHz != 36_864_000 {
		t.Errorf("want clki 36864000, got %d", diag.ClkiHz)
	}
}

func TestHardReset(t *testing.T) {
	tb := newReadyTestbench(t)
	tb.dreqLevel = false
	tb.dev.HardReset()
	if tb.dev.State() != StateBooting {
		t.Fatalf("want booting, got %s", tb.dev.State())
	}
	if tb.resetPulses() != 1 {
		t.Errorf("want 1 reset pulse, got %d", tb.resetPulses())
	}
	tb.dreqLevel = true
	if err := tb.dev.Tick(); err != nil {
		t.Fatal(err)
	}
	if tb.dev.State() != StateReady {
		t.Fatalf("want ready, got %s", tb.dev.State())
	}
}

func TestDREQLatch(t *testing.T) {
	var d Device
	d.HandleDREQRise()
	if !d.DREQActive() || !d.DREQWasActive() {
		t.Fatal("rising edge must set both flags")
	}
	d.HandleDREQFall()
	if d.DREQActive() {
		t.Error("falling edge must clear active")
	}
	if !d.DREQWasActive() {
		t.Error("was-active must be sticky")
	}
	if !d.ConsumeDREQ() || d.ConsumeDREQ() {
		t.Error("consume must clear was-active")
	}
}

func TestConfigValidation(t *testing.T) {
	tb := newTestbench(t, true)
	for _, mod := range []func(*Config){
		func(c *Config) { c.XtalHz = 0 },
		func(c *Config) { c.XtalHz = 24_576_000 },
		func(c *Config) { c.ClockMult = 8 },
		func(c *Config) { c.ClockAdd = 4 },
		func(c *Config) { c.SCIRate = 0 },
	} {
		cfg := DefaultConfig()
		mod(&cfg)
		if err := tb.dev.Init(cfg); !errors.Is(err, ErrBadConfig) {
			t.Errorf("want bad config for %+v, got %v", cfg, err)
		}
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	tb := newTestbench(t, true)
	tb.dreqLevel = true
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: levelTrace}))
	if err := tb.dev.Init(cfg); err != nil {
		t.Fatal(err)
	}
	tb.dev.LogConfig()
	out := buf.String()
	for _, want := range []string{"vs10x3:reset completed", "vs10x3:sci:write", "clockf=9C30", "chip=VS1003"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

type testbench struct {
	t         *testing.T
	dev       *Device
	chip      *fakeChip
	clk       *fakeClock
	dreqLevel bool
	csLevel   bool
	rstEvents []pinEvent
}

type pinEvent struct {
	level bool
	t     time.Time
}

func newTestbench(t *testing.T, resetPin bool) *testbench {
	tb := &testbench{
		t:       t,
		clk:     &fakeClock{t: time.Unix(1000, 0)},
		csLevel: true,
	}
	tb.chip = &fakeChip{tb: tb}
	tb.chip.regs[sci.AddrMode] = 0x0800
	tb.chip.regs[sci.AddrStatus] = 0x0030
	var rst OutputPin
	if resetPin {
		rst = func(level bool) {
			tb.rstEvents = append(tb.rstEvents, pinEvent{level: level, t: tb.clk.t})
		}
	}
	tb.dev = New(tb.chip, func(level bool) { tb.csLevel = level }, rst, func() bool { return tb.dreqLevel })
	tb.dev.now = tb.clk.now
	tb.dev.sleep = tb.clk.sleep
	return tb
}

func newReadyTestbench(t *testing.T) *testbench {
	tb := newTestbench(t, true)
	tb.dreqLevel = true
	if err := tb.dev.Init(DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	return tb
}

// resetPulses counts falling edges on the reset line.
func (tb *testbench) resetPulses() (n int) {
	for _, ev := range tb.rstEvents {
		if !ev.level {
			n++
		}
	}
	return n
}

func (tb *testbench) expectFrames(want ...sci.Frame) {
	tb.t.Helper()
	got := tb.chip.frames
	if len(got) != len(want) {
		tb.t.Fatalf("want %d frames, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		// Read values are what the chip answered, only compare requests.
		if want[i].Op == sci.OpRead {
			got[i].Value = 0
		}
		if got[i] != want[i] {
			tb.t.Errorf("frame %d: want %+v, got %+v", i, want[i], got[i])
		}
	}
}

type fakeClock struct {
	t       time.Time
	sleeps  int
	onSleep func(n int)
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.sleeps++
	c.t = c.t.Add(d)
	if c.onSleep != nil {
		c.onSleep(c.sleeps)
	}
}

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errBus = errors.New("bus error")

// fakeChip answers SCI frames from a register file.
type fakeChip struct {
	tb           *testbench
	regs         [sci.NumRegisters]uint16
	statusReads  []uint16
	frames       []sci.Frame
	lastMOSI     []byte
	csViolations int
	// failTx and failWrites fail the next n transactions or writes with errBus
	// without touching the register file.
	failTx     int
	failWrites int
}

func (c *fakeChip) Tx(w, r []byte) error {
	if c.tb.csLevel {
		c.csViolations++
	}
	if c.failTx > 0 {
		c.failTx--
		return errBus
	}
	if c.failWrites > 0 && w[0] == sci.OpWrite {
		c.failWrites--
		return errBus
	}
	c.lastMOSI = append(c.lastMOSI[:0], w...)
	addr := sci.Address(w[1])
	switch w[0] {
	case sci.OpWrite:
		c.regs[addr] = uint16(w[2])<<8 | uint16(w[3])
	case sci.OpRead:
		v := c.regs[addr]
		if addr == sci.AddrStatus && len(c.statusReads) > 0 {
			v = c.statusReads[0]
			c.statusReads = c.statusReads[1:]
		}
		r[2], r[3] = byte(v>>8), byte(v)
	}
	f, err := sci.ParseFrame(w, r)
	if err != nil {
		return err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeChip) Transfer(b byte) (byte, error) { return 0, nil }
