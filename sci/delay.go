package sci

// Delay is a worst case operation duration given in ticks of the internal
// clock (CLKI) and of the external crystal (XTALI). Datasheet timings are
// specified against either clock domain.
type Delay struct {
	ClkiTicks  uint32
	XtaliTicks uint32
}

// Clki returns a Delay of n internal clock ticks.
func Clki(n uint32) Delay { return Delay{ClkiTicks: n} }

// Xtali returns a Delay of n crystal ticks.
func Xtali(n uint32) Delay { return Delay{XtaliTicks: n} }

// IsZero reports whether the delay is empty.
func (d Delay) IsZero() bool { return d.ClkiTicks == 0 && d.XtaliTicks == 0 }

// Micros converts the delay to microseconds for the given crystal and internal
// clock frequencies in Hz. Each clock domain is truncated separately. Both
// frequencies must be nonzero.
func (d Delay) Micros(xtaliHz, clkiHz uint32) uint32 {
	return TicksToMicros(d.XtaliTicks, xtaliHz) + TicksToMicros(d.ClkiTicks, clkiHz)
}

// TicksToMicros converts n ticks of a clock running at hz to microseconds.
func TicksToMicros(n, hz uint32) uint32 {
	return uint32(uint64(n) * 1_000_000 / uint64(hz))
}

// WorstBootDelay is the longest the chip takes to come out of a hardware reset.
var WorstBootDelay = Xtali(50000)
