package vs10x3

import (
	"time"

	"github.com/soypat/vs10x3/sci"
)

// delayToMicros converts a worst case delay to microseconds using the current
// crystal and internal clock frequencies.
func (d *Device) delayToMicros(delay sci.Delay) uint32 {
	return delay.Micros(d.xtali, d.clki)
}

func (d *Device) xtaliToMicros(ticks uint32) uint32 {
	return sci.TicksToMicros(ticks, d.xtali)
}

// sinceMicros returns whole microseconds elapsed since t.
func (d *Device) sinceMicros(t time.Time) uint32 {
	elapsed := d.now().Sub(t)
	if elapsed < 0 {
		return 0
	}
	return uint32(elapsed / time.Microsecond)
}

func micros(us uint32) time.Duration {
	return time.Duration(us) * time.Microsecond
}
