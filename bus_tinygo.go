//go:build tinygo

package vs10x3

import (
	"device"
	"machine"

	"tinygo.org/x/drivers"
)

// NewDevice configures the control lines of a VS10x3 wired to a TinyGo target
// and attaches DREQ edge interrupts. rst may be machine.NoPin when the board
// has no reset line. spi must be configured for SPI mode 0, MSB first.
func NewDevice(spi drivers.SPI, cs, rst, dreq machine.Pin) *Device {
	out := machine.PinConfig{Mode: machine.PinOutput}
	cs.Configure(out)
	cs.High()
	var reset OutputPin
	if rst != machine.NoPin {
		rst.Configure(out)
		reset = rst.Set
	}
	dreq.Configure(machine.PinConfig{Mode: machine.PinInput})
	d := New(spi, cs.Set, reset, dreq.Get)
	err := dreq.SetInterrupt(machine.PinRising|machine.PinFalling, func(p machine.Pin) {
		if p.Get() {
			d.HandleDREQRise()
		} else {
			d.HandleDREQFall()
		}
	})
	// Without interrupts pacing samples the pin directly.
	d.edgesAttached = err == nil
	return d
}

// NewBitbangDevice drives SCI with a software SPI master on arbitrary pins.
// delay is the number of busy loop iterations per quarter clock period.
func NewBitbangDevice(sck, sdo, sdi, cs, rst, dreq machine.Pin, delay uint32) *Device {
	out := machine.PinConfig{Mode: machine.PinOutput}
	sck.Configure(out)
	sdo.Configure(out)
	sdi.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	sck.Low()
	sdo.Low()
	spi := &BitbangSPI{
		SCK: sck.Set,
		SDO: sdo.Set,
		SDI: sdi.Get,
		Delay: func() {
			for i := uint32(0); i < delay; i++ {
				device.Asm("nop")
			}
		},
	}
	return NewDevice(spi, cs, rst, dreq)
}
