//go:build pico && !vs10x3nopio

package vs10x3

import (
	"machine"

	pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"
)

// PicoPins is the wiring of a VS10x3 breakout to a Raspberry Pi Pico.
type PicoPins struct {
	SCK, SDO, SDI machine.Pin
	// XCS is the SCI chip select.
	XCS machine.Pin
	// XRESET may be machine.NoPin.
	XRESET machine.Pin
	DREQ   machine.Pin
}

// DefaultPicoPins matches the common VS1003 breakout wiring on SPI0 pins.
func DefaultPicoPins() PicoPins {
	return PicoPins{
		SCK:    machine.GPIO2,
		SDO:    machine.GPIO3,
		SDI:    machine.GPIO4,
		XCS:    machine.GPIO5,
		XRESET: machine.GPIO6,
		DREQ:   machine.GPIO7,
	}
}

// NewPicoPIODevice drives SCI with a PIO state machine so the hardware SPI
// peripherals stay free for SD cards or displays.
func NewPicoPIODevice(pins PicoPins, sciRate uint32) (*Device, error) {
	sm, err := pio.PIO0.ClaimStateMachine()
	if err != nil {
		return nil, err
	}
	spi, err := piolib.NewSPI(sm, machine.SPIConfig{
		Frequency: sciRate,
		SCK:       pins.SCK,
		SDO:       pins.SDO,
		SDI:       pins.SDI,
		Mode:      0,
	})
	if err != nil {
		return nil, err
	}
	return NewDevice(spi, pins.XCS, pins.XRESET, pins.DREQ), nil
}
