//go:build linux && !tinygo

package vs10x3

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// edgePollTimeout bounds how long closing the device waits for the DREQ watcher.
const edgePollTimeout = 100 * time.Millisecond

// PeriphConfig selects the Linux spidev port and GPIO lines the chip is wired to.
type PeriphConfig struct {
	// SPIPort as accepted by spireg.Open, i.e. "/dev/spidev0.0". Empty selects the first port.
	// The port's chip enable line drives XCS.
	SPIPort string
	// DREQPin and ResetPin are gpioreg names such as "GPIO25". ResetPin may be empty.
	DREQPin  string
	ResetPin string
	// SCIRate is the SPI clock in Hz.
	SCIRate uint32
}

// OpenPeriph opens the chip on a Linux host through periph.io. DREQ edges are
// watched from a goroutine that only touches the edge latch. The returned
// function releases the port and stops the watcher.
func OpenPeriph(cfg PeriphConfig) (*Device, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph: host init: %w", err)
	}
	if cfg.SCIRate == 0 {
		return nil, nil, fmt.Errorf("%w: zero SCI rate", ErrBadConfig)
	}
	dreq := gpioreg.ByName(cfg.DREQPin)
	if dreq == nil {
		return nil, nil, fmt.Errorf("periph: dreq pin %q not found", cfg.DREQPin)
	}
	if err := dreq.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, nil, fmt.Errorf("periph: dreq pin: %w", err)
	}
	var d *Device
	var reset OutputPin
	if cfg.ResetPin != "" {
		rst := gpioreg.ByName(cfg.ResetPin)
		if rst == nil {
			return nil, nil, fmt.Errorf("periph: reset pin %q not found", cfg.ResetPin)
		}
		// Chip held in reset until Init releases it.
		if err := rst.Out(gpio.Low); err != nil {
			return nil, nil, fmt.Errorf("periph: reset pin: %w", err)
		}
		reset = func(level bool) {
			if err := rst.Out(gpio.Level(level)); err != nil {
				d.logerr("periph:reset pin", slog.Bool("level", level), slog.String("err", err.Error()))
			}
		}
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, nil, fmt.Errorf("periph: open spi: %w", err)
	}
	conn, err := port.Connect(physic.Frequency(cfg.SCIRate)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("periph: spi connect: %w", err)
	}

	// spidev asserts chip enable during each Tx.
	d = New(&periphSPI{conn: conn}, func(bool) {}, reset, func() bool { return dreq.Read() == gpio.High })
	d.edgesAttached = true
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.watchDREQ(dreq, stop)
	}()
	closer := func() error {
		close(stop)
		err := dreq.In(gpio.PullDown, gpio.NoEdge)
		<-done
		return errors.Join(err, dreq.Halt(), port.Close())
	}
	return d, closer, nil
}

// edgePin is the part of gpio.PinIn the DREQ watcher uses.
type edgePin interface {
	WaitForEdge(timeout time.Duration) bool
	Read() gpio.Level
}

// watchDREQ forwards DREQ edges to the latch until stop is closed.
func (d *Device) watchDREQ(pin edgePin, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		// Halt does not wake a blocked WaitForEdge, poll with a timeout.
		if !pin.WaitForEdge(edgePollTimeout) {
			continue
		}
		if pin.Read() == gpio.High {
			d.HandleDREQRise()
		} else {
			d.HandleDREQFall()
		}
	}
}

// periphSPI adapts a periph spi.Conn to drivers.SPI.
type periphSPI struct {
	conn spi.Conn
	rbuf [8]byte
}

func (p *periphSPI) Tx(w, r []byte) error {
	switch {
	case len(r) == 0 && len(w) <= len(p.rbuf):
		r = p.rbuf[:len(w)]
	case len(r) == 0:
		r = make([]byte, len(w))
	case len(w) == 0:
		w = make([]byte, len(r))
	case len(w) != len(r):
		return errors.New("periph: spi buffer length mismatch")
	}
	return p.conn.Tx(w, r)
}

func (p *periphSPI) Transfer(b byte) (byte, error) {
	var w, r [1]byte
	w[0] = b
	err := p.conn.Tx(w[:], r[:])
	return r[0], err
}
