package vs10x3

import "sync/atomic"

// dreqLatch records DREQ edges from interrupt context. Handlers only store
// single flags; readers tolerate a value that is stale by one edge.
type dreqLatch struct {
	isActive  atomic.Bool
	wasActive atomic.Bool
}

// HandleDREQRise must be called on every rising edge of DREQ.
// It is safe to call from an interrupt handler.
//
//go:inline
func (d *Device) HandleDREQRise() {
	d.irq.wasActive.Store(true)
	d.irq.isActive.Store(true)
}

// HandleDREQFall must be called on every falling edge of DREQ.
// It is safe to call from an interrupt handler.
//
//go:inline
func (d *Device) HandleDREQFall() {
	d.irq.isActive.Store(false)
}

// DREQActive returns the DREQ level as last seen by the edge handlers.
func (d *Device) DREQActive() bool { return d.irq.isActive.Load() }

// DREQWasActive reports whether DREQ rose since the last ConsumeDREQ call.
func (d *Device) DREQWasActive() bool { return d.irq.wasActive.Load() }

// ConsumeDREQ clears the sticky DREQ flag and returns its previous value.
func (d *Device) ConsumeDREQ() bool { return d.irq.wasActive.Swap(false) }

// dreqActive is the level command pacing polls: the latch when edge
// interrupts are wired, else the pin.
func (d *Device) dreqActive() bool {
	if d.edgesAttached {
		return d.irq.isActive.Load()
	}
	return d.dreq()
}
