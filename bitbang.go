package vs10x3

import "errors"

// BitbangSPI is a software SPI master hardcoded to mode 0, MSB first, which is
// the only mode SCI uses. It drives pins through callbacks so it runs on any
// GPIO backend. Delay is called once per quarter clock period.
type BitbangSPI struct {
	SCK   OutputPin
	SDO   OutputPin
	SDI   InputPin
	Delay func()
}

var errBitbangLen = errors.New("bitbang: unhandled SPI buffer length mismatch")

// Tx matches the signature of machine.SPI.Tx. Either buffer may be nil.
func (s *BitbangSPI) Tx(w, r []byte) error {
	switch {
	case len(r) == len(w):
		for i, b := range w {
			r[i] = s.transfer(b)
		}
	case len(r) == 0:
		for _, b := range w {
			s.transfer(b)
		}
	case len(w) == 0:
		for i := range r {
			r[i] = s.transfer(0)
		}
	default:
		return errBitbangLen
	}
	return nil
}

// Transfer matches the signature of machine.SPI.Transfer.
func (s *BitbangSPI) Transfer(b byte) (byte, error) {
	return s.transfer(b), nil
}

func (s *BitbangSPI) transfer(b byte) (out byte) {
	for bit := 7; bit >= 0; bit-- {
		if s.bitTransfer(b&(1<<bit) != 0) {
			out |= 1 << bit
		}
	}
	return out
}

// bitTransfer sets SDO while SCK is low. The chip samples SI on the rising
// edge and shifts SO out on the falling edge.
func (s *BitbangSPI) bitTransfer(b bool) bool {
	s.SDO(b)
	s.delay()
	s.SCK(true)
	s.delay()
	in := s.SDI()
	s.delay()
	s.SCK(false)
	s.delay()
	return in
}

func (s *BitbangSPI) delay() {
	if s.Delay != nil {
		s.Delay()
	}
}
