// Package serial implements the link port registers SB and SC. No cable is
// attached: an internally clocked transfer shifts in 1 bits and completes
// after 8 bit periods. Bytes that the program transmits are copied to an
// optional writer, which is how most test ROMs report their results.
package serial

import (
	"io"

	"dmgo/internal/interrupt"
	"dmgo/internal/logger"
)

// Register addresses
const (
	SB = 0xFF01
	SC = 0xFF02
)

const (
	scTransfer = 0x80
	scInternal = 0x01

	// clocks per bit at 8192 Hz
	bitPeriod = 512
)

// Port is advanced in M-cycles by the step driver.
type Port struct {
	sb      uint8
	sc      uint8
	counter int
	bits    int

	out io.Writer
	irq interrupt.Requester
}

// New creates a port that raises interrupts through irq.
func New(irq interrupt.Requester) *Port {
	return &Port{irq: irq}
}

// SetOutput sets the writer that receives every transmitted byte. A nil
// writer discards them.
func (p *Port) SetOutput(w io.Writer) {
	p.out = w
}

// Reset clears both registers and any transfer in progress.
func (p *Port) Reset() {
	p.sb = 0
	p.sc = 0
	p.counter = 0
	p.bits = 0
}

// Transferring reports whether a transfer has been started and not completed.
func (p *Port) Transferring() bool {
	return p.sc&scTransfer != 0
}

// Tick advances an internally clocked transfer. Externally clocked transfers
// never complete because there is no partner to provide the clock.
func (p *Port) Tick(mcycles int) {
	if p.sc&(scTransfer|scInternal) != scTransfer|scInternal {
		return
	}

	p.counter += mcycles * 4
	for p.counter >= bitPeriod && p.Transferring() {
		p.counter -= bitPeriod
		p.sb = p.sb<<1 | 1
		p.bits++
		if p.bits == 8 {
			p.sc &^= scTransfer
			p.counter = 0
			p.bits = 0
			p.irq.Request(interrupt.Serial)
		}
	}
}

// Read returns the value of a serial register.
func (p *Port) Read(address uint16) uint8 {
	switch address {
	case SB:
		return p.sb
	case SC:
		return p.sc | 0x7E
	}
	return 0xFF
}

// Write updates a serial register. Setting the transfer bit captures the
// outgoing byte.
func (p *Port) Write(address uint16, value uint8) {
	switch address {
	case SB:
		p.sb = value
	case SC:
		p.sc = value & (scTransfer | scInternal)
		if p.Transferring() {
			p.counter = 0
			p.bits = 0
			if p.out != nil {
				if _, err := p.out.Write([]byte{p.sb}); err != nil {
					logger.Logf(logger.Allow, "serial", "output write failed: %v", err)
				}
			}
		}
	}
}
