// Package interrupt implements the DMG interrupt controller (IF and IE).
package interrupt

// Source identifies one of the five interrupt lines. The value is the bit
// position in IF and IE.
type Source uint8

const (
	VBlank Source = iota
	LCDStat
	Timer
	Serial
	Joypad
)

// Register addresses
const (
	FlagAddress   = 0xFF0F
	EnableAddress = 0xFFFF
)

// only the low five bits of IF are backed by storage
const sourceMask = 0x1F

var vectors = [...]uint16{0x40, 0x48, 0x50, 0x58, 0x60}

var names = [...]string{"VBlank", "LCD STAT", "Timer", "Serial", "Joypad"}

// Vector returns the address the CPU jumps to when servicing the source.
func (s Source) Vector() uint16 {
	return vectors[s]
}

func (s Source) String() string {
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Requester is the narrow capability handed to components that raise
// interrupts.
type Requester interface {
	Request(source Source)
}

// Controller holds the pending (IF) and enabled (IE) registers. The master
// enable flag is owned by the CPU.
type Controller struct {
	flags  uint8
	enable uint8
}

// New creates a controller with both registers cleared.
func New() *Controller {
	return &Controller{}
}

// Reset sets IF to its post-boot value and clears IE. IF reads back with the
// unused upper bits set so 0xE1 leaves only VBlank pending.
func (c *Controller) Reset(postBoot bool) {
	c.enable = 0
	c.flags = 0
	if postBoot {
		c.flags = 0x01
	}
}

// Request marks the source as pending.
func (c *Controller) Request(source Source) {
	c.flags |= 1 << source
}

// Acknowledge clears the pending bit of a serviced source.
func (c *Controller) Acknowledge(source Source) {
	c.flags &^= 1 << source
}

// PendingEnabled returns the highest priority source that is both pending and
// enabled.
func (c *Controller) PendingEnabled() (Source, bool) {
	active := c.flags & c.enable & sourceMask
	if active == 0 {
		return 0, false
	}
	for s := VBlank; s <= Joypad; s++ {
		if active&(1<<s) != 0 {
			return s, true
		}
	}
	return 0, false
}

// HasPending reports whether any enabled interrupt is pending, regardless of
// the master enable flag. HALT wakes on this condition.
func (c *Controller) HasPending() bool {
	return c.flags&c.enable&sourceMask != 0
}

// ReadFlags returns IF as seen by the CPU.
func (c *Controller) ReadFlags() uint8 {
	return c.flags | 0xE0
}

// WriteFlags sets IF.
func (c *Controller) WriteFlags(value uint8) {
	c.flags = value & sourceMask
}

// ReadEnable returns IE. All eight bits are stored.
func (c *Controller) ReadEnable() uint8 {
	return c.enable
}

// WriteEnable sets IE.
func (c *Controller) WriteEnable(value uint8) {
	c.enable = value
}
