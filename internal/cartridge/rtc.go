package cartridge

import (
	"encoding/binary"
	"fmt"
	"time"
)

// RTC register select values written to 4000-5FFF.
const (
	RTCSeconds  = 0x08
	RTCMinutes  = 0x09
	RTCHours    = 0x0A
	RTCDayLow   = 0x0B
	RTCDayHigh  = 0x0C
	rtcRegCount = 5
)

const (
	dayHighBit = 0x01
	haltBit    = 0x40
	carryBit   = 0x80

	// 5 live + 5 latched 32-bit registers and a 64-bit unix timestamp
	rtcSaveSize = rtcRegCount*4*2 + 8
)

var rtcMasks = [rtcRegCount]uint8{0x3F, 0x3F, 0x1F, 0xFF, 0xC1}

// Clock is the wall clock source of a running RTC.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// RTC is the MBC3 real-time clock. Without a Clock the registers are plain
// storage and only change when written.
type RTC struct {
	live    [rtcRegCount]uint8
	latched [rtcRegCount]uint8

	latchArmed bool

	clock Clock
	last  time.Time
}

// NewRTC creates a stopped clock with all registers zero.
func NewRTC() *RTC {
	return &RTC{}
}

// SetClock attaches a wall clock. A nil clock freezes the registers.
func (r *RTC) SetClock(clock Clock) {
	r.clock = clock
	if clock != nil {
		r.last = clock.Now()
	}
}

// update advances the live registers by the wall time elapsed since the last
// update, in whole seconds.
func (r *RTC) update() {
	if r.clock == nil {
		return
	}
	now := r.clock.Now()
	if r.live[4]&haltBit != 0 {
		r.last = now
		return
	}
	elapsed := int64(now.Sub(r.last) / time.Second)
	if elapsed <= 0 {
		return
	}
	r.last = r.last.Add(time.Duration(elapsed) * time.Second)
	r.Advance(elapsed)
}

// Advance moves the live registers forward by seconds. Day counter overflow
// past 511 sets the carry bit, which stays set until written.
func (r *RTC) Advance(seconds int64) {
	if r.live[4]&haltBit != 0 {
		return
	}

	day := int64(r.live[3]) | int64(r.live[4]&dayHighBit)<<8
	total := int64(r.live[0]) + int64(r.live[1])*60 + int64(r.live[2])*3600 + day*86400 + seconds

	r.live[0] = uint8(total % 60)
	r.live[1] = uint8(total / 60 % 60)
	r.live[2] = uint8(total / 3600 % 24)

	day = total / 86400
	if day > 511 {
		r.live[4] |= carryBit
		day %= 512
	}
	r.live[3] = uint8(day)
	r.live[4] = r.live[4]&^dayHighBit | uint8(day>>8)&dayHighBit
}

// WriteLatch handles writes to 6000-7FFF. Writing 0x00 then 0x01 copies the
// live registers into the latched set read by the program.
func (r *RTC) WriteLatch(value uint8) {
	if r.latchArmed && value == 0x01 {
		r.update()
		r.latched = r.live
	}
	r.latchArmed = value == 0x00
}

// Read returns a latched register.
func (r *RTC) Read(sel uint8) uint8 {
	return r.latched[sel-RTCSeconds] | ^rtcMasks[sel-RTCSeconds]
}

// Write sets a live register.
func (r *RTC) Write(sel uint8, value uint8) {
	r.update()
	i := sel - RTCSeconds
	r.live[i] = value & rtcMasks[i]
	r.latched[i] = r.live[i]
}

// Halted reports whether the halt bit is set.
func (r *RTC) Halted() bool {
	return r.live[4]&haltBit != 0
}

// MarshalBinary encodes the clock in the 48-byte trailer used by common save
// files: live and latched registers as little endian 32-bit words followed by
// a 64-bit unix timestamp.
func (r *RTC) MarshalBinary() []byte {
	r.update()
	data := make([]byte, rtcSaveSize)
	for i := 0; i < rtcRegCount; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(r.live[i]))
		binary.LittleEndian.PutUint32(data[(rtcRegCount+i)*4:], uint32(r.latched[i]))
	}
	ts := r.last
	if r.clock == nil {
		ts = time.Now()
	}
	binary.LittleEndian.PutUint64(data[rtcRegCount*8:], uint64(ts.Unix()))
	return data
}

// UnmarshalBinary restores the clock from a save trailer. With a clock
// attached the time that passed since the save is applied.
func (r *RTC) UnmarshalBinary(data []byte) error {
	if len(data) < rtcSaveSize {
		return fmt.Errorf("rtc save data: %d bytes, want %d", len(data), rtcSaveSize)
	}
	for i := 0; i < rtcRegCount; i++ {
		r.live[i] = uint8(binary.LittleEndian.Uint32(data[i*4:])) & rtcMasks[i]
		r.latched[i] = uint8(binary.LittleEndian.Uint32(data[(rtcRegCount+i)*4:])) & rtcMasks[i]
	}
	saved := time.Unix(int64(binary.LittleEndian.Uint64(data[rtcRegCount*8:])), 0)
	if r.clock != nil {
		r.last = saved
		r.update()
	}
	return nil
}
