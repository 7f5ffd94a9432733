// internal/channel/types.go
package channel

import "fmt"

// Color is one packed color value.
// Byte 0 = red, 1 = green, 2 = blue, 3 = alpha (if applicable).
type Color uint32

func (c Color) R() uint8 { return uint8(c) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c >> 16) }
func (c Color) A() uint8 { return uint8(c >> 24) }

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R(), c.G(), c.B())
}

// RGBA packs components in wire order.
func RGBA(r, g, b, a uint8) Color {
	return Color(uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24)
}

// Effect is an immutable snapshot copied out of one slot.
type Effect struct {
	Colors      [ColorCount]Color
	AppSpecific bool
}

// EventSlot is one ring entry as written by the producer.
type EventSlot struct {
	// Index is the consumer index the effect targets; 0 means everyone.
	Index     uint32
	Effect    Effect
	TickCount uint32
}
