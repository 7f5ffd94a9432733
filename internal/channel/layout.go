// internal/channel/layout.go
package channel

// Shared region layout constants.
// These values are fixed by the producer and MUST NOT be configurable.
// All integers are little-endian, fields are packed.

// ---- GEOMETRY ----

// SlotCount is the number of event slots in the ring.
const SlotCount = 10

// HeaderSize is cursor(4) + reserved(4).
const HeaderSize = 8

// ColorCount is the number of colors carried by one effect.
const ColorCount = 5

// EffectSize is 5 colors(4) + app-specific flag(4).
const EffectSize = ColorCount*4 + 4

// SlotSize is index(4) + effect + reserved(4) + tick(4) + reserved(4).
const SlotSize = 4 + EffectSize + 4 + 4 + 4

// Size is the exact size of the region.
const Size = HeaderSize + SlotCount*SlotSize

// ---- HEADER OFFSETS ----

const offCursor = 0

// ---- SLOT OFFSETS (relative to slot start) ----

const (
	offSlotIndex     = 0
	offSlotEffect    = 4
	offSlotReserved1 = offSlotEffect + EffectSize
	offSlotTick      = offSlotReserved1 + 4
)

// ---- EFFECT OFFSETS (relative to effect start) ----

const offEffectAppSpecific = ColorCount * 4

func slotOffset(i int) int {
	return HeaderSize + i*SlotSize
}
