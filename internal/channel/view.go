// internal/channel/view.go
package channel

import (
	"encoding/binary"
	"fmt"
)

// View interprets a byte slice of exactly Size bytes as the shared image.
// No locking: every read is an opportunistic, possibly torn snapshot.
type View struct {
	mem []byte
}

// NewView wraps mem. It fails if mem is not exactly Size bytes.
func NewView(mem []byte) (View, error) {
	if len(mem) != Size {
		return View{}, fmt.Errorf("channel: view size %d, want %d", len(mem), Size)
	}
	return View{mem: mem}, nil
}

// NewImage allocates a zeroed, process-local image (tests, tools).
func NewImage() View {
	return View{mem: make([]byte, Size)}
}

// Cursor returns the producer's write cursor. It may be out of range
// while the region is not yet populated.
func (v View) Cursor() uint32 {
	return binary.LittleEndian.Uint32(v.mem[offCursor:])
}

// Slot copies slot i out of the region. i must be < SlotCount.
func (v View) Slot(i int) EventSlot {
	b := v.mem[slotOffset(i) : slotOffset(i)+SlotSize]

	var s EventSlot
	s.Index = binary.LittleEndian.Uint32(b[offSlotIndex:])
	s.Effect = decodeEffect(b[offSlotEffect : offSlotEffect+EffectSize])
	s.TickCount = binary.LittleEndian.Uint32(b[offSlotTick:])
	return s
}

// Publish writes slot at the next cursor position and then advances the
// cursor, the way the producer does. Used by simulators and tests.
func (v View) Publish(s EventSlot) int {
	next := 0
	if c := v.Cursor(); c < SlotCount {
		next = int(c+1) % SlotCount
	}

	b := v.mem[slotOffset(next) : slotOffset(next)+SlotSize]
	binary.LittleEndian.PutUint32(b[offSlotIndex:], s.Index)
	encodeEffect(b[offSlotEffect:offSlotEffect+EffectSize], s.Effect)
	binary.LittleEndian.PutUint32(b[offSlotTick:], s.TickCount)

	v.SetCursor(uint32(next))
	return next
}

// SetCursor stores the raw cursor value.
func (v View) SetCursor(c uint32) {
	binary.LittleEndian.PutUint32(v.mem[offCursor:], c)
}

func decodeEffect(b []byte) Effect {
	var e Effect
	for i := 0; i < ColorCount; i++ {
		e.Colors[i] = Color(binary.LittleEndian.Uint32(b[i*4:]))
	}
	// Only 1 marks app-specific, as the producer compares against 1.
	e.AppSpecific = binary.LittleEndian.Uint32(b[offEffectAppSpecific:]) == 1
	return e
}

func encodeEffect(b []byte, e Effect) {
	for i := 0; i < ColorCount; i++ {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(e.Colors[i]))
	}
	var flag uint32
	if e.AppSpecific {
		flag = 1
	}
	binary.LittleEndian.PutUint32(b[offEffectAppSpecific:], flag)
}
