// internal/status/encode.go
package status

// Encode converts a Snapshot into the live part of a status block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerBlock)

	if s.Live {
		regs[SlotLive] = 1
	}
	regs[SlotStatusCode] = uint16(s.Code)
	regs[SlotSecondsNotLive] = s.SecondsNotLive
	regs[SlotConsumerIndex] = s.ConsumerIndex

	return regs
}
