// internal/writer/types.go
package writer

import "github.com/tamzrod/broadcast-bridge/internal/status"

// StatusPlan locates the status block of one consumer on a Modbus endpoint.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16 // block number; address = BaseSlot * SlotsPerBlock
	DeviceName string
}

// StatusWriter is the delivery-only contract for the health snapshot.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// endpointClient is the exact contract the status writer uses.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}
