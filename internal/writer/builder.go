// internal/writer/builder.go
package writer

import (
	"errors"

	cfg "github.com/tamzrod/broadcast-bridge/internal/config"
	wmodbus "github.com/tamzrod/broadcast-bridge/internal/writer/modbus"
)

// BuildStatusPlan converts the export config into a StatusPlan.
// An empty endpoint disables the export.
func BuildStatusPlan(e cfg.ExportConfig) (StatusPlan, bool) {
	if e.Endpoint == "" {
		return StatusPlan{}, false
	}
	return StatusPlan{
		Endpoint:   e.Endpoint,
		UnitID:     e.UnitID,
		BaseSlot:   e.BaseSlot,
		DeviceName: e.DeviceName,
	}, true
}

// BuildStatusWriter creates the endpoint client and the writer on top of it.
// The returned close func releases the connection.
func BuildStatusWriter(e cfg.ExportConfig) (StatusWriter, func() error, error) {
	plan, ok := BuildStatusPlan(e)
	if !ok {
		return nil, nil, errors.New("writer: export endpoint not configured")
	}

	c, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: plan.Endpoint,
		Timeout:  e.Timeout(),
	})
	if err != nil {
		return nil, nil, err
	}

	return NewDeviceStatusWriter(plan, c), c.Close, nil
}
