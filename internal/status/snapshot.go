// internal/status/snapshot.go
package status

// Snapshot represents exactly what the exporter is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Live           bool
	Code           Code
	SecondsNotLive uint16
	ConsumerIndex  uint16
}
