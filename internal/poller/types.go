// internal/poller/types.go
package poller

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tamzrod/broadcast-bridge/internal/channel"
	"github.com/tamzrod/broadcast-bridge/internal/status"
)

// Source is the shared channel as the poller sees it.
// Reads are opportunistic snapshots; nothing blocks the producer.
type Source interface {
	Cursor() uint32
	Slot(i int) channel.EventSlot
}

// Prober probes the producer's named mutex.
// nil error => present and acquirable (or held by its owner).
type Prober interface {
	Probe() error
}

// Policy is the registration store's view of the enable flags.
type Policy interface {
	FeatureEnabled() bool
	AppEnabled(name string) bool
}

// Liveness is the monitor's latest service verdict.
type Liveness interface {
	ServiceInstalled() bool
	ServiceRunning() bool
}

// Waiter is the producer's "new data" event.
type Waiter interface {
	Wait(ctx context.Context, clock clockwork.Clock, poll time.Duration) error
}

// Outcome classifies one cycle.
type Outcome string

const (
	OutcomeSkipped    Outcome = "skipped"     // cursor out of range
	OutcomeNoCallback Outcome = "no_callback" // nothing registered
	OutcomeDelivered  Outcome = "delivered"
	OutcomeFiltered   Outcome = "filtered"    // app-specific effect for another consumer
	OutcomeGated      Outcome = "gated"       // a gating condition failed
	OutcomeContended  Outcome = "contended"   // session lock busy, cycle not run
)

// CycleResult is a snapshot produced by one poll cycle.
type CycleResult struct {
	At      time.Time
	Cursor  uint32
	Slot    channel.EventSlot
	Outcome Outcome

	// Validated is true when this cycle re-probed producer and policy.
	Validated bool
	Status    status.Code

	// At most one of these is set.
	WentLive    bool
	WentNotLive bool
}
