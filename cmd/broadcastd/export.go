// cmd/broadcastd/export.go
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tamzrod/broadcast-bridge/broadcast"
	"github.com/tamzrod/broadcast-bridge/internal/writer"
)

// snapshotSource is the part of the engine the exporter reads.
type snapshotSource interface {
	Status() broadcast.Snapshot
}

// runExport writes the engine snapshot once on start (full block), then on
// every 1 Hz tick. The writer only sends slots that changed.
func runExport(ctx context.Context, src snapshotSource, sw writer.StatusWriter, clock clockwork.Clock, logger *slog.Logger) {
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	failing := false
	write := func() {
		err := sw.WriteStatus(src.Status())
		switch {
		case err != nil && !failing:
			logger.Warn("status write failed", "error", err)
			failing = true
		case err == nil && failing:
			logger.Info("status write recovered")
			failing = false
		}
	}

	write()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			write()
		}
	}
}
