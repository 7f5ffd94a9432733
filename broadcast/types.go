package broadcast

import (
	"github.com/tamzrod/broadcast-bridge/internal/channel"
	"github.com/tamzrod/broadcast-bridge/internal/session"
	"github.com/tamzrod/broadcast-bridge/internal/status"
)

type (
	Color            = channel.Color
	Effect           = channel.Effect
	Notification     = session.Notification
	NotificationType = session.NotificationType
	LiveState        = session.LiveState
	Callback         = session.Callback
	Snapshot         = status.Snapshot
	StatusCode       = status.Code
)

const (
	EffectNotification = session.EffectNotification
	StatusNotification = session.StatusNotification

	Live    = session.Live
	NotLive = session.NotLive
)

// State is the engine lifecycle state.
type State uint32

const (
	Uninitialized State = iota
	Initializing
	Running
	Uninitializing
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Uninitializing:
		return "uninitializing"
	default:
		return "uninitialized"
	}
}
