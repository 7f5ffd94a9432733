// Package broadcast consumes the color-effect stream a producer service
// publishes through shared memory and hands it to an in-process callback,
// together with live/not-live transitions.
//
// An Engine is one consumer session:
//
//	eng := broadcast.New(broadcast.Options{})
//	if err := eng.Init(ctx, appID); err != nil { ... }
//	defer eng.UnInit()
//	eng.RegisterCallback(func(n broadcast.Notification) { ... })
//
// Several engines may run in one process; nothing is global.
package broadcast
