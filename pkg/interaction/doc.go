// Package interaction connects a subscription.Manager to the outside world.
//
// # Engine
//
// The Manager is single-threaded. Engine owns one and serializes every
// access on a single goroutine: API calls, inbound frames and a periodic
// exercise tick.
//
//	codec := wire.NewCodec()
//	m := subscription.NewManager(transport, codec, subscription.DefaultConfig())
//	engine := interaction.NewEngine(m, codec, interaction.EngineConfig{
//	    OnNotification: func(n subscription.Notification) { ... },
//	})
//	go engine.Run(ctx)
//
//	engine.Subscribe(ctx, 1, subscription.Definition{Channel: "quotes/AAPL", ReferencableKey: "AAPL"})
//	engine.GoOnline(ctx)
//	engine.Activate(ctx, 1, 1)
//
// The transport's read loop feeds received frames to Engine.HandleFrame.
//
// # Router
//
// Router maps an inbound message to its subscription through the
// correlation key and hands the parsed result to Manager.Deliver. Messages
// for unknown keys fail with ErrUnexpectedReply. That is normal for late
// responses, and Ignorable reports it.
//
// # Simulated publisher
//
// Server is an in-memory publisher for the wire protocol. It answers
// subscribe and query requests, drops or rejects them on demand and pushes
// periodic snapshots on open streams. The simulator and the tests use it.
package interaction
