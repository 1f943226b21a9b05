// Package websocket provides the session transport for the race lobby server.
//
// The websocket package implements:
//   - One session handle per connection, assigned by the hub
//   - Connect and disconnect notifications to a Handler
//   - Inbound client frames with per-session rate limiting
//   - Fire-and-forget pushes that keep per-session order
//
// Architecture:
//
// A central Hub owns every connection. Each client runs a read pump and a
// write pump goroutine. Registration and removal are serialised through the
// hub's Run loop, which is also the only goroutine that reports lifecycle
// events to the Handler.
//
// Message Protocol:
//
// Frames are JSON encoded:
//   - Incoming: {"type": "hello", "data": {"players": [{"id": "p1"}]}}
//   - Incoming: {"type": "message", "data": {"kind": "ACTION", "text": "..."}}
//   - Outgoing: {"session": "<handle>", "event": "lobby_update", "data": {...}}
//
// The first message on every connection is a "welcome" event carrying the
// session handle. Rejected frames are answered with an "error" event.
//
// Usage:
//
//	hub := websocket.NewHub(handler, websocket.WithRateLimit(5, 10))
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Concurrency:
//
// Publish never blocks and may be called from any goroutine, including while
// the caller holds its own locks. A session whose buffer fills up is dropped.
package websocket
