// Package ws streams exposure events over a websocket.
//
// Every object the daemon exports or withdraws is reported to connected
// clients as it happens.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//   - subscribe: Restrict the stream to the listed kinds ("pool", "volume",
//     "device", "cache"); an empty list restores everything
//
// Message Types (Server → Client):
//   - hello: Sent once after the upgrade
//   - added, removed: An object appeared on or left the bus
//   - pong, subscribed: Replies to the client messages
//   - error: Unknown client message
//
// Delivery is lossy: a client that falls more than the buffer behind misses
// events.
//
// Example Usage:
//
//	handler := ws.NewHandler(exp, metrics, logger)
//	router.GET("/events", handler.HandleConnection)
package ws
