// Package ws streams statistics summaries to WebSocket clients.
//
// Hub.ServeHTTP upgrades a connection, sends the current summary right away,
// then forwards every summary passed to Hub.Broadcast. The recording service
// broadcasts after each stored event.
//
// Message format sent to clients:
//
//	{
//	  "event": "stats",
//	  "data":  { /* same schema as GET /api/stats */ }
//	}
//
// Clients whose send buffer is full are disconnected.
package ws
