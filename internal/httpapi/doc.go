// Package httpapi serves the pawlog REST API.
//
// Routes:
//
//	POST /api/events  record an event {type, location, timestamp}  (bearer auth)
//	GET  /api/stats   flat statistics summary                      (bearer auth)
//	GET  /health      liveness
//	GET  /metrics     Prometheus metrics
//	GET  /status      uptime, backend, event counts, websocket clients
//	GET  /ws          websocket stream of summaries                 (bearer auth or ?token=)
//
// Every response carries an X-Request-ID header. Errors are JSON objects of
// the form {"message": "..."}.
package httpapi
