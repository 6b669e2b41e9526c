// Package server implements a local HTTP and WebSocket bridge for one Adax account.
//
// The bridge lets other programs on the network read rooms and push setpoints
// without each of them talking to the Adax cloud. All traffic goes through a
// single *adax.Client, so the account's rate limit and write coalescing hold
// no matter how many bridge clients there are.
//
// # Routes
//
//	GET  /health                    status, version, write pending flag
//	GET  /api/v1/homes              homes
//	GET  /api/v1/rooms              rooms (°C)
//	GET  /api/v1/rooms/:id          one room
//	GET  /api/v1/devices            heaters
//	GET  /api/v1/energy             energy logs keyed by room id
//	POST /api/v1/rooms/:id/target   {"temperature":21.5,"heatingEnabled":true}
//	GET  /ws?interval=30s           room stream, {"type":"rooms","data":[...]}
//	GET  /metrics                   Prometheus metrics
//
// A setpoint request answers once the control request carrying it has
// completed: 200 on success, 429 when Adax rate limited it, 504 on transport
// failure, 502 otherwise.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{Port: 8080}, client, registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Start handles SIGINT and SIGTERM. Shutdown sends a close frame to every
// room stream, then waits for in-flight requests.
package server
