// Package adax is a stateful client for the Adax cloud heater API.
//
// A Client authenticates with the account's password grant, keeps the last
// fetched homes, rooms, devices and energy logs, and pushes room setpoints.
// The API allows one request every ten seconds per account, so the client
// orchestrates all traffic itself:
//
//   - TokenManager caches the bearer credential and drops it on any failure.
//   - Governor records the time of every request and computes the wait
//     before the next one.
//   - Writes are coalesced: edits for the same room replace each other, a
//     scheduled flush is cancelled and rescheduled by every new edit, and a
//     single control request carries the merged batch.
//   - Every call goes through one executor with a bounded retry budget.
//   - Snapshot is replaced wholesale by fetches and patched after writes.
//
// # Usage
//
//	client := adax.New(adax.Config{
//	    AccountID: "123456",
//	    Password:  os.Getenv("ADAX_PASSWORD"),
//	})
//	defer client.Close()
//
//	rooms := client.GetRooms(ctx)
//	if err := client.SetRoomTargetTemperature(ctx, rooms[0].ID, 21.5, true); err != nil {
//	    log.Printf("write failed: %v", err)
//	}
//
// # Reads
//
// GetHomes, GetRooms, GetDevices and GetEnergy call Update before returning
// the snapshot. Update is skipped while the rate limit has not elapsed or a
// write is pending; the caller still gets the last known data. Failed
// fetches are logged and leave the snapshot untouched. Energy logs are only
// committed when every room's log was fetched; set SkipEnergyLogs to leave
// them out.
//
// # Errors
//
// Execute returns *APIError values. Only transport failures and timeouts
// that exhausted the retry budget are hard errors (IsHard); authentication
// failures, 429 responses and other status errors mean "no data this time".
package adax
