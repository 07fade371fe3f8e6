// Package connection retries bridge dial attempts with exponential backoff.
//
// # Backoff
//
//  1. Initial delay: 500 milliseconds
//  2. Exponential increase: 1s, 2s, 4s, 8s, 16s
//  3. Maximum delay: 30 seconds
//
// # Jitter
//
// To prevent many clients from redialing a restarted bridge at once:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// Only dialing is retried. Once a bridge connection is established, a lost
// connection fails the calls in flight; device state on the bridge is not
// recovered, so the caller starts a new session.
package connection
