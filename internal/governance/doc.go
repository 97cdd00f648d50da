// Package governance implements the client-side safety controls the SDK
// wraps around every network-bound operation: bounded retries with
// exponential backoff and jitter, timeout budget enforcement, and an
// optional outbound request throttle.
//
// The package deliberately does not retry authentication or rate-limit
// failures; those are always surfaced to the caller unmodified.
package governance
