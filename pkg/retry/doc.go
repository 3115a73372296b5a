// Package retry provides bounded exponential backoff for transient failures
// in device peripherals and platform services: flash persistence, sensor
// reads, and resource initialization.
//
// # Core Functions
//
//   - Do: run an operation with backoff between attempts
//   - DoWithResult: same, for operations that produce a value
//
// # Usage
//
// Flash write with the default budget:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return store.Persist()
//	})
//
// Sensor read with a tight custom budget:
//
//	cfg := retry.Config{
//	    MaxAttempts:  2,
//	    InitialDelay: 2 * time.Millisecond,
//	    MaxDelay:     10 * time.Millisecond,
//	    Multiplier:   2.0,
//	}
//	celsius, err := retry.DoWithResult(ctx, cfg, sensor.Temperature)
//
// Permanent failures skip the remaining budget:
//
//	return retry.NonRetryable(fmt.Errorf("ssid rejected: %w", err))
//
// # Scope
//
// This package is intentionally minimal: exponential backoff with optional
// jitter, a non-retryable marker, and nothing else. Error classification
// stays at the call site, and the server-link reconnect loop does not use
// this package at all since its cadence is fixed.
//
// # Context Cancellation
//
// Do and DoWithResult stop immediately when the context is cancelled, both
// between attempts and during a backoff sleep.
package retry
