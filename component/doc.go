// Package component provides the shared component infrastructure for the
// device runtime: discovery, lifecycle, and structured logging.
//
// # Overview
//
// Every long-running subsystem (transport, audio, layout, IMU, telemetry)
// implements Discoverable so the health monitor can inspect its identity and
// current state, and LifecycleComponent so the boot orchestrator can drive
// Initialize, Start, and Stop in the one order the hardware tolerates.
//
// # Lifecycle Pattern
//
// Components move through a fixed progression:
//
//  1. Construction validates dependencies and registers metrics
//  2. Initialize configures hardware and reserves memory-region buffers
//  3. Start launches the component's goroutines on the boot context
//  4. Stop halts them within a timeout and releases reservations
//
// Initialize is separate from Start because fast-SRAM reservations must all
// land before the Wi-Fi driver fragments the region. The orchestrator brings
// components up one at a time in boot order, running Initialize and then
// Start on each before moving to the next; the telemetry reporter is started
// without an Initialize call.
//
// # Health Reporting
//
// Health() returns a point-in-time HealthStatus with an error counter and
// the last error string. Components keep these in atomics so reporting never
// blocks a data path. The health monitor samples all registered components
// periodically and logs transitions.
package component
