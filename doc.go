// Package sduiterm is the firmware runtime for a server-driven UI terminal:
// a round-display, voice-enabled device that keeps no application logic of
// its own. A remote server drives every screen over a WebSocket link, and
// the device renders layouts, captures and plays audio, and reports sensor
// events upward.
//
// # Architecture
//
// Data flows through a small in-process pub/sub bus:
//
//   - transport maintains the WebSocket link, reassembles fragmented text
//     frames, and routes each complete JSON envelope onto the bus
//   - bus fans downlink topics out to subscribers and serialises uplink
//     publishes back through the transport, stamping the device identity
//   - layout holds the retained scene graph: full renders on ui/layout,
//     incremental updates on ui/update, action URIs back on ui/click, and
//     an animation timeline with particle effects
//   - audio runs the full-duplex voice pipeline: Base64 PCM playback from
//     audio/play and chunked capture streaming on audio/record
//   - imu polls the accelerometer and publishes shake events on motion
//   - telemetry publishes a periodic device heartbeat
//
// The boot package wires these together in strict order because the Wi-Fi
// driver permanently fragments fast SRAM on activation: display and audio
// DMA buffers are reserved first, subscriptions are registered before the
// link comes up, and shutdown runs in reverse.
//
// # Memory Model
//
// The mem package models the two on-device memory regions (fast SRAM and
// PSRAM) as accounted arenas. DMA-facing buffers come from fast SRAM during
// boot; image and particle buffers come from PSRAM at render time.
package sduiterm
