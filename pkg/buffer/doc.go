// Package buffer provides thread-safe circular buffers with configurable
// overflow policies, always-on statistics, and optional Prometheus metrics.
//
// # Quick Start
//
// A plain buffer:
//
//	buf, err := buffer.NewCircularBuffer[int](64)
//	if err != nil {
//		return err
//	}
//	err = buf.Write(42)
//	value, ok := buf.Read()
//
// The playback queue in front of the audio codec, with a drop observer and
// metrics:
//
//	pcm, err := buffer.NewCircularBuffer[[]byte](16,
//		buffer.WithOverflowPolicy[[]byte](buffer.DropOldest),
//		buffer.WithDropCallback[[]byte](func(chunk []byte) {
//			region.Free(scratchName(chunk))
//		}),
//		buffer.WithMetrics[[]byte](registry, "audio_playback"),
//	)
//
// # Overflow Policies
//
// Three behaviours when a Write finds the buffer full:
//
//   - DropOldest: discard the oldest item to admit the new one (default)
//   - DropNewest: discard the incoming item
//   - Block: wait for a reader to free a slot
//
// Under Block, the concrete buffer also offers WriteWithContext and
// WriteWithTimeout so a producer can bound its wait:
//
//	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
//	defer cancel()
//	err := buf.WriteWithContext(ctx, frame)
//
// # Statistics and Metrics
//
// Statistics are collected unconditionally through atomic counters and read
// via Stats(): operation counts, overflow and drop counts, the size
// high-water mark, and derived values such as DropRate and Utilization. They
// carry no Prometheus dependency, so they stay available in tests and on
// devices that never scrape.
//
// WithMetrics additionally registers per-buffer Prometheus counters and
// gauges under the sduiterm_buffer namespace, labelled by component, for the
// metrics endpoint.
//
// # Thread Safety
//
// All operations are safe for concurrent producers and consumers. Internal
// state sits behind a sync.RWMutex; the Block policy waits on a sync.Cond.
//
// # Performance
//
// Write, Read, and Peek are O(1) over a pre-allocated array; ReadBatch is
// O(n) in the batch size. No allocations happen during steady-state
// operation, which is what lets the playback path run a 16-deep queue of PCM
// chunks without disturbing the region accounting.
package buffer
