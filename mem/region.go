// Package mem models the device's fixed memory regions as capacity-accounted
// arenas. The runtime carries two regions: a small fast-SRAM region for DMA
// and real-time buffers, and a large PSRAM region for image and particle
// buffers. Allocations are named reservations; telemetry reads free counts
// from the regions and the metrics registry exposes usage gauges.
package mem

import (
	"fmt"
	"log/slog"
	"sync"

	errs "github.com/c360/sduiterm/errors"
)

// Standard region names used by the boot orchestrator
const (
	RegionFastSRAM = "fast_sram"
	RegionPSRAM    = "psram"
)

// Region is a byte-capacity arena. It does not hold memory itself; it
// accounts for reservations against a fixed budget so exhaustion surfaces
// as an error instead of an unexplained allocation failure at runtime.
type Region struct {
	name     string
	capacity int64

	mu            sync.Mutex
	used          int64
	highWater     int64
	maxContiguous int64 // 0 means unfragmented, whole free space usable
	allocs        map[string]int64

	metrics *regionMetrics
	logger  *slog.Logger
}

// NewRegion creates a region with the given byte capacity. registrar may be
// nil to disable metrics.
func NewRegion(name string, capacity int64, registrar Registrar, logger *slog.Logger) (*Region, error) {
	if capacity <= 0 {
		return nil, errs.WrapInvalid(
			fmt.Errorf("capacity %d", capacity),
			"Region", "NewRegion", "region capacity must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newRegionMetrics(registrar, name)
	if err != nil {
		return nil, err
	}

	r := &Region{
		name:     name,
		capacity: capacity,
		allocs:   make(map[string]int64),
		metrics:  metrics,
		logger:   logger,
	}
	r.metrics.update(0, capacity)
	return r, nil
}

// Name returns the region name
func (r *Region) Name() string {
	return r.name
}

// Capacity returns the total byte budget
func (r *Region) Capacity() int64 {
	return r.capacity
}

// Alloc reserves size bytes under the given name. It fails when the name is
// already reserved, when the region lacks free space, or when fragmentation
// caps the largest satisfiable request below size.
func (r *Region) Alloc(name string, size int64) error {
	if size <= 0 {
		return errs.WrapInvalid(
			fmt.Errorf("size %d", size),
			"Region", "Alloc", "allocation size must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.allocs[name]; exists {
		return errs.WrapInvalid(
			fmt.Errorf("allocation %q already exists in region %s", name, r.name),
			"Region", "Alloc", "reserve named allocation")
	}

	free := r.capacity - r.used
	if size > free {
		return errs.WrapFatal(
			fmt.Errorf("%w: %s needs %d bytes, %d free in %s",
				errs.ErrRegionExhausted, name, size, free, r.name),
			"Region", "Alloc", "reserve named allocation")
	}
	if r.maxContiguous > 0 && size > r.maxContiguous {
		return errs.WrapFatal(
			fmt.Errorf("%w: %s needs %d contiguous bytes, region %s fragmented to %d",
				errs.ErrRegionExhausted, name, size, r.name, r.maxContiguous),
			"Region", "Alloc", "reserve named allocation")
	}

	r.allocs[name] = size
	r.used += size
	if r.used > r.highWater {
		r.highWater = r.used
	}
	r.metrics.update(r.used, r.capacity-r.used)

	r.logger.Debug("Region allocation",
		"region", r.name, "name", name, "size", size, "free", r.capacity-r.used)
	return nil
}

// Free releases a named reservation. Freeing an unknown name is a logged
// no-op so deletion hooks can run unconditionally.
func (r *Region) Free(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size, exists := r.allocs[name]
	if !exists {
		r.logger.Debug("Free of unknown allocation", "region", r.name, "name", name)
		return
	}

	delete(r.allocs, name)
	r.used -= size
	r.metrics.update(r.used, r.capacity-r.used)
}

// MarkFragmented caps the largest single allocation the region will satisfy.
// The Wi-Fi stack start carves the fast region up; large buffers must be
// reserved before that point.
func (r *Region) MarkFragmented(maxContiguous int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxContiguous = maxContiguous
	r.logger.Info("Region fragmented",
		"region", r.name, "max_contiguous", maxContiguous, "free", r.capacity-r.used)
}

// Used returns reserved bytes
func (r *Region) Used() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// FreeBytes returns unreserved bytes
func (r *Region) FreeBytes() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capacity - r.used
}

// HighWater returns the peak reserved byte count
func (r *Region) HighWater() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.highWater
}

// Size returns the byte size of a named reservation, or 0 if absent
func (r *Region) Size(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocs[name]
}
