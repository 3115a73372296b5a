package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sduiterm/errors"
	"github.com/c360/sduiterm/metric"
)

func newTestRegion(t *testing.T, capacity int64) *Region {
	t.Helper()
	r, err := NewRegion(RegionFastSRAM, capacity, nil, nil)
	require.NoError(t, err)
	return r
}

func TestNewRegion(t *testing.T) {
	r := newTestRegion(t, 1024)
	assert.Equal(t, RegionFastSRAM, r.Name())
	assert.Equal(t, int64(1024), r.Capacity())
	assert.Equal(t, int64(0), r.Used())
	assert.Equal(t, int64(1024), r.FreeBytes())
}

func TestNewRegion_InvalidCapacity(t *testing.T) {
	_, err := NewRegion("bad", 0, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = NewRegion("bad", -5, nil, nil)
	assert.Error(t, err)
}

func TestRegion_AllocFree(t *testing.T) {
	r := newTestRegion(t, 1000)

	require.NoError(t, r.Alloc("display_frame", 400))
	require.NoError(t, r.Alloc("i2s_dma", 300))

	assert.Equal(t, int64(700), r.Used())
	assert.Equal(t, int64(300), r.FreeBytes())
	assert.Equal(t, int64(400), r.Size("display_frame"))

	r.Free("display_frame")
	assert.Equal(t, int64(300), r.Used())
	assert.Equal(t, int64(0), r.Size("display_frame"))

	// High water tracks the peak, not the current level
	assert.Equal(t, int64(700), r.HighWater())
}

func TestRegion_AllocExhaustion(t *testing.T) {
	r := newTestRegion(t, 100)

	require.NoError(t, r.Alloc("a", 80))
	err := r.Alloc("b", 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRegionExhausted)
	assert.True(t, errors.IsFatal(err))

	// Failed alloc must not consume budget
	assert.Equal(t, int64(80), r.Used())
}

func TestRegion_DuplicateName(t *testing.T) {
	r := newTestRegion(t, 100)

	require.NoError(t, r.Alloc("pcm", 10))
	err := r.Alloc("pcm", 10)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Equal(t, int64(10), r.Used())
}

func TestRegion_InvalidSize(t *testing.T) {
	r := newTestRegion(t, 100)
	assert.Error(t, r.Alloc("zero", 0))
	assert.Error(t, r.Alloc("negative", -1))
}

func TestRegion_FreeUnknownIsNoop(t *testing.T) {
	r := newTestRegion(t, 100)
	r.Free("never-allocated")
	assert.Equal(t, int64(0), r.Used())
}

func TestRegion_Fragmentation(t *testing.T) {
	r := newTestRegion(t, 1000)

	// Large buffers reserved before fragmentation succeed
	require.NoError(t, r.Alloc("pcm_capture", 512))

	r.MarkFragmented(128)

	// Small allocations still work
	require.NoError(t, r.Alloc("scratch", 64))

	// Anything above the contiguous cap fails even though budget remains
	err := r.Alloc("big", 256)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRegionExhausted)
	assert.Greater(t, r.FreeBytes(), int64(256))
}

func TestRegion_MetricsRegistration(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	r, err := NewRegion(RegionPSRAM, 8<<20, registry, nil)
	require.NoError(t, err)

	require.NoError(t, r.Alloc("image_buffer", 1<<20))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["sduiterm_mem_region_used_bytes"])
	assert.True(t, names["sduiterm_mem_region_free_bytes"])
}

func TestRegion_ConcurrentAlloc(t *testing.T) {
	r := newTestRegion(t, 10000)

	done := make(chan error, 100)
	for i := 0; i < 100; i++ {
		go func(id int) {
			done <- r.Alloc(string(rune('a'+id%26))+string(rune('0'+id/26)), 100)
		}(i)
	}

	failures := 0
	for i := 0; i < 100; i++ {
		if err := <-done; err != nil {
			failures++
		}
	}

	// 100 allocations of 100 bytes against a 10000-byte budget: any failures
	// must be accounted, and usage must never exceed capacity.
	assert.LessOrEqual(t, r.Used(), r.Capacity())
	assert.Equal(t, int64((100-failures)*100), r.Used())
}
