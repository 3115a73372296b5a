package audio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sduiterm/config"
	"github.com/c360/sduiterm/mem"
)

type fakeSpeaker struct {
	mu      sync.Mutex
	written [][]byte
	volume  int
	err     error
}

func (f *fakeSpeaker) Write(pcm []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.written = append(f.written, append([]byte(nil), pcm...))
	return len(pcm), nil
}

func (f *fakeSpeaker) SetVolume(level int) error {
	f.volume = level
	return nil
}

func (f *fakeSpeaker) Close() error { return nil }

func (f *fakeSpeaker) writtenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

type fakeMic struct {
	mu   sync.Mutex
	gain float64
	fill byte
	err  error
}

func (f *fakeMic) Read(pcm []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	for i := range pcm {
		pcm[i] = f.fill
	}
	// Pace reads so tests see a handful of chunks, not thousands
	time.Sleep(time.Millisecond)
	return len(pcm), nil
}

func (f *fakeMic) SetGain(db float64) error {
	f.gain = db
	return nil
}

func (f *fakeMic) Close() error { return nil }

type recordingSink struct {
	mu     sync.Mutex
	frames []streamFrame
}

func (r *recordingSink) PublishUp(topic, payload string) error {
	if topic != RecordTopic {
		return fmt.Errorf("unexpected topic %s", topic)
	}
	var frame streamFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	return nil
}

func (r *recordingSink) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.frames))
	for i, f := range r.frames {
		out[i] = f.State
	}
	return out
}

func testAudioConfig() config.AudioConfig {
	return config.AudioConfig{
		SampleRate:    22050,
		ChunkSize:     1024,
		SpeakerVolume: 70,
		MicGain:       24.0,
	}
}

func newTestManager(t *testing.T) (*Manager, *fakeSpeaker, *fakeMic, *recordingSink) {
	t.Helper()
	spk := &fakeSpeaker{}
	mic := &fakeMic{fill: 0x42}
	sink := &recordingSink{}

	m, err := NewManager(testAudioConfig(), spk, mic, sink, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	return m, spk, mic, sink
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(testAudioConfig(), nil, &fakeMic{}, &recordingSink{}, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewManager(testAudioConfig(), &fakeSpeaker{}, &fakeMic{}, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestInitialize_SetsGainsAndReservesFastSRAM(t *testing.T) {
	fast, err := mem.NewRegion(mem.RegionFastSRAM, 64<<10, nil, nil)
	require.NoError(t, err)

	spk := &fakeSpeaker{}
	mic := &fakeMic{}
	m, err := NewManager(testAudioConfig(), spk, mic, &recordingSink{}, fast, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Initialize())

	assert.Equal(t, 70, spk.volume)
	assert.Equal(t, 24.0, mic.gain)
	assert.Equal(t, int64(i2sDMABytes+1024), fast.Used())
	assert.Equal(t, int64(1024), fast.Size(allocPCMCapture))
}

func TestHandlePlay_WritesToSpeaker(t *testing.T) {
	m, spk, _, _ := newTestManager(t)
	require.NoError(t, m.Start(context.Background()))
	defer func() { _ = m.Stop(time.Second) }()

	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	m.HandlePlay(base64.StdEncoding.EncodeToString(pcm))

	waitFor(t, time.Second, func() bool { return spk.writtenCount() > 0 })

	spk.mu.Lock()
	defer spk.mu.Unlock()
	assert.Equal(t, pcm, spk.written[0])
}

func TestHandlePlay_PlayScratchComesFromFastSRAM(t *testing.T) {
	fast, err := mem.NewRegion(mem.RegionFastSRAM, 64<<10, nil, nil)
	require.NoError(t, err)

	spk := &fakeSpeaker{}
	m, err := NewManager(testAudioConfig(), spk, &fakeMic{}, &recordingSink{}, fast, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	base := fast.Used()

	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	m.HandlePlay(base64.StdEncoding.EncodeToString(pcm))
	assert.Greater(t, fast.Used(), base, "queued chunk holds a scratch reservation")

	// The playback loop releases the scratch once the chunk hits the speaker
	require.NoError(t, m.Start(context.Background()))
	defer func() { _ = m.Stop(time.Second) }()
	waitFor(t, time.Second, func() bool { return spk.writtenCount() > 0 })
	waitFor(t, time.Second, func() bool { return fast.Used() == base })
}

func TestHandlePlay_DroppedWhenRegionCannotHoldChunk(t *testing.T) {
	fast, err := mem.NewRegion(mem.RegionFastSRAM, 64<<10, nil, nil)
	require.NoError(t, err)

	spk := &fakeSpeaker{}
	m, err := NewManager(testAudioConfig(), spk, &fakeMic{}, &recordingSink{}, fast, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	base := fast.Used()

	// Post-boot fragmentation caps single allocations below the chunk size
	fast.MarkFragmented(16)
	big := make([]byte, 2000)
	m.HandlePlay(base64.StdEncoding.EncodeToString(big))

	require.NoError(t, m.Start(context.Background()))
	defer func() { _ = m.Stop(time.Second) }()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, spk.writtenCount())
	assert.Equal(t, base, fast.Used(), "failed reservation leaves the region untouched")
	assert.Greater(t, m.Health().ErrorCount, 0)
}

func TestHandlePlay_BadBase64Dropped(t *testing.T) {
	m, spk, _, _ := newTestManager(t)
	require.NoError(t, m.Start(context.Background()))
	defer func() { _ = m.Stop(time.Second) }()

	m.HandlePlay("not base64 !!!")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, spk.writtenCount())
	assert.Greater(t, m.Health().ErrorCount, 0)
}

func TestRecord_StartStreamStop(t *testing.T) {
	m, _, _, sink := newTestManager(t)
	require.NoError(t, m.Start(context.Background()))
	defer func() { _ = m.Stop(time.Second) }()

	assert.False(t, m.IsRecording())
	m.RecordStart()
	assert.True(t, m.IsRecording())

	waitFor(t, 2*time.Second, func() bool {
		states := sink.states()
		stream := 0
		for _, s := range states {
			if s == stateStream {
				stream++
			}
		}
		return stream >= 2
	})

	m.RecordStop()
	assert.False(t, m.IsRecording())

	waitFor(t, time.Second, func() bool {
		states := sink.states()
		return len(states) > 0 && states[len(states)-1] == stateStop
	})

	states := sink.states()
	assert.Equal(t, stateStart, states[0], "stream begins with the start marker")

	// Stream frames carry the captured PCM
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, f := range sink.frames {
		if f.State != stateStream {
			continue
		}
		pcm, err := base64.StdEncoding.DecodeString(f.Data)
		require.NoError(t, err)
		assert.Len(t, pcm, 1024)
		assert.Equal(t, byte(0x42), pcm[0])
		break
	}
}

func TestRecord_TransitionsAreEdgeTriggered(t *testing.T) {
	m, _, _, sink := newTestManager(t)

	m.RecordStart()
	m.RecordStart()
	m.RecordStop()
	m.RecordStop()

	assert.Equal(t, []string{stateStart, stateStop}, sink.states())
}

func TestCapture_IdlesWhenNotRecording(t *testing.T) {
	m, _, _, sink := newTestManager(t)
	require.NoError(t, m.Start(context.Background()))
	defer func() { _ = m.Stop(time.Second) }()

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, sink.states(), "no frames published while recording is off")
}

func TestCapture_ReadErrorBacksOff(t *testing.T) {
	spk := &fakeSpeaker{}
	mic := &fakeMic{err: fmt.Errorf("i2s timeout")}
	sink := &recordingSink{}

	m, err := NewManager(testAudioConfig(), spk, mic, sink, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	require.NoError(t, m.Start(context.Background()))
	defer func() { _ = m.Stop(time.Second) }()

	m.RecordStart()
	waitFor(t, time.Second, func() bool { return m.Health().ErrorCount > 0 })

	// Only the start marker made it out
	assert.Equal(t, []string{stateStart}, sink.states())
}

func TestStop_ReleasesFastSRAM(t *testing.T) {
	fast, err := mem.NewRegion(mem.RegionFastSRAM, 64<<10, nil, nil)
	require.NoError(t, err)

	m, err := NewManager(testAudioConfig(), &fakeSpeaker{}, &fakeMic{}, &recordingSink{}, fast, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	require.NoError(t, m.Start(context.Background()))

	require.NoError(t, m.Stop(time.Second))
	assert.Equal(t, int64(0), fast.Used())
}
