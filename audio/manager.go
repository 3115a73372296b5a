// Package audio runs the device's full-duplex voice pipeline: a playback
// path that decodes Base64 PCM from the server straight to the speaker, and
// a capture loop that streams microphone chunks upward as Base64 frames.
// Sample format is 16-bit at 22050 Hz, speaker mono, microphone stereo.
package audio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/c360/sduiterm/component"
	"github.com/c360/sduiterm/config"
	errs "github.com/c360/sduiterm/errors"
	"github.com/c360/sduiterm/mem"
	"github.com/c360/sduiterm/pkg/buffer"
)

// Stream topic and state values of the capture protocol
const (
	RecordTopic = "audio/record"

	stateStart  = "start"
	stateStop   = "stop"
	stateStream = "stream"
)

// Capture loop cadence
const (
	idleSleep  = 50 * time.Millisecond
	errorSleep = 10 * time.Millisecond
)

// Fast-SRAM reservations made at Initialize. The I2S DMA descriptors and the
// PCM capture buffer must be carved out before the Wi-Fi stack fragments the
// region. Playback scratch is reserved per chunk at decode time under the
// pcm_play_ prefix because the decoded buffer is handed to the I2S driver
// as-is.
const (
	allocI2SDMA     = "i2s_dma"
	allocPCMCapture = "pcm_capture"
	allocPCMPlayFmt = "pcm_play_%d"
	i2sDMABytes     = 4096
)

// playbackQueueDepth bounds buffered playback chunks; the oldest chunk is
// dropped when the server outruns the codec
const playbackQueueDepth = 16

// Publisher is the uplink surface the capture loop publishes through
type Publisher interface {
	PublishUp(topic, payload string) error
}

type streamFrame struct {
	State string `json:"state"`
	Data  string `json:"data,omitempty"`
}

// playChunk is one queued playback buffer together with its fast-SRAM
// reservation name. The reservation is released when the chunk reaches the
// speaker or is dropped from the queue.
type playChunk struct {
	alloc string
	pcm   []byte
}

// Manager owns the codec devices and the capture/playback loops
type Manager struct {
	cfg       config.AudioConfig
	speaker   Speaker
	mic       Microphone
	publisher Publisher
	fastSRAM  *mem.Region

	recording atomic.Bool
	playback  buffer.Buffer[playChunk]
	playSeq   atomic.Uint64

	startTime time.Time
	errCount  atomic.Int64
	lastErr   atomic.Value // stores string

	cancel context.CancelFunc
	done   chan struct{}

	metrics *audioMetrics
	logger  *slog.Logger
}

// NewManager creates the audio manager. fastSRAM and registrar may be nil.
func NewManager(cfg config.AudioConfig, speaker Speaker, mic Microphone,
	publisher Publisher, fastSRAM *mem.Region, registrar Registrar, logger *slog.Logger,
) (*Manager, error) {
	if speaker == nil || mic == nil {
		return nil, errs.WrapInvalid(
			fmt.Errorf("nil codec device"),
			"Manager", "NewManager", "create audio manager")
	}
	if publisher == nil {
		return nil, errs.WrapInvalid(
			fmt.Errorf("nil publisher"),
			"Manager", "NewManager", "create audio manager")
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newAudioMetrics(registrar)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:       cfg,
		speaker:   speaker,
		mic:       mic,
		publisher: publisher,
		fastSRAM:  fastSRAM,
		metrics:   metrics,
		logger:    logger,
	}

	// The queue drops the oldest chunk when the server outruns the codec;
	// the callback returns its scratch reservation to the region
	playback, err := buffer.NewCircularBuffer[playChunk](playbackQueueDepth,
		buffer.WithDropCallback[playChunk](func(c playChunk) {
			m.releasePlayScratch(c)
		}))
	if err != nil {
		return nil, errs.WrapFatal(err, "Manager", "NewManager", "create playback queue")
	}
	m.playback = playback
	m.lastErr.Store("")
	return m, nil
}

// Meta implements component.Discoverable
func (m *Manager) Meta() component.Metadata {
	return component.Metadata{
		Name:        "audio",
		Type:        "service",
		Description: "Full-duplex voice pipeline",
		Version:     "1.0.0",
	}
}

// Health implements component.Discoverable
func (m *Manager) Health() component.HealthStatus {
	var uptime time.Duration
	if !m.startTime.IsZero() {
		uptime = time.Since(m.startTime)
	}
	return component.HealthStatus{
		Healthy:    m.done != nil,
		LastCheck:  time.Now(),
		ErrorCount: int(m.errCount.Load()),
		LastError:  m.lastErr.Load().(string),
		Uptime:     uptime,
	}
}

// Initialize configures codec gains and reserves the DMA-facing fast-SRAM
// buffers
func (m *Manager) Initialize() error {
	if err := m.speaker.SetVolume(m.cfg.SpeakerVolume); err != nil {
		return errs.WrapFatal(err, "Manager", "Initialize", "set speaker volume")
	}
	if err := m.mic.SetGain(m.cfg.MicGain); err != nil {
		return errs.WrapFatal(err, "Manager", "Initialize", "set microphone gain")
	}

	if m.fastSRAM != nil {
		if err := m.fastSRAM.Alloc(allocI2SDMA, i2sDMABytes); err != nil {
			return err
		}
		if err := m.fastSRAM.Alloc(allocPCMCapture, int64(m.cfg.ChunkSize)); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the capture and playback loops
func (m *Manager) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{}, 2)
	m.startTime = time.Now()

	go m.captureLoop(runCtx)
	go m.playbackLoop(runCtx)
	return nil
}

// Stop halts both loops and closes the codec devices
func (m *Manager) Stop(timeout time.Duration) error {
	if m.cancel == nil {
		return nil
	}
	m.cancel()

	deadline := time.After(timeout)
	for i := 0; i < 2; i++ {
		select {
		case <-m.done:
		case <-deadline:
			return errs.WrapTransient(
				fmt.Errorf("audio loops did not exit within %s", timeout),
				"Manager", "Stop", "stop audio manager")
		}
	}

	// Unplayed chunks still hold scratch reservations
	for _, chunk := range m.playback.ReadBatch(playbackQueueDepth) {
		m.freePlayScratch(chunk.alloc)
	}

	if m.fastSRAM != nil {
		m.fastSRAM.Free(allocPCMCapture)
		m.fastSRAM.Free(allocI2SDMA)
	}

	_ = m.speaker.Close()
	_ = m.mic.Close()
	return nil
}

// IsRecording reports whether capture streaming is active
func (m *Manager) IsRecording() bool {
	return m.recording.Load()
}

// RecordStart begins capture streaming. The start marker is published only
// on an actual false to true transition.
func (m *Manager) RecordStart() {
	if m.recording.CompareAndSwap(false, true) {
		m.publishState(stateStart)
		m.logger.Info("Recording started")
	}
}

// RecordStop ends capture streaming
func (m *Manager) RecordStop() {
	if m.recording.CompareAndSwap(true, false) {
		m.publishState(stateStop)
		m.logger.Info("Recording stopped")
	}
}

// HandlePlay is the audio/play downlink handler. The Base64 payload is
// decoded into a fast-SRAM scratch buffer and queued for the playback loop;
// the decoded buffer is what the speaker driver consumes, so it must come
// out of the DMA-capable region. Chunks the region cannot hold are dropped.
func (m *Manager) HandlePlay(payload string) {
	need := int64(base64.StdEncoding.DecodedLen(len(payload)))
	if need == 0 {
		return
	}

	alloc, err := m.reservePlayScratch(need)
	if err != nil {
		m.noteError(err)
		m.logger.Warn("No fast-SRAM scratch for playback chunk",
			"bytes", need, "error", err)
		return
	}

	pcm, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		m.freePlayScratch(alloc)
		m.noteError(err)
		m.logger.Warn("Playback payload is not valid Base64", "error", err)
		return
	}
	if len(pcm) == 0 {
		m.freePlayScratch(alloc)
		return
	}

	if err := m.playback.Write(playChunk{alloc: alloc, pcm: pcm}); err != nil {
		m.freePlayScratch(alloc)
		m.noteError(err)
		m.logger.Warn("Playback queue write failed", "error", err)
	}
}

// reservePlayScratch reserves a uniquely named playback scratch allocation.
// Without a region the name is empty and release is a no-op.
func (m *Manager) reservePlayScratch(size int64) (string, error) {
	if m.fastSRAM == nil {
		return "", nil
	}
	name := fmt.Sprintf(allocPCMPlayFmt, m.playSeq.Add(1))
	if err := m.fastSRAM.Alloc(name, size); err != nil {
		return "", err
	}
	return name, nil
}

func (m *Manager) freePlayScratch(name string) {
	if m.fastSRAM == nil || name == "" {
		return
	}
	m.fastSRAM.Free(name)
}

func (m *Manager) releasePlayScratch(c playChunk) {
	m.freePlayScratch(c.alloc)
	m.logger.Debug("Playback chunk dropped", "bytes", len(c.pcm))
}

func (m *Manager) playbackLoop(ctx context.Context) {
	defer func() { m.done <- struct{}{} }()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, ok := m.playback.Read()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorSleep):
			}
			continue
		}

		_, err := m.speaker.Write(chunk.pcm)
		m.freePlayScratch(chunk.alloc)
		if err != nil {
			m.noteError(err)
			m.logger.Warn("Speaker write failed", "error", err)
			continue
		}
		m.metrics.recordPlayback(len(chunk.pcm))
	}
}

// captureLoop reads fixed-size PCM chunks while recording is on, idling
// cheaply while it is off
func (m *Manager) captureLoop(ctx context.Context) {
	defer func() { m.done <- struct{}{} }()

	chunk := make([]byte, m.cfg.ChunkSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !m.recording.Load() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleSleep):
			}
			continue
		}

		n, err := m.mic.Read(chunk)
		if err != nil {
			m.noteError(err)
			m.logger.Debug("Microphone read failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorSleep):
			}
			continue
		}
		if n == 0 {
			continue
		}

		m.publishChunk(chunk[:n])
	}
}

func (m *Manager) publishChunk(pcm []byte) {
	frame := streamFrame{
		State: stateStream,
		Data:  base64.StdEncoding.EncodeToString(pcm),
	}
	m.publishFrame(frame)
	m.metrics.recordCapture(len(pcm))
}

func (m *Manager) publishState(state string) {
	m.publishFrame(streamFrame{State: state})
}

func (m *Manager) publishFrame(frame streamFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		m.noteError(err)
		return
	}
	if err := m.publisher.PublishUp(RecordTopic, string(payload)); err != nil {
		m.noteError(err)
		m.logger.Debug("Record frame publish failed", "error", err)
	}
}

func (m *Manager) noteError(err error) {
	m.errCount.Add(1)
	m.lastErr.Store(err.Error())
}
