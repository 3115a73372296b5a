// Package transport maintains the device's WebSocket link to the SDUI
// server. Complete downlink messages are handed to a single callback, uplink
// sends are strictly non-blocking (a down link drops the frame with a debug
// log), and a dropped connection is retried on a fixed timer.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/sduiterm/component"
	"github.com/c360/sduiterm/config"
	errs "github.com/c360/sduiterm/errors"
	"github.com/c360/sduiterm/metric"
)

// State represents the link state
type State int32

// Link states
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// maxPayloadBytes bounds a single downlink message. Layout payloads run to a
// few tens of KiB; anything near this limit is a server bug.
const maxPayloadBytes = 1 << 20

// OnComplete receives each fully reassembled downlink message
type OnComplete func(text string)

// Client is the WebSocket link. It implements component.LifecycleComponent
// and the bus Sender contract.
type Client struct {
	url               string
	reconnectInterval time.Duration
	handshakeTimeout  time.Duration

	onComplete OnComplete
	state      atomic.Int32

	connMu sync.Mutex
	conn   *websocket.Conn

	metrics *metric.Metrics
	logger  *slog.Logger

	startTime time.Time
	errCount  atomic.Int64
	lastErr   atomic.Value // stores string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient creates a transport client. metrics may be nil to disable
// recording.
func NewClient(cfg config.TransportConfig, onComplete OnComplete,
	metrics *metric.Metrics, logger *slog.Logger,
) (*Client, error) {
	if onComplete == nil {
		return nil, errs.WrapInvalid(
			fmt.Errorf("nil downlink callback"),
			"Client", "NewClient", "create transport")
	}
	if err := config.ValidateServerURL(cfg.URL); err != nil {
		return nil, errs.WrapInvalid(err, "Client", "NewClient", "validate server url")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		url:               cfg.URL,
		reconnectInterval: cfg.ReconnectInterval,
		handshakeTimeout:  cfg.HandshakeTimeout,
		onComplete:        onComplete,
		metrics:           metrics,
		logger:            logger,
	}
	c.state.Store(int32(StateDisconnected))
	c.lastErr.Store("")
	return c, nil
}

// Meta implements component.Discoverable
func (c *Client) Meta() component.Metadata {
	return component.Metadata{
		Name:        "transport",
		Type:        "transport",
		Description: "WebSocket link to the SDUI server",
		Version:     "1.0.0",
	}
}

// Health implements component.Discoverable
func (c *Client) Health() component.HealthStatus {
	var uptime time.Duration
	if !c.startTime.IsZero() {
		uptime = time.Since(c.startTime)
	}
	return component.HealthStatus{
		Healthy:    c.State() == StateConnected,
		LastCheck:  time.Now(),
		ErrorCount: int(c.errCount.Load()),
		LastError:  c.lastErr.Load().(string),
		Uptime:     uptime,
	}
}

// Initialize implements component.LifecycleComponent
func (c *Client) Initialize() error {
	return nil
}

// Start opens the link and keeps it open until ctx is cancelled
func (c *Client) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.startTime = time.Now()

	go c.run(runCtx)
	return nil
}

// Stop closes the link and waits for the run loop to exit
func (c *Client) Stop(timeout time.Duration) error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	c.closeConn()

	select {
	case <-c.done:
		return nil
	case <-time.After(timeout):
		return errs.WrapTransient(
			fmt.Errorf("run loop did not exit within %s", timeout),
			"Client", "Stop", "stop transport")
	}
}

// State returns the current link state
func (c *Client) State() State {
	return State(c.state.Load())
}

// Send writes one text frame to the server. It never blocks on a down link:
// any state other than Connected drops the frame with a debug log, and write
// errors are absorbed after tearing the connection down.
func (c *Client) Send(frame []byte) error {
	if c.State() != StateConnected {
		c.recordTxDropped()
		c.logger.Debug("Send dropped, link not connected",
			"state", c.State().String(), "bytes", len(frame))
		return nil
	}

	c.connMu.Lock()
	conn := c.conn
	if conn == nil {
		c.connMu.Unlock()
		c.recordTxDropped()
		return nil
	}
	err := conn.WriteMessage(websocket.TextMessage, frame)
	c.connMu.Unlock()

	if err != nil {
		c.noteError(err)
		c.logger.Warn("Send failed, dropping link", "error", err)
		c.closeConn()
	}
	return nil
}

// run is the connect/read/reconnect loop
func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(StateDisconnected)

	for {
		c.setState(StateConnecting)

		conn, err := c.dial(ctx)
		if err != nil {
			c.noteError(err)
			c.logger.Warn("Connect failed", "url", c.url, "error", err)
			if !c.waitReconnect(ctx) {
				return
			}
			continue
		}

		c.connMu.Lock()
		c.conn = conn
		c.connMu.Unlock()
		c.setState(StateConnected)
		c.logger.Info("Link connected", "url", c.url)

		c.readLoop(conn)

		c.setState(StateDisconnected)
		c.closeConn()
		c.logger.Info("Link disconnected", "url", c.url)

		if !c.waitReconnect(ctx) {
			return
		}
		if c.metrics != nil {
			c.metrics.RecordLinkReconnect()
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxPayloadBytes)
	return conn, nil
}

// readLoop reads messages until the connection drops. Each complete message
// runs through the reassembler so mid-message disconnects discard cleanly.
func (c *Client) readLoop(conn *websocket.Conn) {
	reassembler := NewReassembler(maxPayloadBytes)
	defer reassembler.Discard()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.noteError(err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			c.logger.Debug("Ignoring non-text frame", "type", msgType)
			continue
		}
		if len(data) == 0 {
			continue
		}

		text, complete, err := reassembler.Ingest(Chunk{
			OpCode:        msgType,
			Data:          data,
			PayloadOffset: 0,
			PayloadLen:    len(data),
		})
		if err != nil {
			c.noteError(err)
			c.logger.Warn("Discarding malformed frame", "error", err)
			continue
		}
		if !complete {
			continue
		}

		if c.metrics != nil {
			c.metrics.RecordLinkRxFrame()
		}
		c.onComplete(text)
	}
}

func (c *Client) waitReconnect(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.reconnectInterval):
		return true
	}
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
	if c.metrics != nil {
		c.metrics.RecordLinkStatus(s == StateConnected)
	}
}

func (c *Client) noteError(err error) {
	c.errCount.Add(1)
	c.lastErr.Store(err.Error())
}

func (c *Client) recordTxDropped() {
	if c.metrics != nil {
		c.metrics.RecordLinkTxDropped()
	}
}
