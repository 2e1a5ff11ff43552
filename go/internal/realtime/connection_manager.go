package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotConnected is returned by Emit while no connection is established
	ErrNotConnected = errors.New("not connected")
	// ErrReconnectsExhausted is returned by Start once MaxReconnects consecutive dials have failed
	ErrReconnectsExhausted = errors.New("reconnect attempts exhausted")
	// ErrAlreadyStarted is returned when Start is called twice
	ErrAlreadyStarted = errors.New("connection manager already started")
)

// State of the duplex connection
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config holds configuration for the duplex connection
type Config struct {
	URL    string
	Header http.Header
	Jar    http.CookieJar

	ReconnectWait    time.Duration
	MaxReconnectWait time.Duration
	// MaxReconnects caps consecutive failed dials. Negative means retry forever.
	MaxReconnects int

	WriteTimeout     time.Duration
	PingInterval     time.Duration
	PongWait         time.Duration
	HandshakeTimeout time.Duration
	MaxMessageSize   int64
}

// DefaultConfig returns the default connection configuration for url
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		ReconnectWait:    2 * time.Second,
		MaxReconnectWait: 30 * time.Second,
		MaxReconnects:    -1,
		WriteTimeout:     10 * time.Second,
		PingInterval:     25 * time.Second,
		PongWait:         60 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		MaxMessageSize:   64 * 1024,
	}
}

// Option configures a ConnectionManager
type Option func(*ConnectionManager)

// WithClock replaces the clock used for backoff and pings
func WithClock(clock clockwork.Clock) Option {
	return func(cm *ConnectionManager) { cm.clock = clock }
}

// WithEventBuffer sets the capacity of the event channel
func WithEventBuffer(n int) Option {
	return func(cm *ConnectionManager) { cm.bufferSize = n }
}

// ConnectionManager owns the single duplex connection for a page. It dials,
// redials with backoff after a drop and delivers every inbound frame and
// lifecycle change, in order, on Events.
type ConnectionManager struct {
	config     Config
	clock      clockwork.Clock
	dialer     *websocket.Dialer
	bufferSize int

	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	connID string
	state  atomic.Int32

	writeMu sync.Mutex

	started   atomic.Bool
	closeOnce sync.Once
}

// NewConnectionManager creates a connection manager. Nothing is dialed until Start.
func NewConnectionManager(config Config, opts ...Option) *ConnectionManager {
	cm := &ConnectionManager{
		config:     config,
		clock:      clockwork.NewRealClock(),
		bufferSize: 256,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(cm)
	}
	cm.dialer = &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: config.HandshakeTimeout,
		Jar:              config.Jar,
	}
	cm.events = make(chan Event, cm.bufferSize)
	return cm
}

// Events returns the ordered stream of connection events. It is closed when Start returns.
func (cm *ConnectionManager) Events() <-chan Event {
	return cm.events
}

// State returns the current connection state
func (cm *ConnectionManager) State() State {
	return State(cm.state.Load())
}

// ConnectionID returns the ID of the live connection, or "" when down
func (cm *ConnectionManager) ConnectionID() string {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.connID
}

// Start dials and keeps the connection alive until ctx is cancelled, Close is
// called or the reconnect budget runs out. It blocks.
func (cm *ConnectionManager) Start(ctx context.Context) error {
	if !cm.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(cm.events)

	log.Info().Str("url", cm.config.URL).Msg("connection manager started")

	everConnected := false
	failures := 0
	for {
		if cm.stopping(ctx) {
			return nil
		}

		cm.state.Store(int32(StateConnecting))
		conn, _, err := cm.dialer.DialContext(ctx, cm.config.URL, cm.config.Header)
		if err != nil {
			cm.state.Store(int32(StateDisconnected))
			if cm.stopping(ctx) {
				return nil
			}
			failures++
			log.Warn().Err(err).Int("attempt", failures).Msg("dial failed")
			cm.publish(ctx, ConnectError{Err: err, Attempt: failures})

			if cm.config.MaxReconnects >= 0 && failures > cm.config.MaxReconnects {
				log.Error().Int("attempts", failures).Msg("giving up on reconnecting")
				return ErrReconnectsExhausted
			}
			if !cm.wait(ctx, cm.backoff(failures)) {
				return nil
			}
			continue
		}

		connID := uuid.New().String()
		cm.attach(conn, connID)
		if everConnected {
			cm.publish(ctx, Reconnected{ConnectionID: connID, Attempt: failures + 1})
		} else {
			cm.publish(ctx, Connected{ConnectionID: connID})
		}
		everConnected = true
		failures = 0

		log.Info().Str("connection_id", connID).Msg("connection established")

		readErr := cm.serve(ctx, conn)
		cm.detach(conn)

		if cm.stopping(ctx) {
			return nil
		}
		log.Warn().Err(readErr).Str("connection_id", connID).Msg("connection lost")
		cm.publish(ctx, Disconnected{Err: readErr})

		if !cm.wait(ctx, cm.config.ReconnectWait) {
			return nil
		}
	}
}

// Emit sends a named event. It fails with ErrNotConnected while down; nothing is queued.
func (cm *ConnectionManager) Emit(ctx context.Context, name EventName, payload interface{}) error {
	frame, err := Encode(name, payload)
	if err != nil {
		return err
	}

	cm.mu.Lock()
	conn := cm.conn
	cm.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	cm.writeMu.Lock()
	defer cm.writeMu.Unlock()

	deadline := cm.writeDeadline()
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("emit %s: %w", name, err)
	}

	log.Debug().Str("event", string(name)).Msg("event emitted")
	return nil
}

// Close sends a normal closure and stops the manager. Safe to call more than once.
func (cm *ConnectionManager) Close() error {
	var err error
	cm.closeOnce.Do(func() {
		close(cm.done)

		cm.mu.Lock()
		conn := cm.conn
		cm.mu.Unlock()
		if conn == nil {
			return
		}

		cm.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		err = conn.WriteControl(websocket.CloseMessage, msg, cm.writeDeadline())
		cm.writeMu.Unlock()
		conn.Close()
	})
	return err
}

func (cm *ConnectionManager) writeDeadline() time.Time {
	if cm.config.WriteTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(cm.config.WriteTimeout)
}

func (cm *ConnectionManager) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-cm.done:
		return true
	default:
		return false
	}
}

// backoff doubles ReconnectWait per consecutive failure, capped at MaxReconnectWait
func (cm *ConnectionManager) backoff(failures int) time.Duration {
	wait := cm.config.ReconnectWait
	for i := 1; i < failures; i++ {
		wait *= 2
		if cm.config.MaxReconnectWait > 0 && wait >= cm.config.MaxReconnectWait {
			return cm.config.MaxReconnectWait
		}
	}
	if cm.config.MaxReconnectWait > 0 && wait > cm.config.MaxReconnectWait {
		return cm.config.MaxReconnectWait
	}
	return wait
}

// wait sleeps on the manager clock. It returns false if the manager is stopping.
func (cm *ConnectionManager) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return !cm.stopping(ctx)
	}
	select {
	case <-cm.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	case <-cm.done:
		return false
	}
}

func (cm *ConnectionManager) publish(ctx context.Context, ev Event) {
	select {
	case cm.events <- ev:
	case <-ctx.Done():
	case <-cm.done:
	}
}

func (cm *ConnectionManager) attach(conn *websocket.Conn, connID string) {
	cm.mu.Lock()
	cm.conn = conn
	cm.connID = connID
	cm.mu.Unlock()
	cm.state.Store(int32(StateConnected))
}

func (cm *ConnectionManager) detach(conn *websocket.Conn) {
	cm.mu.Lock()
	if cm.conn == conn {
		cm.conn = nil
		cm.connID = ""
	}
	cm.mu.Unlock()
	cm.state.Store(int32(StateDisconnected))
	conn.Close()
}

// serve runs the read loop for conn until it fails or the manager stops
func (cm *ConnectionManager) serve(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-cm.done:
			// Close may have run before conn was attached
			conn.Close()
		case <-stop:
		}
	}()

	if cm.config.PingInterval > 0 {
		go cm.pingPump(conn, stop)
	}

	if cm.config.MaxMessageSize > 0 {
		conn.SetReadLimit(cm.config.MaxMessageSize)
	}
	if cm.config.PongWait > 0 {
		conn.SetReadDeadline(time.Now().Add(cm.config.PongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(cm.config.PongWait))
			return nil
		})
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if cm.config.PongWait > 0 {
			conn.SetReadDeadline(time.Now().Add(cm.config.PongWait))
		}

		ev, err := DecodeEvent(frame)
		if err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				log.Debug().Err(err).Msg("ignoring frame")
			} else {
				log.Warn().Err(err).Msg("dropping malformed frame")
			}
			continue
		}
		cm.publish(ctx, ev)
	}
}

func (cm *ConnectionManager) pingPump(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := cm.clock.NewTicker(cm.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			cm.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, cm.writeDeadline())
			cm.writeMu.Unlock()
			if err != nil {
				log.Debug().Err(err).Msg("failed to send ping")
				return
			}
		}
	}
}
