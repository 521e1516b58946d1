// Package channel multiplexes the three status channels (file, report,
// notification) over independent WebSocket connections. Each connection is
// keyed by (kind, key), sends a single handshake frame when it opens, and
// retries once per transport error.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vrsandeep/intake-go/internal/models"
)

var (
	ErrUnknownKind = errors.New("unknown channel kind")
	ErrEmptyKey    = errors.New("empty subscription key")
	ErrNotOpen     = errors.New("channel is not open")
)

const (
	DefaultReconnectDelay = time.Second
	DefaultKeepAlive      = 50 * time.Second
	writeWait             = 10 * time.Second
)

// Paths of the relay endpoints, relative to the base URL.
var Paths = map[models.ChannelKind]string{
	models.ChannelFile:         "/ws/files",
	models.ChannelReport:       "/ws/reports",
	models.ChannelNotification: "/ws/reportAlerts",
}

// MessageFunc receives every valid JSON frame of a connection, in order.
type MessageFunc func(json.RawMessage)

// Dialer opens WebSocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Options configures a Manager.
type Options struct {
	// BaseURL of the relay, e.g. "ws://localhost:8080".
	BaseURL        string
	Dialer         Dialer
	Header         http.Header
	ReconnectDelay time.Duration
	// KeepAlive is the ping interval of notification channels.
	KeepAlive time.Duration
}

// Handle identifies one subscription. The zero Handle is valid to Close.
type Handle struct {
	Kind models.ChannelKind
	Key  string
	id   uint64
}

// Valid reports whether h was returned by Open.
func (h Handle) Valid() bool { return h.id != 0 }

type subKey struct {
	kind models.ChannelKind
	key  string
}

type conn struct {
	id        uint64
	kind      models.ChannelKind
	key       string
	url       string
	onMessage MessageFunc

	state   State
	closed  bool
	ws      *websocket.Conn
	cancel  context.CancelFunc
	retry   *time.Timer
	dials   int
	writeMu sync.Mutex
}

func (c *conn) handle() Handle {
	return Handle{Kind: c.kind, Key: c.key, id: c.id}
}

// Manager is the registry of live status connections. It is safe for
// concurrent use.
type Manager struct {
	opts   Options
	mu     sync.Mutex
	conns  map[subKey]*conn
	nextID uint64
	wg     sync.WaitGroup
}

// NewManager returns a Manager dialing opts.BaseURL.
func NewManager(opts Options) *Manager {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Manager{
		opts:  opts,
		conns: make(map[subKey]*conn),
	}
}

// Open subscribes to kind for key. If a live connection for the pair
// already exists its handle is returned and onMessage is not replaced.
func (m *Manager) Open(kind models.ChannelKind, key string, onMessage MessageFunc) (Handle, error) {
	path, ok := Paths[kind]
	if !ok {
		return Handle{}, ErrUnknownKind
	}
	if key == "" {
		return Handle{}, ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := subKey{kind, key}
	if c, ok := m.conns[k]; ok {
		if c.state.Live() {
			return c.handle(), nil
		}
		// Closed by the server: replace the stale entry.
		c.closed = true
		delete(m.conns, k)
	}

	m.nextID++
	c := &conn{
		id:        m.nextID,
		kind:      kind,
		key:       key,
		url:       m.opts.BaseURL + path,
		onMessage: onMessage,
	}
	m.conns[k] = c
	m.startLocked(c)
	return c.handle(), nil
}

// Close ends the subscription behind h. It never fails: zero, stale and
// already-closed handles are ignored. Pending reconnects are cancelled.
func (m *Manager) Close(h Handle) {
	if !h.Valid() {
		return
	}

	m.mu.Lock()
	k := subKey{h.Kind, h.Key}
	c, ok := m.conns[k]
	if !ok || c.id != h.id {
		m.mu.Unlock()
		return
	}
	delete(m.conns, k)
	c.closed = true
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	ws := c.ws
	c.ws = nil
	if c.state == StateOpen {
		c.state = StateClosing
	} else {
		c.state = StateClosed
	}
	m.mu.Unlock()

	if ws != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		ws.Close()
	}

	m.mu.Lock()
	c.state = StateClosed
	m.mu.Unlock()
}

// CloseAll closes every subscription.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	handles := make([]Handle, 0, len(m.conns))
	for _, c := range m.conns {
		handles = append(handles, c.handle())
	}
	m.mu.Unlock()

	for _, h := range handles {
		m.Close(h)
	}
}

// Shutdown closes every subscription and waits for the connection
// goroutines to exit.
func (m *Manager) Shutdown() {
	m.CloseAll()
	m.wg.Wait()
}

// State returns the lifecycle state of h.
func (m *Manager) State(h Handle) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[subKey{h.Kind, h.Key}]
	if !ok || c.id != h.id {
		return StateClosed
	}
	return c.state
}

// Active counts connections that are open or connecting.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.conns {
		if c.state.Live() {
			n++
		}
	}
	return n
}

// Send writes v as JSON on an open connection.
func (m *Manager) Send(h Handle, v any) error {
	m.mu.Lock()
	c, ok := m.conns[subKey{h.Kind, h.Key}]
	if !ok || c.id != h.id || c.state != StateOpen || c.ws == nil {
		m.mu.Unlock()
		return ErrNotOpen
	}
	ws := c.ws
	m.mu.Unlock()
	return c.write(ws, v)
}

// startLocked begins a dial attempt for c. m.mu must be held.
func (m *Manager) startLocked(c *conn) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = StateConnecting
	c.dials++
	m.wg.Add(1)
	go m.run(ctx, c)
}

func (m *Manager) run(ctx context.Context, c *conn) {
	defer m.wg.Done()

	ws, _, err := m.opts.Dialer.DialContext(ctx, c.url, m.opts.Header)
	if err != nil {
		m.fail(ctx, c, err)
		return
	}

	m.mu.Lock()
	if c.closed || ctx.Err() != nil {
		m.mu.Unlock()
		ws.Close()
		return
	}
	c.ws = ws
	c.state = StateOpen
	m.mu.Unlock()

	if err := c.write(ws, models.NewHandshake(c.kind, c.key)); err != nil {
		ws.Close()
		m.fail(ctx, c, err)
		return
	}

	if c.kind == models.ChannelNotification {
		m.wg.Add(1)
		go m.keepAlive(ctx, c, ws)
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			ws.Close()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.closedByPeer(c, ws)
				return
			}
			m.fail(ctx, c, err)
			return
		}
		m.dispatch(c, data)
	}
}

// fail handles a transport error: it stops the attempt's keep-alive and
// schedules exactly one redial.
func (m *Manager) fail(ctx context.Context, c *conn, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.closed || ctx.Err() != nil {
		return
	}
	log.Printf("Channel %s/%s error: %v (retrying in %v)", c.kind, c.key, err, m.opts.ReconnectDelay)
	c.cancel()
	c.ws = nil
	c.state = StateConnecting
	c.retry = time.AfterFunc(m.opts.ReconnectDelay, func() { m.reconnect(c) })
}

func (m *Manager) reconnect(c *conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.closed || m.conns[subKey{c.kind, c.key}] != c {
		return
	}
	c.retry = nil
	m.startLocked(c)
}

// closedByPeer records a normal close initiated by the relay. No redial:
// resubscribing is the owner's decision.
func (m *Manager) closedByPeer(c *conn, ws *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.closed || c.ws != ws {
		return
	}
	c.cancel()
	c.ws = nil
	c.state = StateClosed
}

func (m *Manager) keepAlive(ctx context.Context, c *conn, ws *websocket.Conn) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.KeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			open := c.state == StateOpen && c.ws == ws
			m.mu.Unlock()
			if !open {
				continue
			}
			if err := c.write(ws, models.Handshake{UserID: models.PingUserID}); err != nil {
				log.Printf("Channel %s/%s keep-alive failed: %v", c.kind, c.key, err)
			}
		}
	}
}

func (m *Manager) dispatch(c *conn, data []byte) {
	data = bytes.TrimSpace(data)
	if c.kind == models.ChannelNotification && isPong(data) {
		return
	}
	if !json.Valid(data) {
		log.Printf("Channel %s/%s: dropping malformed message %q", c.kind, c.key, data)
		return
	}

	m.mu.Lock()
	closed := c.closed
	m.mu.Unlock()
	if closed || c.onMessage == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Channel %s/%s: message handler panicked: %v", c.kind, c.key, r)
		}
	}()
	c.onMessage(json.RawMessage(data))
}

func (c *conn) write(ws *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(v)
}

func isPong(data []byte) bool {
	s := string(data)
	return s == models.PongFrame || s == `"`+models.PongFrame+`"`
}
