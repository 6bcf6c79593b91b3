package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotlight/internal/playback"
	"github.com/desertthunder/spotlight/internal/shared"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	DefaultConnectTimeout = 10 * time.Second
)

// Frame types.
const (
	TypeLoad         = "load"
	TypeSDKReady     = "sdk_ready"
	TypeEvent        = "event"
	TypeConnected    = "connected"
	TypeTokenRequest = "token_request"
	TypeConnect      = "connect"
	TypeDisconnect   = "disconnect"
	TypeToken        = "token"
	TypeState        = "state"
)

// ErrAlreadyAttached is returned when a second connection is attached to a bridge.
var ErrAlreadyAttached = errors.New("bridge already has a connection")

// Frame is one JSON message on the bridge.
type Frame struct {
	Type     string             `json:"type"`
	Event    string             `json:"event,omitempty"`
	DeviceID string             `json:"device_id,omitempty"`
	Message  string             `json:"message,omitempty"`
	OK       bool               `json:"ok,omitempty"`
	Name     string             `json:"name,omitempty"`
	Volume   float64            `json:"volume,omitempty"`
	Token    string             `json:"token,omitempty"`
	State    *playback.Snapshot `json:"state,omitempty"`
}

// Upgrader upgrades /playback/ws requests. The default origin check requires same host.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Upgrade upgrades an HTTP request to a bridge connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket upgrade failed: %w", err)
	}
	return conn, nil
}

// Options configures a [Bridge].
type Options struct {
	ConnectTimeout time.Duration
	Logger         *log.Logger
}

// Bridge implements [playback.SDK] over a websocket connection to the page.
type Bridge struct {
	loader         *playback.Loader
	logger         *log.Logger
	connectTimeout time.Duration

	writeMu sync.Mutex

	mu     sync.Mutex
	conn   *websocket.Conn
	player *remotePlayer
	done   chan struct{}
	once   sync.Once
}

// NewBridge creates a bridge without a connection. Attach one before mounting the controller.
func NewBridge(opts Options) *Bridge {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	b := &Bridge{
		logger:         opts.Logger,
		connectTimeout: opts.ConnectTimeout,
		done:           make(chan struct{}),
	}
	b.loader = playback.NewLoader(b.requestScript)
	return b
}

// Loader returns the page's SDK loader.
func (b *Bridge) Loader() *playback.Loader {
	return b.loader
}

func (b *Bridge) requestScript() {
	if err := b.send(Frame{Type: TypeLoad}); err != nil {
		b.logger.Error("failed to request sdk script", "error", err)
	}
}

// NewPlayer creates the remote player. A previous player stops receiving events.
func (b *Bridge) NewPlayer(opts playback.PlayerOptions) (playback.Player, error) {
	p := &remotePlayer{
		bridge:    b,
		opts:      opts,
		listeners: make(map[playback.Event][]func(playback.EventPayload)),
		connected: make(chan bool, 1),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.done:
		return nil, shared.ErrPlayerClosed
	default:
	}
	b.player = p
	return p, nil
}

// Attach binds the page's websocket to the bridge.
func (b *Bridge) Attach(conn *websocket.Conn) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		return ErrAlreadyAttached
	}
	select {
	case <-b.done:
		return shared.ErrPlayerClosed
	default:
	}
	b.conn = conn
	return nil
}

// Attached reports whether a connection is bound.
func (b *Bridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *Bridge) currentPlayer() *remotePlayer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.player
}

func (b *Bridge) connection() *websocket.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn
}

func (b *Bridge) send(f Frame) error {
	conn := b.connection()
	if conn == nil {
		return shared.ErrNotConnected
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(f); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", f.Type, err)
	}
	return nil
}

// SendState pushes a controller snapshot to the page.
func (b *Bridge) SendState(s playback.Snapshot) error {
	return b.send(Frame{Type: TypeState, State: &s})
}

// Serve reads frames until the connection fails, ctx is cancelled or the bridge is closed.
func (b *Bridge) Serve(ctx context.Context) error {
	conn := b.connection()
	if conn == nil {
		return shared.ErrNotConnected
	}

	events := make(chan Frame, 32)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for f := range events {
			if p := b.currentPlayer(); p != nil {
				p.dispatch(playback.Event(f.Event), playback.EventPayload{DeviceID: f.DeviceID, Message: f.Message})
			}
		}
	}()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-b.done:
				return
			case <-stop:
				return
			case <-ticker.C:
				b.writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				b.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	defer func() {
		close(events)
		<-dispatched
	}()

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			select {
			case <-b.done:
				return nil
			default:
			}
			return fmt.Errorf("bridge read failed: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		b.handle(f, events)
	}
}

func (b *Bridge) handle(f Frame, events chan<- Frame) {
	switch f.Type {
	case TypeSDKReady:
		b.loader.Resolve()
	case TypeEvent:
		events <- f
	case TypeConnected:
		if p := b.currentPlayer(); p != nil {
			p.reply(f.OK)
		}
	case TypeTokenRequest:
		token := ""
		if p := b.currentPlayer(); p != nil && p.opts.Token != nil {
			token = p.opts.Token()
		}
		if err := b.send(Frame{Type: TypeToken, Token: token}); err != nil {
			b.logger.Warn("failed to send token", "error", err)
		}
	default:
		b.logger.Warn("unknown bridge frame", "type", f.Type)
	}
}

// Close closes the connection and stops Serve.
func (b *Bridge) Close() {
	b.once.Do(func() {
		b.mu.Lock()
		close(b.done)
		conn := b.conn
		b.mu.Unlock()

		if conn == nil {
			return
		}
		b.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "page closed"),
			time.Now().Add(writeWait))
		b.writeMu.Unlock()
		conn.Close()
	})
}

// remotePlayer is the page's SDK player seen through the bridge.
type remotePlayer struct {
	bridge    *Bridge
	opts      playback.PlayerOptions
	mu        sync.Mutex
	listeners map[playback.Event][]func(playback.EventPayload)
	connected chan bool
}

func (p *remotePlayer) AddListener(event playback.Event, fn func(playback.EventPayload)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners[event] = append(p.listeners[event], fn)
}

func (p *remotePlayer) dispatch(event playback.Event, payload playback.EventPayload) {
	p.mu.Lock()
	fns := slices.Clone(p.listeners[event])
	p.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

func (p *remotePlayer) reply(ok bool) {
	select {
	case p.connected <- ok:
	default:
	}
}

// Connect asks the page to create and connect the player and waits for its answer.
func (p *remotePlayer) Connect(ctx context.Context) (bool, error) {
	select {
	case <-p.connected:
	default:
	}

	err := p.bridge.send(Frame{Type: TypeConnect, Name: p.opts.Name, Volume: p.opts.Volume})
	if err != nil {
		return false, err
	}

	timer := time.NewTimer(p.bridge.connectTimeout)
	defer timer.Stop()

	select {
	case ok := <-p.connected:
		return ok, nil
	case <-timer.C:
		return false, fmt.Errorf("player did not connect within %s", p.bridge.connectTimeout)
	case <-ctx.Done():
		return false, ctx.Err()
	case <-p.bridge.done:
		return false, shared.ErrPlayerClosed
	}
}

// Disconnect tells the page to disconnect its player.
func (p *remotePlayer) Disconnect() {
	if err := p.bridge.send(Frame{Type: TypeDisconnect}); err != nil && !errors.Is(err, shared.ErrNotConnected) {
		p.bridge.logger.Debug("failed to send disconnect", "error", err)
	}
}

var _ playback.SDK = (*Bridge)(nil)
