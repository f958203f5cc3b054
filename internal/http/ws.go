package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kaskelas/internal/log"
	"kaskelas/internal/view"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 8
)

// feedMessage is pushed to browsers after every reload of the view data.
type feedMessage struct {
	Type     string    `json:"type"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Feed pushes a "changed" message to every connected browser whenever the
// view controller reloads. Browsers then refresh their fragments.
type Feed struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*feedClient]struct{}
	closed  bool
	remove  func()
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewFeed registers the feed with the controller's reload listeners.
func NewFeed(vc *view.Controller, logger *log.Logger) *Feed {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	f := &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
		logger:  logger.WithComponent(log.ComponentWebsocket),
		clients: make(map[*feedClient]struct{}),
	}
	if vc != nil {
		f.remove = vc.OnReload(func(d view.Data) { f.Broadcast(d.LoadedAt) })
	}
	return f
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.WarnContext(r.Context(), "WebSocket upgrade failed", log.FieldError, err)
		return
	}

	c := &feedClient{conn: conn, send: make(chan []byte, sendBuffer)}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = conn.Close()
		return
	}
	f.clients[c] = struct{}{}
	f.mu.Unlock()

	go f.writePump(c)
	go f.readPump(c)
}

// Broadcast queues a change message for every client. Clients whose buffer
// is full are dropped; they reconnect and reload.
func (f *Feed) Broadcast(loadedAt time.Time) {
	msg, err := json.Marshal(feedMessage{Type: "changed", LoadedAt: loadedAt})
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		select {
		case c.send <- msg:
		default:
			f.dropLocked(c)
		}
	}
}

// Clients returns the number of connected browsers.
func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects every client and stops listening for reloads.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	if f.remove != nil {
		f.remove()
	}
	for c := range f.clients {
		f.dropLocked(c)
	}
}

func (f *Feed) dropLocked(c *feedClient) {
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
}

func (f *Feed) drop(c *feedClient) {
	f.mu.Lock()
	f.dropLocked(c)
	f.mu.Unlock()
}

// readPump discards client messages and notices disconnects.
func (f *Feed) readPump(c *feedClient) {
	defer func() {
		f.drop(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Debug("WebSocket closed", log.FieldError, err)
			}
			return
		}
	}
}

func (f *Feed) writePump(c *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
