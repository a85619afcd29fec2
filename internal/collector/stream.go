package collector

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bowiephone/bowietest/internal/model"
)

const (
	streamSendBuffer = 64
	streamPingPeriod = 30 * time.Second
	streamWriteWait  = 10 * time.Second
)

// hub fans stored entries out to live websocket subscribers on
// /logs/stream. A subscriber that cannot keep up has entries dropped
// rather than stalling ingestion.
type hub struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]*streamClient
	closed  bool
}

type streamClient struct {
	conn *websocket.Conn
	send chan model.Entry
	done chan struct{}
}

func newHub(logger zerolog.Logger) *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			// Same policy as the CORS headers: any origin may subscribe.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]*streamClient),
	}
}

// serve upgrades the request and registers the connection. The upgrader
// writes its own error response on a failed handshake, so serve never
// returns an error for the caller to re-handle.
func (h *hub) serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("stream upgrade rejected")
		return nil
	}

	cl := &streamClient{
		conn: conn,
		send: make(chan model.Entry, streamSendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return nil
	}
	h.clients[conn] = cl
	h.mu.Unlock()

	go h.writePump(cl)
	go h.readPump(cl)
	return nil
}

// broadcast offers the entry to every subscriber without blocking.
func (h *hub) broadcast(entry model.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cl := range h.clients {
		select {
		case cl.send <- entry:
		default:
		}
	}
}

// close tears down every subscriber. Used at server shutdown.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, cl := range h.clients {
		close(cl.done)
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *hub) remove(cl *streamClient) {
	h.mu.Lock()
	if _, ok := h.clients[cl.conn]; ok {
		delete(h.clients, cl.conn)
		close(cl.done)
	}
	h.mu.Unlock()
	cl.conn.Close()
}

// readPump drains the connection so pings and close frames are
// processed; subscribers are not expected to send anything.
func (h *hub) readPump(cl *streamClient) {
	defer h.remove(cl)
	for {
		if _, _, err := cl.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *hub) writePump(cl *streamClient) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case entry := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := cl.conn.WriteJSON(entry); err != nil {
				h.remove(cl)
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(cl)
				return
			}
		case <-cl.done:
			return
		}
	}
}
