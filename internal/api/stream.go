package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/beacon-station/internal/infrastructure/config"
	"github.com/nerrad567/beacon-station/internal/infrastructure/logging"
	"github.com/nerrad567/beacon-station/internal/station"
)

// Frame types on the cycle stream.
const (
	FrameSnapshot = "snapshot"
	FrameCycle    = station.EventCycleCompleted
	FramePing     = "ping"
	FramePong     = "pong"
)

// streamBuffer is how many frames a slow client may fall behind before
// it starts missing cycles.
const streamBuffer = 16

// Frame is one message on the cycle stream. Report is set on snapshot and
// cycle frames.
type Frame struct {
	Type   string               `json:"type"`
	SentAt string               `json:"sent_at"`
	Report *station.CycleReport `json:"report,omitempty"`
}

func encodeFrame(frameType string, report *station.CycleReport) ([]byte, error) {
	return json.Marshal(Frame{
		Type:   frameType,
		SentAt: time.Now().UTC().Format(time.RFC3339),
		Report: report,
	})
}

// Hub fans finished cycle reports out to stream clients. It implements
// station.CycleStream.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.Mutex
	clients map[*streamClient]struct{}
}

// streamClient is one connected stream. out is closed by the hub, under
// its lock, when the client is removed.
type streamClient struct {
	conn *websocket.Conn
	out  chan []byte
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.out)
	}
}

// PublishCycle sends report to every client. A client whose buffer is full
// misses this report.
func (h *Hub) PublishCycle(report station.CycleReport) {
	data, err := encodeFrame(FrameCycle, &report)
	if err != nil {
		h.logger.Error("encoding cycle frame", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.out <- data:
		default:
			h.logger.Debug("stream client lagging, cycle dropped", "cycle", report.Cycle)
		}
	}
}

// ClientCount returns the number of connected stream clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *streamClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("stream client connected", "clients", n)
}

// remove drops c. It is safe to call more than once.
func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.out)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("stream client disconnected", "clients", n)
	}
}

// deadlines returns the ping period and how long a client may stay silent.
func (h *Hub) deadlines() (ping, idle time.Duration) {
	ping = time.Duration(h.cfg.PingInterval) * time.Second
	return ping, ping + time.Duration(h.cfg.PongTimeout)*time.Second
}

// readLoop answers ping frames and keeps the connection alive. Anything
// else a client sends is ignored.
func (h *Hub) readLoop(c *streamClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	_, idle := h.deadlines()
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idle))
	}
	c.conn.SetReadLimit(int64(h.cfg.MaxMessageSize))
	extend("") //nolint:errcheck // a failed deadline surfaces on the next read
	c.conn.SetPongHandler(extend)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("stream read failed", "error", err)
			}
			return
		}
		extend("") //nolint:errcheck // a failed deadline surfaces on the next read

		var in Frame
		if json.Unmarshal(data, &in) != nil || in.Type != FramePing {
			continue
		}
		pong, err := encodeFrame(FramePong, nil)
		if err != nil {
			continue
		}
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			select {
			case c.out <- pong:
			default:
			}
		}
		h.mu.Unlock()
	}
}

// writeLoop drains out to the connection and pings on the configured
// interval. It returns when out is closed or a write fails.
func (h *Hub) writeLoop(c *streamClient) {
	ping, idle := h.deadlines()
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(idle)) //nolint:errcheck // write below reports failure
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(idle)) //nolint:errcheck // write below reports failure
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleStream upgrades to the cycle stream. The client first receives the
// latest report, if any, as a snapshot frame, then one frame per cycle.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("stream upgrade failed", "error", err, "request_id", requestID(r))
		return
	}

	c := &streamClient{conn: conn, out: make(chan []byte, streamBuffer)}
	if last, ok := s.board.Last(); ok {
		if data, err := encodeFrame(FrameSnapshot, &last); err == nil {
			c.out <- data
		}
	}
	s.hub.add(c)
	s.logger.Info("stream client attached", "subject", subject(r), "request_id", requestID(r))

	go s.hub.writeLoop(c)
	go s.hub.readLoop(c)
}

// checkOrigin admits non-browser clients, same-host pages and the
// configured extra origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return slices.Contains(s.wsCfg.AllowedOrigins, origin)
}
