package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/gokoki/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// writeTimeout bounds each broadcast write so a stalled client cannot hold up the pipeline.
const writeTimeout = time.Second

// LiveHandler pushes every pipeline result to WebSocket clients.
type LiveHandler struct {
	clients map[*websocket.Conn]*sync.Mutex
	mu      sync.RWMutex
	log     logrus.FieldLogger
}

// NewLiveHandler creates a LiveHandler fed by p.
func NewLiveHandler(p *app.Pipeline) *LiveHandler {
	h := &LiveHandler{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		log:     logrus.StandardLogger(),
	}
	if p != nil {
		p.OnResult(h.Publish)
	}
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"function": "ServeHTTP",
			"remote":   r.RemoteAddr,
		}).WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type liveMessage struct {
	DetectionID string       `json:"detection_id,omitempty"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Markers     []liveMarker `json:"markers"`
	Timestamp   int64        `json:"timestamp"`
}

type liveMarker struct {
	Code     int32      `json:"code"`
	Distance float32    `json:"distance"`
	Centre   [2]float32 `json:"centre"`
	Rotation float32    `json:"rotation"`
}

// Publish sends res to every connected client.
func (h *LiveHandler) Publish(res app.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	msg := liveMessage{
		DetectionID: res.DetectionID,
		Width:       res.Width,
		Height:      res.Height,
		Markers:     make([]liveMarker, 0, len(res.Markers)),
		Timestamp:   time.Now().UnixMilli(),
	}
	for _, m := range res.Markers {
		msg.Markers = append(msg.Markers, liveMarker{
			Code:     m.Code,
			Distance: m.Distance,
			Centre:   [2]float32{m.Centre.Image.X, m.Centre.Image.Y},
			Rotation: m.Rotation.Z,
		})
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	for conn, wmu := range h.clients {
		wmu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.WithField("function", "Publish").WithError(err).Debug("websocket write failed")
		}
		wmu.Unlock()
	}
}
