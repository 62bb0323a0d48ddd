package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"pcbuilder/internal/models"
	"pcbuilder/internal/pricedrop"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Alert is the message pushed to websocket subscribers.
type Alert struct {
	BuildID uint             `json:"build_id"`
	Email   string           `json:"email"`
	Drops   []pricedrop.Drop `json:"drops"`
	Saving  string           `json:"total_saving"`
	At      time.Time        `json:"at"`
}

// ErrNoRecipients means no connected client took the alert. It wraps
// ErrNotConfigured so Fanout treats an empty hub like a missing channel.
var ErrNoRecipients = fmt.Errorf("no websocket subscriber received the alert: %w", ErrNotConfigured)

type subscriber struct {
	conn  *websocket.Conn
	send  chan []byte
	email string
}

// Hub fans price-drop alerts out to connected websocket clients. Clients may
// pass ?email= to receive only their own builds' alerts.
type Hub struct {
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	upgrader websocket.Upgrader
	logger   *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(os.Stdout, "[AlertHub] ", log.LstdFlags)
	}
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and streams alerts until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("Upgrade failed: %v", err)
		return
	}
	s := &subscriber{conn: conn, send: make(chan []byte, sendBuffer), email: r.URL.Query().Get("email")}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(s)
	h.readLoop(s)
}

// readLoop discards client messages and unregisters on disconnect.
func (h *Hub) readLoop(s *subscriber) {
	defer h.remove(s)
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.send)
	}
}

// Subscribers is the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// OnDropsDetected broadcasts the alert. Slow clients whose buffer is full
// miss the message; delivery never blocks the detector. Email filters match
// case-insensitively. When nobody received the alert it returns
// ErrNoRecipients so the build is not stamped as notified.
func (h *Hub) OnDropsDetected(_ context.Context, build models.SavedBuild, drops []pricedrop.Drop) error {
	alert := Alert{BuildID: build.ID, Email: build.User.Email, Drops: drops, At: time.Now().UTC()}
	total := decimal.Zero
	for _, d := range drops {
		total = total.Add(d.Saving())
	}
	alert.Saving = total.StringFixed(2)

	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := 0
	for s := range h.subs {
		if s.email != "" && !strings.EqualFold(s.email, build.User.Email) {
			continue
		}
		select {
		case s.send <- payload:
			delivered++
		default:
			h.logger.Printf("Dropping alert for build %d: subscriber buffer full", build.ID)
		}
	}
	h.logger.Printf("Broadcast %d drops for build %d to %d subscribers", len(drops), build.ID, delivered)
	if delivered == 0 {
		return fmt.Errorf("build %d: %w", build.ID, ErrNoRecipients)
	}
	return nil
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		delete(h.subs, s)
		close(s.send)
	}
}
