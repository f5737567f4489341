// Package ws pushes charger availability to websocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"evcharge/backend/services/booking-service/internal/cache"
)

const (
	eventBuffer = 64
	pushTimeout = 5 * time.Second
)

// SlotSource computes the free slots of a charger on a date.
type SlotSource interface {
	AvailableSlots(ctx context.Context, stationID int64, date string) ([]string, error)
}

// Message is the frame sent to subscribers.
type Message struct {
	Type           string   `json:"type"`
	ChargerID      int64    `json:"chargerId"`
	Date           string   `json:"date"`
	AvailableSlots []string `json:"availableSlots"`
}

type topic struct {
	stationID int64
	date      string
}

// Hub tracks subscribers per charger and date and fans availability events out to them.
type Hub struct {
	mu     sync.RWMutex
	topics map[topic]map[*Connection]struct{}
	source SlotSource
	events chan cache.Event
	logger *zap.Logger
}

// NewHub builds a hub reading availability from source.
func NewHub(source SlotSource, logger *zap.Logger) *Hub {
	return &Hub{
		topics: make(map[topic]map[*Connection]struct{}),
		source: source,
		events: make(chan cache.Event, eventBuffer),
		logger: logger,
	}
}

// Add registers a connection.
func (h *Hub) Add(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.topics[conn.topic]
	if !ok {
		set = make(map[*Connection]struct{})
		h.topics[conn.topic] = set
	}
	set[conn] = struct{}{}
}

// Remove unregisters a connection.
func (h *Hub) Remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.topics[conn.topic]
	delete(set, conn)
	if len(set) == 0 {
		delete(h.topics, conn.topic)
	}
}

// Subscribers returns how many connections watch the charger on date.
func (h *Hub) Subscribers(stationID int64, date string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic{stationID: stationID, date: date}])
}

// Notify queues an availability event. It never blocks; events beyond the buffer are dropped.
func (h *Hub) Notify(ev cache.Event) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("availability event dropped, hub busy", zap.Int64("station_id", ev.StationID), zap.String("date", ev.Date))
	}
}

// Run delivers queued events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			h.push(ctx, ev)
		}
	}
}

func (h *Hub) push(ctx context.Context, ev cache.Event) {
	conns := h.snapshot(topic{stationID: ev.StationID, date: ev.Date})
	if len(conns) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	frame, err := h.frame(ctx, ev.StationID, ev.Date)
	if err != nil {
		h.logger.Warn("availability refresh failed", zap.Int64("station_id", ev.StationID), zap.Error(err))
		return
	}
	for _, c := range conns {
		c.Send(frame)
	}
}

func (h *Hub) frame(ctx context.Context, stationID int64, date string) ([]byte, error) {
	free, err := h.source.AvailableSlots(ctx, stationID, date)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: "availability", ChargerID: stationID, Date: date, AvailableSlots: free})
}

func (h *Hub) snapshot(t topic) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Connection, 0, len(h.topics[t]))
	for c := range h.topics[t] {
		out = append(out, c)
	}
	return out
}
