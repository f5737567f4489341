package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrorWriter renders a failure before the upgrade.
type ErrorWriter func(w http.ResponseWriter, err error)

// Server upgrades availability subscriptions to websockets.
type Server struct {
	hub          *Hub
	writeTimeout time.Duration
	onError      ErrorWriter
	logger       *zap.Logger
	upgrader     websocket.Upgrader

	// ctx ends every connection when the service stops.
	ctx context.Context
}

// NewServer builds the websocket endpoint. Connections close when ctx is done.
func NewServer(ctx context.Context, hub *Hub, writeTimeout time.Duration, onError ErrorWriter, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		hub:          hub,
		writeTimeout: writeTimeout,
		onError:      onError,
		logger:       logger,
		ctx:          ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the gateway's CORS layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleAvailability serves GET /ws/availability?chargerId=&date=.
func (s *Server) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	// a malformed id resolves to an unknown charger
	stationID, _ := strconv.ParseInt(q.Get("chargerId"), 10, 64)
	date := q.Get("date")

	// validates the charger and date before upgrading
	snapshot, err := s.hub.frame(r.Context(), stationID, date)
	if err != nil {
		s.onError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connection := newConnection(topic{stationID: stationID, date: date}, conn, s.writeTimeout, s.logger, s.hub.Remove)
	s.hub.Add(connection)
	connection.Send(snapshot)

	go connection.Start(s.ctx)
	s.logger.Debug("availability subscriber connected", zap.Int64("station_id", stationID), zap.String("date", date))
}
