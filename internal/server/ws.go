package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jonathan/resume-live/internal/feed"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsReadLimit  = 512
	wsPingPeriod = (wsPongWait * 9) / 10
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return s.corsOrigin == "*" || origin == "" || origin == s.corsOrigin
		},
	}
}

// handleFeedWS streams feed changes over a websocket as JSON messages, one
// change per message. The first message is a resync. Clients only send
// control frames; any data frame is ignored.
func (s *Server) handleFeedWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	filter := feedFilter(r)
	sub := s.hub.Subscribe(filter)
	defer sub.Unsubscribe()
	log := s.logger.With(zap.String("table", filter.Table), zap.String("target", filter.Target))
	log.Debug("feed client connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(c feed.Change) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(c)
	}
	if err := write(feed.Change{Type: feed.EventResync}); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			log.Debug("feed client disconnected")
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case c, ok := <-sub.C():
			if !ok {
				return
			}
			if err := write(c); err != nil {
				log.Debug("feed write failed", zap.Error(err))
				return
			}
		}
	}
}
