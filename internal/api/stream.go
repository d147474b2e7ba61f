package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// handleStream upgrades to a websocket and pushes every appended event as
// a JSON text frame. ?launch_id=<id> restricts the stream to one launch.
// Slow clients miss events; the seq gap tells them to page /v1/events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.events == nil || s.events.Broadcaster() == nil {
		s.writeError(w, r, apperrors.New(apperrors.CodeInvalidState, "event streaming is disabled"))
		return
	}

	var filter func(*domain.Event) bool
	if raw := r.URL.Query().Get("launch_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, apperrors.Newf(apperrors.CodeInvalidInput, "invalid launch_id %q", raw))
			return
		}
		filter = func(e *domain.Event) bool { return e.LaunchID == id }
	}

	// Subscribe first so nothing appended after the handshake is missed.
	sub := s.events.Broadcaster().Subscribe(s.streamBuffer, filter)
	defer sub.Close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := s.logger.With(zap.String("request_id", RequestIDFromContext(r.Context())))
	logger.Debug("stream opened", zap.String("remote", r.RemoteAddr))

	// The read loop only serves control frames and notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			logger.Debug("stream closed by client")
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				logger.Debug("stream write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
