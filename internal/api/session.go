package api

import (
	"context"
	stdhttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gitstr/internal/app"
	"gitstr/internal/platform/logger"
)

const writeTimeout = 10 * time.Second

// upgrader accepts the browser-extension origins plus same-host tooling.
// The agent only listens on loopback; origin is a second fence, not the wall
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *stdhttp.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return strings.HasPrefix(origin, "chrome-extension://") ||
			strings.HasPrefix(origin, "moz-extension://") ||
			strings.Contains(origin, "://localhost") ||
			strings.Contains(origin, "://127.0.0.1")
	},
}

// session upgrades the connection and runs one page-load session until the
// socket closes (navigation tears the extension side down)
func (h *handlers) session(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	log := logger.Named("api")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("session upgrade failed")
		return
	}
	defer conn.Close()

	sender := &wsSender{conn: conn}
	sess := h.app.NewSession(sender)
	defer sess.Close()

	log.Info().Str("session_id", sess.ID()).Msg("session opened")
	for {
		var f app.Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("session_id", sess.ID()).Msg("session closed abnormally")
			} else {
				log.Info().Str("session_id", sess.ID()).Msg("session closed")
			}
			return
		}
		sess.HandleFrame(f)
	}
}

// wsSender serializes writes; gorilla allows one concurrent writer
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(_ context.Context, f app.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(f)
}
