package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/raddle-teams-backend/internal/hub"
)

// closeReasonLimit is the longest reason a close frame can carry.
const closeReasonLimit = 123

// socket adapts a websocket connection to hub.Sink.
type socket struct {
	conn *websocket.Conn
}

func (s *socket) Send(ctx context.Context, msg []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, msg)
}

func (s *socket) Close(reason string) error {
	return s.conn.Close(websocket.StatusNormalClosure, trimReason(reason))
}

// trimReason cuts reason to closeReasonLimit bytes without splitting a rune.
func trimReason(reason string) string {
	if len(reason) <= closeReasonLimit {
		return reason
	}
	n := closeReasonLimit
	for n > 0 && !utf8.RuneStart(reason[n]) {
		n--
	}
	return reason[:n]
}

func accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		// The dashboard and player pages are served from other origins.
		OriginPatterns: []string{"*"},
	})
}

// PlayerHandler serves /ws/lobby/{lobbyID}/player/{playerSessionID}. The
// socket receives every event of its lobby until it closes or is kicked.
func PlayerHandler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID, err := strconv.Atoi(chi.URLParam(r, "lobbyID"))
		if err != nil {
			http.Error(w, "invalid lobby id", http.StatusBadRequest)
			return
		}
		sessionID := chi.URLParam(r, "playerSessionID")
		if sessionID == "" {
			http.Error(w, "missing player session id", http.StatusBadRequest)
			return
		}
		log := log.With(zap.Int("lobby_id", lobbyID), zap.String("player_session_id", sessionID))

		conn, err := accept(w, r)
		if err != nil {
			log.Warn("player websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		sink := &socket{conn: conn}
		h.Players().Connect(lobbyID, sessionID, sink)
		defer h.Players().Release(lobbyID, sessionID, sink)

		// Players have no inbound protocol yet; reading keeps control frames flowing.
		readLoop(r.Context(), conn, log, func(data []byte) {
			log.Debug("player message ignored", zap.ByteString("data", data))
		})
	}
}

// AdminHandler serves /ws/admin/{webSessionID}. Inbound messages are
// subscribe_lobby / unsubscribe_lobby controls.
func AdminHandler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		webSessionID := chi.URLParam(r, "webSessionID")
		if webSessionID == "" {
			http.Error(w, "missing web session id", http.StatusBadRequest)
			return
		}
		log := log.With(zap.String("web_session_id", webSessionID))

		conn, err := accept(w, r)
		if err != nil {
			log.Warn("admin websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		sink := &socket{conn: conn}
		h.Admins().Connect(webSessionID, sink)
		defer h.Admins().Release(webSessionID, sink)

		readLoop(r.Context(), conn, log, func(data []byte) {
			h.Admins().Dispatch(webSessionID, data)
		})
	}
}

// readLoop hands text messages to handle until the peer goes away.
func readLoop(ctx context.Context, conn *websocket.Conn, log *zap.Logger, handle func([]byte)) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Info("websocket closed by peer")
			default:
				if errors.Is(err, context.Canceled) {
					log.Info("websocket request finished")
				} else {
					log.Info("websocket read ended", zap.Error(err))
				}
			}
			return
		}
		if typ != websocket.MessageText {
			log.Warn("ignoring binary websocket message", zap.Int("bytes", len(data)))
			continue
		}
		handle(data)
	}
}
