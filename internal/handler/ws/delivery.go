// Package ws serves the duplex client socket: binary chat pushes and JSON
// presence notices out, tagged JSON commands in.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
	"github.com/DingWH03/uchat-sub000/internal/domain/push"
	"github.com/DingWH03/uchat-sub000/internal/domain/registry"
	"github.com/DingWH03/uchat-sub000/internal/metrics"
	"github.com/DingWH03/uchat-sub000/internal/service"
)

const (
	// SessionCookie carries the session id issued at login.
	SessionCookie = "session_id"

	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

type WSHandler struct {
	registry    registry.SessionRegistry
	senders     *registry.SenderStore
	pipeline    service.Sender
	auth        *service.AuthService
	logger      *slog.Logger
	metrics     metrics.Collector
	mailboxSize int
	upgrader    websocket.Upgrader
}

func NewWSHandler(reg registry.SessionRegistry, senders *registry.SenderStore, pipeline service.Sender, auth *service.AuthService, logger *slog.Logger, collector metrics.Collector, mailboxSize int) *WSHandler {
	return &WSHandler{
		registry:    reg,
		senders:     senders,
		pipeline:    pipeline,
		auth:        auth,
		logger:      logger,
		metrics:     collector,
		mailboxSize: mailboxSize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

// ServeHTTP authenticates the upgrade request by session cookie, refuses with
// 401 before upgrading when the session is absent or unknown, then runs the
// connection until either side closes it. A connection is a session: socket
// close tears the session down unless a reconnect already took the id over.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	sessionID := cookie.Value

	user, err := h.registry.LookupUser(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "unknown session", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Error("ws upgrade failed", "session_id", sessionID, "err", err)
		return
	}

	// Connection-scoped logger; every line below belongs to this socket.
	log := h.logger.With(
		slog.Uint64("user_id", uint64(user)),
		slog.String("session_id", sessionID),
	)

	h.metrics.ConnectionOpened()
	log.Info("ws opened", "remote", r.RemoteAddr)

	mb := registry.NewMailbox(h.mailboxSize)
	h.senders.Insert(sessionID, mb)

	go h.writeLoop(conn, mb, log)
	h.readLoop(r.Context(), conn, sessionID, mb, log)
}

// writeLoop is the mailbox's single consumer. It exits when the mailbox
// closes (teardown, takeover, or overflow) or a write fails, emits the
// terminal close frame, and drops the socket so the reader unblocks.
func (h *WSHandler) writeLoop(conn *websocket.Conn, mb *registry.Mailbox, log *slog.Logger) {
	for frame := range mb.Frames() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))

		var err error
		switch frame.Kind {
		case push.OutboundBinary:
			err = conn.WriteMessage(websocket.BinaryMessage, frame.Data)
		case push.OutboundText:
			err = conn.WriteMessage(websocket.TextMessage, frame.Data)
		case push.OutboundPong:
			err = conn.WriteControl(websocket.PongMessage, frame.Data, time.Now().Add(writeWait))
		}
		if err != nil {
			log.Warn("ws write failed", "err", err)
			break
		}
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	conn.Close()
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string, mb *registry.Mailbox, log *slog.Logger) {
	defer h.teardown(ctx, sessionID, mb, log)

	conn.SetReadLimit(maxMessageSize)
	conn.SetPingHandler(func(payload string) error {
		// The pong rides the mailbox so it cannot overtake queued pushes.
		h.senders.Send(sessionID, push.Pong([]byte(payload)))
		return nil
	})
	conn.SetPongHandler(func(string) error {
		// A pong proves liveness; the lookup slides the session TTL. When
		// the session expired underneath us, kill the connection.
		if _, err := h.registry.LookupUser(ctx, sessionID); errors.Is(err, model.ErrNotFound) {
			return err
		}
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			// Clients have no binary protocol; anything but text is noise.
			continue
		}
		h.dispatch(ctx, sessionID, data, log)
	}
}

// dispatch routes one tagged client frame. Malformed and unknown frames are
// logged and dropped without hanging up.
func (h *WSHandler) dispatch(ctx context.Context, sessionID string, data []byte, log *slog.Logger) {
	frame, err := push.DecodeClient(data)
	if err != nil {
		log.Warn("client frame rejected", "err", err)
		return
	}

	switch frame.Type {
	case push.ClientSendMessage:
		if err := h.pipeline.SendPrivate(ctx, sessionID, frame.Receiver, frame.Message); err != nil {
			log.Warn("send private failed", "err", err)
		}
	case push.ClientSendGroupMessage:
		if err := h.pipeline.SendGroup(ctx, sessionID, frame.GroupID, frame.Message); err != nil {
			log.Warn("send group failed", "err", err)
		}
	default:
		log.Warn("unknown client frame type ignored", "type", frame.Type)
	}
}

func (h *WSHandler) teardown(ctx context.Context, sessionID string, mb *registry.Mailbox, log *slog.Logger) {
	h.metrics.ConnectionClosed()

	if mb.Replaced() {
		// A reconnect took the session id over; the session record and the
		// live mailbox belong to the successor.
		log.Debug("connection superseded")
		return
	}

	h.auth.CloseSession(ctx, sessionID)
	h.senders.Release(sessionID, mb)
	log.Info("ws closed")
}
