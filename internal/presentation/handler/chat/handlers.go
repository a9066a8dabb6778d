package chat

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/synchat/internal/infrastructure/ws"
	"go.uber.org/zap"
)

type Handler struct {
	core         *ws.Core
	upgrader     websocket.Upgrader
	clientBuffer int
	logger       *zap.SugaredLogger
	// ctx outlives single requests so message persistence is not cut short
	// when the upgrade request returns.
	ctx context.Context
}

func NewHandler(
	ctx context.Context,
	core *ws.Core,
	allowedOrigins []string,
	clientBuffer int,
	logger *zap.SugaredLogger,
) *Handler {
	return &Handler{
		core: core,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		clientBuffer: clientBuffer,
		logger:       logger,
		ctx:          ctx,
	}
}

// ServeWS upgrades the request and runs the connection until it closes.
// Rooms are chosen per join event, not per connection.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	client := ws.NewClient(conn, h.clientBuffer)
	h.core.Register(client)
	h.logger.Debugw("client connected", "client", client.ID, "remote_addr", r.RemoteAddr)

	go client.WriteMessage()
	client.ReadMessage(h.ctx, h.core)

	h.logger.Debugw("client disconnected", "client", client.ID)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := len(allowed) == 0
	hosts := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
			continue
		}
		hosts[strings.ToLower(strings.TrimRight(origin, "/"))] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowAll || origin == "" {
			return true
		}
		if hosts[strings.ToLower(origin)] {
			return true
		}
		// same-origin requests are always fine
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
