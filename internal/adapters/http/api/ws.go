// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/okian/scrawl/internal/adapters/ws"
	"github.com/okian/scrawl/pkg/logger"
)

// WSHandler attaches sketch clients to duel sessions.
type WSHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(deps Dependencies) *WSHandler {
	return &WSHandler{
		deps:   deps,
		logger: logger.Get().Named("api"),
	}
}

// HandleWS handles GET /ws/:id requests.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	const op = "api.duel_ws"

	sess, err := h.deps.Duel(r.Context(), ps.ByName("id"))
	if err != nil {
		writeMapped(w, op, err)
		return
	}

	if err := ws.Serve(r.Context(), w, r, sess); err != nil {
		// The upgrade already wrote its own error response.
		h.logger.Warn(r.Context(), "websocket attach failed", logger.Error(err))
	}
}
