// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// DuelsHandler handles duel creation and snapshot requests.
type DuelsHandler struct {
	deps Dependencies
}

// NewDuelsHandler creates a new duels handler.
func NewDuelsHandler(deps Dependencies) *DuelsHandler {
	return &DuelsHandler{deps: deps}
}

// HandleCreate handles POST /duels requests.
func (h *DuelsHandler) HandleCreate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	const op = "api.create_duel"

	info, err := h.deps.CreateDuel(r.Context())
	if err != nil {
		writeMapped(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// HandleSnapshot handles GET /duels/:id requests.
func (h *DuelsHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	const op = "api.get_duel"

	id := ps.ByName("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	snap, err := h.deps.Snapshot(r.Context(), id)
	if err != nil {
		writeMapped(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
