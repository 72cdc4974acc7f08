// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/okian/scrawl/internal/domain/types"
	"github.com/okian/scrawl/internal/game"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	// CreateDuel opens a new session and describes how to join it.
	CreateDuel(ctx context.Context) (types.DuelInfo, error)

	// Duel returns the live session for a duel id.
	Duel(ctx context.Context, id string) (*game.Session, error)

	// Snapshot returns a point-in-time view of a duel.
	Snapshot(ctx context.Context, id string) (types.Snapshot, error)

	// Leaderboard returns the top ranked rows.
	Leaderboard(ctx context.Context, limit int) ([]Entry, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	duelsHandler       *DuelsHandler
	wsHandler          *WSHandler
	qrHandler          *QRHandler
	leaderboardHandler *LeaderboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxLeaderboardLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		duelsHandler:       NewDuelsHandler(deps),
		wsHandler:          NewWSHandler(deps),
		qrHandler:          NewQRHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLeaderboardLimit),
	}
}

// Register attaches all HTTP routes to the router.
func (s *Server) Register(router *httprouter.Router) {
	router.POST("/duels", MetricsMiddleware(s.duelsHandler.HandleCreate, "duels_create"))
	router.GET("/duels/:id", MetricsMiddleware(s.duelsHandler.HandleSnapshot, "duels_snapshot"))
	router.GET("/duels/:id/qr.png", MetricsMiddleware(s.qrHandler.HandleQR, "duels_qr"))
	router.GET("/ws/:id", s.wsHandler.HandleWS)
	router.GET("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	router.GET("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	router.GET("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeMapped translates sentinel errors to their HTTP status.
func writeMapped(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
