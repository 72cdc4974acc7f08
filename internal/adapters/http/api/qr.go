// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"
)

// QR image size in pixels; mobile-friendly.
const qrSize = 320

// QRHandler renders join QR codes for duels.
type QRHandler struct {
	deps Dependencies
}

// NewQRHandler creates a new QR handler.
func NewQRHandler(deps Dependencies) *QRHandler {
	return &QRHandler{deps: deps}
}

// HandleQR handles GET /duels/:id/qr.png requests: a PNG QR code
// encoding the join URL for the sketch client.
func (h *QRHandler) HandleQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	const op = "api.duel_qr"

	id := ps.ByName("id")
	if _, err := h.deps.Duel(r.Context(), id); err != nil {
		writeMapped(w, op, err)
		return
	}

	// Derive scheme respecting TLS and X-Forwarded-Proto if present.
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /duels/:id/qr.png; strip the suffix to get the duel URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr.png")
	url := scheme + "://" + r.Host + path

	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
