package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/openclaw/qrgen/notify"
	"github.com/openclaw/qrgen/qr"
)

// Limits on a single /qr request. The image side grows with both values, so
// each is capped.
const (
	maxBoxSize = 50
	maxBorder  = 20
)

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	content := r.URL.Query().Get("content")
	if content == "" {
		writeError(w, http.StatusBadRequest, "content query parameter is required")
		return
	}

	boxSize := queryInt(r, "box_size", s.BoxSize)
	if boxSize == 0 || boxSize > maxBoxSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("box_size must be between 1 and %d", maxBoxSize))
		return
	}
	border := queryInt(r, "border", s.Border)
	if border > maxBorder {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("border must be between 0 and %d", maxBorder))
		return
	}

	png, res, err := qr.PNG(content, boxSize, border)
	if errors.Is(err, qr.ErrCapacityExceeded) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.Log.Error("render qr", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)

	if s.Webhook != nil && s.Webhook.Enabled() {
		ev := &notify.Event{
			Content: content,
			Version: res.Version,
			Pixels:  res.Pixels,
		}
		go func() {
			if err := s.Webhook.Send(ev); err != nil {
				s.Log.Warn("webhook failed", "error", err)
			}
		}()
	}
}
