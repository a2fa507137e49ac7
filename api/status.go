package api

import (
	"net/http"
	"time"
)

type statusResponse struct {
	Status  string `json:"status"`
	History bool   `json:"history"`
	Webhook bool   `json:"webhook"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "ok",
		History: s.Store != nil,
		Webhook: s.Webhook != nil && s.Webhook.Enabled(),
		Uptime:  time.Since(s.StartTime).Truncate(time.Second).String(),
		Version: s.Version,
	})
}
