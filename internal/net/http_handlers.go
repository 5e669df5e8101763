package net

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/overfly42/found-gems/internal/net/ws"
)

type HTTPHandlerConfig struct {
	// Diagnostics, when set, supplies the body of /diagnostics.
	Diagnostics func() any
}

// NewHTTPHandler serves the spectator endpoints: /health, /diagnostics and
// the /ws decision feed.
func NewHTTPHandler(hub *ws.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string `json:"status"`
			ServerTime int64  `json:"serverTime"`
			Spectators int    `json:"spectators"`
			Telemetry  any    `json:"telemetry,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Spectators: hub.Subscribers(),
		}
		if cfg.Diagnostics != nil {
			payload.Telemetry = cfg.Diagnostics()
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/ws", hub.Handle)

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
