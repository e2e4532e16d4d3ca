package handlers

import (
	"log/slog"
	"net/http"
)

// Routes wires every endpoint. API routes go through limit when it is not nil.
func (h *Handler) Routes(limit func(http.Handler) http.Handler) http.Handler {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	mux := http.NewServeMux()
	mux.Handle("/api/upload", limit(http.HandlerFunc(h.HandleUpload)))
	mux.Handle("/api/recommend", limit(http.HandlerFunc(h.HandleRecommend)))
	mux.Handle("/api/sessions/", limit(http.HandlerFunc(h.HandleSessionDetail)))
	mux.HandleFunc("/", h.HandleStatic)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}
