package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/library-assistant/internal/config"
	"github.com/lehigh-university-libraries/library-assistant/internal/document"
	"github.com/lehigh-university-libraries/library-assistant/internal/models"
	"github.com/lehigh-university-libraries/library-assistant/internal/providers"
	"github.com/lehigh-university-libraries/library-assistant/internal/storage"
	"github.com/lehigh-university-libraries/library-assistant/internal/workspace"
)

// Recommender produces a recommendation for a stored document.
type Recommender interface {
	RecommendFromFile(ctx context.Context, path, genre string) (string, error)
	Provider() string
	Model() string
}

type Handler struct {
	config       config.Config
	workspace    *workspace.Workspace
	sessionStore *storage.SessionStore
	assistant    Recommender
}

func New(cfg config.Config, ws *workspace.Workspace, store *storage.SessionStore, assistant Recommender) *Handler {
	return &Handler{
		config:       cfg,
		workspace:    ws,
		sessionStore: store,
		assistant:    assistant,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*models.Session, bool) {
	session, _, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

// statusFor maps recommendation failures to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, document.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, providers.ErrMissingAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		// client went away, nobody reads this
		return http.StatusRequestTimeout
	default:
		return http.StatusBadGateway
	}
}
