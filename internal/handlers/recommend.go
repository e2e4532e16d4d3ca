package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/library-assistant/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func (h *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request models.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	session, ok := h.getSessionOrError(w, request.SessionID)
	if !ok {
		return
	}
	if session.Document == nil {
		h.writeError(w, "Upload a document first", http.StatusBadRequest)
		return
	}

	slog.Info("Generating recommendation", "session_id", session.ID, "file", session.Document.FileName, "genre", request.Genre)
	reply, err := h.assistant.RecommendFromFile(r.Context(), session.Document.Path, request.Genre)
	if err != nil {
		h.writeError(w, err.Error(), statusFor(err))
		return
	}

	h.writeJSON(w, models.RecommendationResult{
		SessionID:      session.ID,
		Genre:          request.Genre,
		Recommendation: reply,
		HTML:           renderMarkdown(reply),
	})
}

// renderMarkdown converts the reply for display. Raw HTML in the reply is
// not passed through.
func renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		slog.Warn("Unable to render recommendation", "err", err)
		return ""
	}
	return buf.String()
}
