package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/library-assistant/internal/models"
	"github.com/lehigh-university-libraries/library-assistant/internal/workspace"
)

const sessionEndedMessage = "Session expired during upload, please try again"

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.config.MaxUploadMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadMB*1024*1024)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, fmt.Sprintf("File too large (max %dMB)", h.config.MaxUploadMB), http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileData, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	session, area, err := h.sessionFor(r.FormValue("session_id"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	path, err := area.Store(fileData, header.Filename)
	if errors.Is(err, workspace.ErrAreaDestroyed) {
		h.writeError(w, sessionEndedMessage, http.StatusConflict)
		return
	}
	if path == "" {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var warnings []string
	if err != nil {
		warnings = append(warnings, err.Error())
	}

	doc := &models.UploadedDocument{
		FileName:   filepath.Base(path),
		Path:       path,
		Extension:  strings.ToLower(filepath.Ext(path)),
		Size:       len(fileData),
		UploadedAt: time.Now(),
	}
	if err := h.sessionStore.Update(session.ID, func(s *models.Session) { s.Document = doc }); err != nil {
		// The session ended after the write; its area must not outlive it.
		if err := area.Destroy(); err != nil {
			slog.Warn("Unable to remove session files", "session_id", session.ID, "err", err)
		}
		h.writeError(w, sessionEndedMessage, http.StatusConflict)
		return
	}

	slog.Info("Document uploaded", "session_id", session.ID, "file", doc.FileName, "size", doc.Size)

	response := map[string]any{
		"session_id": session.ID,
		"message":    "File successfully saved",
		"file_name":  doc.FileName,
	}
	if len(warnings) > 0 {
		response["warnings"] = warnings
	}

	h.writeJSON(w, response)
}

// sessionFor returns the live session with sessionID, or starts a new one.
func (h *Handler) sessionFor(sessionID string) (*models.Session, *workspace.Area, error) {
	if sessionID != "" {
		if session, area, ok := h.sessionStore.Get(sessionID); ok {
			return session, area, nil
		}
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		Provider:  h.assistant.Provider(),
		Model:     h.assistant.Model(),
		CreatedAt: time.Now(),
	}
	area, err := h.workspace.Area(session.ID)
	if err != nil {
		return nil, nil, err
	}
	h.sessionStore.Set(session, area)

	slog.Info("Session started", "session_id", session.ID)
	return session, area, nil
}
