package models

import "time"

// Session is one visitor's interaction with the assistant
type Session struct {
	ID        string            `json:"id"`
	Document  *UploadedDocument `json:"document,omitempty"`
	Provider  string            `json:"provider,omitempty"`
	Model     string            `json:"model,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// UploadedDocument represents the book list stored for a session
type UploadedDocument struct {
	FileName   string    `json:"file_name"`
	Path       string    `json:"-"`
	Extension  string    `json:"extension"`
	Size       int       `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// RecommendationRequest asks for a recommendation from the session's document
type RecommendationRequest struct {
	SessionID string `json:"session_id"`
	Genre     string `json:"genre"`
}

// RecommendationResult carries the assistant's reply as received and as HTML
type RecommendationResult struct {
	SessionID      string `json:"session_id"`
	Genre          string `json:"genre"`
	Recommendation string `json:"recommendation"`
	HTML           string `json:"html"`
}
