package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/library-assistant/internal/document"
	"github.com/lehigh-university-libraries/library-assistant/internal/providers"
)

// Extractor turns a stored file into plain text.
type Extractor func(path string) (string, error)

// Service builds document chats and drives the recommendation prompt.
type Service struct {
	provider providers.Provider
	config   providers.Config
	timeout  time.Duration

	extractPDF  Extractor
	extractDOCX Extractor
}

// Option customizes a Service.
type Option func(*Service)

// WithTimeout bounds each remote call. Zero leaves the caller's context as is.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithExtractors replaces the PDF and DOCX text extractors.
func WithExtractors(pdf, docx Extractor) Option {
	return func(s *Service) {
		s.extractPDF = pdf
		s.extractDOCX = docx
	}
}

// NewService creates a service that talks to provider with the given model settings.
func NewService(provider providers.Provider, config providers.Config, opts ...Option) *Service {
	s := &Service{
		provider:    provider,
		config:      config,
		extractPDF:  document.ExtractPDF,
		extractDOCX: document.ExtractDOCX,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the name of the backing provider.
func (s *Service) Provider() string {
	return s.provider.Name()
}

// Model returns the configured model identifier.
func (s *Service) Model() string {
	return s.config.Model
}

// BuildSession opens a chat bound to the document at path. Unsupported file
// types fail here, before anything is read or sent.
func (s *Service) BuildSession(ctx context.Context, path string) (providers.Chat, error) {
	kind, err := document.KindFromPath(path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case document.PDF:
		return s.pdfChat(ctx, path)
	case document.DOCX:
		return s.docxChat(ctx, path)
	default:
		return nil, fmt.Errorf("%w (kind %s)", document.ErrUnsupportedFileType, kind)
	}
}

func (s *Service) pdfChat(ctx context.Context, path string) (providers.Chat, error) {
	text, err := s.extractPDF(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF document: %w", err)
	}
	return s.startChat(ctx, document.Document{Name: filepath.Base(path), Kind: document.PDF, Text: text})
}

func (s *Service) docxChat(ctx context.Context, path string) (providers.Chat, error) {
	text, err := s.extractDOCX(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read DOCX document: %w", err)
	}
	return s.startChat(ctx, document.Document{Name: filepath.Base(path), Kind: document.DOCX, Text: text})
}

func (s *Service) startChat(ctx context.Context, doc document.Document) (providers.Chat, error) {
	slog.Info("Starting document chat", "provider", s.provider.Name(), "model", s.config.Model, "document", doc.Name, "kind", doc.Kind, "chars", len(doc.Text))
	chat, err := s.provider.StartChat(ctx, s.config, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s chat: %w", s.provider.Name(), err)
	}
	return chat, nil
}

// Recommend sends the recommendation prompt once and returns the reply as is.
func (s *Service) Recommend(ctx context.Context, chat providers.Chat, genre string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := chat.Send(ctx, BuildPrompt(genre))
	if err != nil {
		return "", fmt.Errorf("failed to get recommendation: %w", err)
	}

	slog.Info("Recommendation generated", "provider", s.provider.Name(), "model", s.config.Model, "genre", genre, "length", len(reply), "duration", time.Since(start))
	return reply, nil
}

// RecommendFromFile builds a fresh session for the document and asks for a
// recommendation. Sessions are never reused between calls.
func (s *Service) RecommendFromFile(ctx context.Context, path, genre string) (string, error) {
	chat, err := s.BuildSession(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := chat.Close(); err != nil {
			slog.Warn("Unable to close chat", "err", err)
		}
	}()

	return s.Recommend(ctx, chat, genre)
}
