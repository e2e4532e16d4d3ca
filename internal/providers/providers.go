package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/library-assistant/internal/document"
)

// ErrMissingAPIKey is returned when a hosted provider has no credentials configured.
var ErrMissingAPIKey = errors.New("API key not set")

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
}

// Chat is a conversation bound to one document.
type Chat interface {
	Send(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Name() string
	StartChat(ctx context.Context, config Config, doc document.Document) (Chat, error)
}

// DocumentContext is the system message that binds a chat to its document.
func DocumentContext(doc document.Document) string {
	return fmt.Sprintf(`You answer questions about the %s document %q uploaded by the user.
Its full text follows between the markers.

----- BEGIN DOCUMENT -----
%s
----- END DOCUMENT -----`, doc.Kind, doc.Name, doc.Text)
}
