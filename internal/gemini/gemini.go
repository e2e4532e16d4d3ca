package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/library-assistant/internal/document"
	"github.com/lehigh-university-libraries/library-assistant/internal/providers"
	"google.golang.org/api/option"
)

// Gemini is a provider for Google Gemini
type Gemini struct{}

// New returns a new Gemini provider
func New() *Gemini {
	return &Gemini{}
}

func (g *Gemini) Name() string {
	return "gemini"
}

// StartChat creates a Gemini client and a chat session whose system
// instruction carries the document. The client lives until Close.
func (g *Gemini) StartChat(ctx context.Context, config providers.Config, doc document.Document) (providers.Chat, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY: %w", providers.ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(float32(config.Temperature))
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(providers.DocumentContext(doc))},
	}

	return &chat{client: client, session: model.StartChat()}, nil
}

type chat struct {
	client  *genai.Client
	session *genai.ChatSession
}

func (c *chat) Send(ctx context.Context, prompt string) (string, error) {
	resp, err := c.session.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

func (c *chat) Close() error {
	return c.client.Close()
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}

	return sb.String(), nil
}
