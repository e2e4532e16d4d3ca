package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/library-assistant/internal/document"
	"github.com/lehigh-university-libraries/library-assistant/internal/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAI is a provider for OpenAI
type OpenAI struct {
	httpClient *http.Client
}

// New returns a new OpenAI provider
func New() *OpenAI {
	return &OpenAI{httpClient: &http.Client{}}
}

func (o *OpenAI) Name() string {
	return "openai"
}

// StartChat opens a chat whose first message carries the document text.
// Nothing is sent until the first prompt.
func (o *OpenAI) StartChat(ctx context.Context, config providers.Config, doc document.Document) (providers.Chat, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY: %w", providers.ErrMissingAPIKey)
	}

	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &chat{
		client:  o.httpClient,
		url:     strings.TrimSuffix(baseURL, "/") + "/chat/completions",
		apiKey:  apiKey,
		config:  config,
		history: []message{{Role: "system", Content: providers.DocumentContext(doc)}},
	}, nil
}

type chat struct {
	client  *http.Client
	url     string
	apiKey  string
	config  providers.Config
	history []message
}

// Send posts the whole history plus prompt and records the reply.
func (c *chat) Send(ctx context.Context, prompt string) (string, error) {
	messages := append(c.history, message{Role: "user", Content: prompt})

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":       c.config.Model,
		"messages":    messages,
		"temperature": c.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	reply := response.Choices[0].Message.Content
	c.history = append(messages, message{Role: "assistant", Content: reply})
	return reply, nil
}

func (c *chat) Close() error {
	return nil
}
