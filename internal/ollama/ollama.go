package ollama

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

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Ollama is a provider for Ollama
type Ollama struct {
	httpClient *http.Client
}

// New returns a new Ollama provider
func New() *Ollama {
	return &Ollama{httpClient: &http.Client{}}
}

func (o *Ollama) Name() string {
	return "ollama"
}

// StartChat prepares a chat against the local Ollama server. No key is needed.
func (o *Ollama) StartChat(ctx context.Context, config providers.Config, doc document.Document) (providers.Chat, error) {
	ollamaURL := os.Getenv("OLLAMA_URL")
	if ollamaURL == "" {
		ollamaURL = os.Getenv("OLLAMA_HOST")
	}
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}

	return &chat{
		client:  o.httpClient,
		url:     strings.TrimSuffix(ollamaURL, "/") + "/api/chat",
		config:  config,
		history: []message{{Role: "system", Content: providers.DocumentContext(doc)}},
	}, nil
}

type chat struct {
	client  *http.Client
	url     string
	config  providers.Config
	history []message
}

func (c *chat) Send(ctx context.Context, prompt string) (string, error) {
	messages := append(c.history, message{Role: "user", Content: prompt})

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":    c.config.Model,
		"messages": messages,
		"stream":   false,
		"options": map[string]interface{}{
			"temperature": c.config.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		Message message `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	c.history = append(messages, response.Message)
	return response.Message.Content, nil
}

func (c *chat) Close() error {
	return nil
}
