package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Link is a footer button pointing at an external site.
type Link struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// Config holds everything the web server needs. Secrets stay in the environment.
type Config struct {
	Port           string        `yaml:"port"`
	DataDir        string        `yaml:"data_dir"`
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	Temperature    float64       `yaml:"temperature"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	MaxSessions    int           `yaml:"max_sessions"`
	MaxUploadMB    int64         `yaml:"max_upload_mb"`
	RateLimit      int           `yaml:"rate_limit_per_min"`
	TrustProxy     bool          `yaml:"trust_proxy_headers"`
	Title          string        `yaml:"title"`
	Description    string        `yaml:"description"`
	About          string        `yaml:"about"`
	Links          []Link        `yaml:"links"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port:           "8888",
		DataDir:        "data",
		Provider:       "openai",
		Temperature:    0.7,
		RequestTimeout: 2 * time.Minute,
		SessionTTL:     time.Hour,
		MaxSessions:    1000,
		RateLimit:      30,
		Title:          "Library Assistant",
		Description:    "Discover personalized book recommendations tailored to your preferred genre. Upload your book list and tell the assistant what you like to read.",
		About:          "Upload a PDF or DOCX book list, enter a genre and the assistant will categorize the list and recommend matching titles.",
		Links: []Link{
			{Label: "Open Library", URL: "https://openlibrary.org/"},
			{Label: "Project Gutenberg", URL: "https://www.gutenberg.org/"},
		},
	}
}

// Load reads path on top of the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv("ASSISTANT_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("ASSISTANT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("ASSISTANT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	return cfg, cfg.Validate()
}

// Validate reports settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.Provider == "" {
		errs = append(errs, errors.New("provider is required"))
	}
	if c.MaxSessions <= 0 {
		errs = append(errs, errors.New("max_sessions must be positive"))
	}
	if c.RequestTimeout < 0 || c.SessionTTL < 0 || c.MaxUploadMB < 0 || c.RateLimit < 0 {
		errs = append(errs, errors.New("timeouts and limits must not be negative"))
	}
	return errors.Join(errs...)
}
