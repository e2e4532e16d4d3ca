package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/library-assistant/internal/assistant"
	"github.com/lehigh-university-libraries/library-assistant/internal/config"
	"github.com/lehigh-university-libraries/library-assistant/internal/handlers"
	"github.com/lehigh-university-libraries/library-assistant/internal/middleware"
	"github.com/lehigh-university-libraries/library-assistant/internal/providers"
	"github.com/lehigh-university-libraries/library-assistant/internal/storage"
	"github.com/lehigh-university-libraries/library-assistant/internal/workspace"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       string
		dataDir    string
		provider   string
		model      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the library assistant web server",
		Long: `Starts the Library Assistant web interface on the specified port.

The page lets a visitor upload a PDF or DOCX book list, enter a preferred genre
and receive recommendations from the configured LLM provider (openai, gemini or ollama).
API keys are read from OPENAI_API_KEY or GEMINI_API_KEY, a .env file is loaded if present.`,
		Example: `  # Start server on default port 8888 with OpenAI
  OPENAI_API_KEY=... library-assistant serve

  # Use Gemini on a custom port
  library-assistant serve --provider gemini --port 3000

  # Load settings from a YAML file
  library-assistant serve --config assistant.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			if flags.Changed("provider") {
				cfg.Provider = provider
			}
			if flags.Changed("model") {
				cfg.Model = model
			}
			if cfg.Model == "" {
				cfg.Model = assistant.DefaultModel(cfg.Provider)
			}

			chatProvider, err := assistant.NewProvider(cfg.Provider)
			if err != nil {
				return err
			}

			ws, err := workspace.New(cfg.DataDir)
			if err != nil {
				return err
			}
			// Leftovers from a previous run are not fatal.
			if err := ws.Reset(); err != nil {
				slog.Warn("Unable to clear working directory", "dir", cfg.DataDir, "err", err)
			}

			store := storage.New(cfg.MaxSessions, cfg.SessionTTL)
			defer store.Close()

			svc := assistant.NewService(chatProvider, providers.Config{
				Model:       cfg.Model,
				Temperature: cfg.Temperature,
			}, assistant.WithTimeout(cfg.RequestTimeout))

			handler := handlers.New(cfg, ws, store, svc)

			var limit func(http.Handler) http.Handler
			if cfg.RateLimit > 0 {
				limit = middleware.NewRateLimiter(cfg.RateLimit, cfg.TrustProxy).Handler
			}

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(limit),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Library assistant available", "addr", addr, "url", "http://localhost"+addr, "provider", cfg.Provider, "model", cfg.Model)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory holding uploaded documents (cleared at startup)")
	cmd.Flags().StringVar(&provider, "provider", "openai", "LLM provider (openai, gemini or ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to the provider's default)")

	return cmd
}
