package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"clinicdesk.io/clinicdesk/internal/api"
	"clinicdesk.io/clinicdesk/internal/dal"
	"clinicdesk.io/clinicdesk/internal/metrics"
	"clinicdesk.io/clinicdesk/internal/summary"
	"clinicdesk.io/clinicdesk/pkg/zerolog_config"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(".env"); err != nil {
		log.Info().Msg("Not found .env file, assuming environment variables are set")
	}

	// Get configuration from environment
	elasticsearchURL := getEnvOrDefault("ELASTICSEARCH_URL", "")
	apiPort := getEnvOrDefault("API_PORT", "8080")
	apiLogLevel := getEnvOrDefault("API_LOG_LEVEL", "info")

	// Set app prefix
	zerolog_config.SetAppPrefix("clinicdesk")

	// Initialize zerolog, with Elasticsearch shipping when configured
	zerolog_config.StartupWithEnv(elasticsearchURL, "logs", apiLogLevel)

	log.Info().Msg("Starting clinicdesk API service")

	// Start system metrics collection
	metrics.StartSystemMetricsCollection("clinicdesk")

	// Connect to the document store
	conn, err := dal.GetConnOrGenConn()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Couchbase")
	}
	store := dal.NewCouchbaseStore(conn)

	// Build the summary completer only when a credential is configured
	var completer summary.Completer
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		completer = summary.NewOpenAIClient(apiKey, openAITimeout())
		log.Info().Msg("AI summary generation enabled")
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, visit summaries use the fallback template")
	}

	server := api.NewServer(store, completer, api.AuthConfigFromEnv())

	// Seed the default admin account before accepting traffic
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer seedCancel()
	if err := api.SeedAdmin(seedCtx, server.Users()); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed admin user")
	}

	// Setup routes
	router := server.SetupRoutes()

	// Create HTTP server
	httpServer := &http.Server{
		Addr:    ":" + apiPort,
		Handler: router,
	}

	// Listen for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Info().
			Str("port", apiPort).
			Msg("Server starting")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().
				Err(err).
				Msg("Failed to start server")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Shutdown server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	// Close database connection
	log.Info().Msg("Closing database connection...")
	conn.Close()

	log.Info().Msg("API service shutdown complete")
}

// openAITimeout reads OPENAI_TIMEOUT as a duration, defaulting to 30s
func openAITimeout() time.Duration {
	if raw := os.Getenv("OPENAI_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 30 * time.Second
}

// Helper function to get environment variable with default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
