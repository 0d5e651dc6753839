package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"localagent.ro/sme-agent/internal/api"
	"localagent.ro/sme-agent/internal/config"
	"localagent.ro/sme-agent/internal/core"
	"localagent.ro/sme-agent/internal/store"
)

func main() {
	config.LoadConfig()

	logger, err := buildLogger(config.AppConfig.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Command line flags for the bulk financial-data import
	importFile := flag.String("import", "", "Import a financial disclosure file and exit")
	importYear := flag.Int("year", time.Now().Year(), "Reporting year for the imported file")
	flag.Parse()

	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbStore.Close()

	if *importFile != "" {
		importer := core.NewImporter(dbStore, logger)
		result, err := importer.ImportFile(context.Background(), *importFile, *importYear)
		if err != nil {
			logger.Fatal("Import failed", zap.Error(err))
		}
		logger.Info("Import complete, exiting",
			zap.Int("processed", result.Processed),
			zap.Int("skipped", result.Skipped))
		os.Exit(0)
	}

	searchService := core.NewSearchService(config.AppConfig.SerpAPIKey, "", logger)
	placesService := core.NewPlacesService(config.AppConfig.PlacesAPIKey, "", logger)
	llmService := core.NewLLMService(
		config.AppConfig.OpenAIAPIKey,
		config.AppConfig.OpenAIBaseURL,
		config.AppConfig.ChatModel,
		logger,
	)

	chatService := core.NewChatService(
		dbStore,
		searchService,
		placesService,
		core.DefaultRankingConfig(),
		llmService,
		logger,
	)

	billing := core.NewStripeBilling(config.AppConfig.StripeSecretKey, logger)
	entitlement := core.NewEntitlementService(dbStore, billing, config.AppConfig.FreeMessagesPerDay, logger)
	wishlistService := core.NewWishlistService(dbStore, logger)

	apiHandler := api.NewAPIHandler(chatService, entitlement, wishlistService, dbStore, logger)
	router := api.NewRouter(apiHandler, logger)

	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // long enough for a full completion stream
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Could not listen", zap.String("addr", serverAddr), zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Give active streams time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting gracefully")
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level == "DEBUG" {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}
