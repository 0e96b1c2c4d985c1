package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mtglib/server/internal/api"
	"github.com/mtglib/server/internal/database"
	"github.com/mtglib/server/internal/library"
	"github.com/mtglib/server/internal/metrics"
	"github.com/mtglib/server/internal/services"
)

func main() {
	// Database path
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./mtg_library.db"
	}

	// Initialize persistence and load the ledger once at startup
	store, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	ledger, err := library.NewLedger(store)
	if err != nil {
		log.Fatalf("Failed to load library: %v", err)
	}
	stats := ledger.Stats()
	metrics.UpdateLibraryGauges(stats)
	log.Printf("Loaded library: %d entries, %d cards, $%.2f", stats.Entries, stats.TotalCards, stats.TotalValue)

	// Initialize services
	scryfall := services.NewScryfallClient()

	// Setup router
	router := api.SetupRouter(scryfall, ledger)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
