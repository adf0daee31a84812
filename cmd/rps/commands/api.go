package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chilam/strongpool/internal/api"
	"github.com/chilam/strongpool/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the read-only signal API server",
	Long: `Starts the HTTP server that serves the persisted signal pool.

Endpoints:
  GET /health                  - Health check
  GET /api/signals             - List strategies
  GET /api/signals/{strategy}  - Current pool for one strategy

Example:
  go run ./cmd/rps api
  go run ./cmd/rps api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: PORT from env)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== strongpool API server ===")

	// 1. Wire shared dependencies.
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// 2. One store per strategy; the API only ever reads them.
	stores, err := a.stores(context.Background())
	if err != nil {
		return err
	}

	// 3. Build router and server.
	signalHandler := handlers.NewSignalHandler(stores, a.log)
	router := api.NewRouter(signalHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	// 4. Start with graceful shutdown.
	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.WithField("port", a.cfg.Port).Info("API server started")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
