package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/curvelab/yieldstress/internal/api"
	"github.com/curvelab/yieldstress/internal/api/handlers"
	"github.com/curvelab/yieldstress/internal/scheduler"
	"github.com/curvelab/yieldstress/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health               - Health check
  POST /api/analyze          - Run the PCA stress analysis
  GET  /api/analyze/export   - Download analysis results as CSV
  GET  /api/curve/latest     - Latest published yield curve
  GET  /api/curve/history    - Yield curve history for a period
  GET  /api/ws               - WebSocket refresh notifications

Example:
  go run ./cmd/yieldstress api
  go run ./cmd/yieldstress api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	deps, closeAll, err := buildComponents()
	if err != nil {
		return err
	}
	defer closeAll()

	if apiPort != "" {
		deps.cfg.Port = apiPort
	}
	log := deps.logger

	hub := api.NewHub(log)
	analysisHandler := handlers.NewAnalysisHandler(deps.service, deps.exporter, log)
	curveHandler := handlers.NewCurveHandler(deps.provider, log)

	router := api.NewRouter(analysisHandler, curveHandler, hub, log)
	server := api.New(deps.cfg, log, router)

	// The refresh schedule runs in-process so /api/ws subscribers hear
	// about new publications without a separate daemon.
	sched := scheduler.New(log)
	refresh := jobs.NewCurveRefreshJob(
		deps.ecb, deps.repo, deps.provider, hub, log, "")
	if err := sched.AddJob(refresh); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("Server running on http://localhost:%s\n", deps.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
