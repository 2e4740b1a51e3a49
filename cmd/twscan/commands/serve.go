package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yucheng-lin/twscan/internal/api"
	"github.com/yucheng-lin/twscan/internal/api/handlers"
	"github.com/yucheng-lin/twscan/internal/scheduler"
	"github.com/yucheng-lin/twscan/pkg/config"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scanner daemon",
	Long: `Starts the scan scheduler and the HTTP API.

This command:
- schedules scan cycles on the configured cron expression
- serves manual trigger and status endpoints

Endpoints:
  GET  /health      - Health check
  POST /api/scan    - Trigger a scan cycle now
  GET  /api/status  - Recent cycle history

Example:
  go run ./cmd/twscan serve
  go run ./cmd/twscan serve --port 8090`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
		"cron": cfg.Scan.CronSpec,
	}).Info("Initializing scanner daemon")

	pipeline, st, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	sched := scheduler.New(log, cfg.Location())
	if err := sched.AddJob(scheduler.NewScanJob(pipeline, cfg.Scan.CronSpec)); err != nil {
		return fmt.Errorf("register scan job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	scanHandler := handlers.NewScanHandler(pipeline, st, cfg.TriggerToken, log)
	router := api.NewRouter(scanHandler, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("Scanner daemon started")
	fmt.Printf("Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
