// Package main is the entry point for the taskrunner server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ajithabhiram/Kaiburr-task2/internal/config"
	"github.com/ajithabhiram/Kaiburr-task2/internal/executor"
	"github.com/ajithabhiram/Kaiburr-task2/internal/logger"
	"github.com/ajithabhiram/Kaiburr-task2/internal/observability"
	"github.com/ajithabhiram/Kaiburr-task2/internal/sandbox"
	"github.com/ajithabhiram/Kaiburr-task2/internal/server"
	"github.com/ajithabhiram/Kaiburr-task2/internal/store/postgres"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: taskrunner.yaml in current directory)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.New(cfg.Logging.Level)

	// Setup Database
	ctx := context.Background()
	store, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer store.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(store.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "taskrunner", cfg.Observability.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	if err := observability.RegisterTaskCount(store.CountTasks); err != nil {
		log.Printf("Failed to register task count metric: %v", err)
	}

	// Sandbox drivers. A missing cluster is not fatal: executions fall
	// back to local processes until the cluster comes back.
	var cluster sandbox.Driver
	kube, err := sandbox.NewKubernetesDriver(sandbox.KubernetesConfig{
		Namespace:      cfg.Sandbox.Namespace,
		Image:          cfg.Sandbox.Image,
		ServiceAccount: cfg.Sandbox.ServiceAccount,
		CPULimit:       cfg.Sandbox.CPULimit,
		MemoryLimit:    cfg.Sandbox.MemoryLimit,
	}, appLog)
	if err != nil {
		log.Printf("Cluster driver unavailable: %v", err)
	} else {
		cluster = kube
	}

	var fallback sandbox.Driver
	if cfg.Sandbox.FallbackEnabled {
		fallback = sandbox.NewProcessDriver(appLog)
	}

	if cluster == nil && fallback == nil {
		log.Printf("No sandbox driver configured; execution requests will fail")
	}

	watcher := &sandbox.Watcher{
		Timeout: cfg.Sandbox.Timeout,
		Logger:  appLog,
	}

	exec := executor.New(store, cluster, fallback, watcher, appLog)

	// Start Server
	addr := cfg.Addr()
	srv := server.New(server.Config{
		Addr:         addr,
		ExecuteRate:  cfg.Server.ExecuteRate,
		ExecuteBurst: cfg.Server.ExecuteBurst,
	}, store, exec, metricsHandler, appLog)

	go func() {
		log.Printf("Taskrunner server starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited properly")
}
