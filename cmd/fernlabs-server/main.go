/*-------------------------------------------------------------------------
 *
 * main.go
 *    Main entry point for the fernlabs API server
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/cmd/fernlabs-server/main.go
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/nmkridler/fernlabs-api/internal/api"
	"github.com/nmkridler/fernlabs-api/internal/config"
	"github.com/nmkridler/fernlabs-api/internal/db"
	"github.com/nmkridler/fernlabs-api/internal/llm"
	"github.com/nmkridler/fernlabs-api/internal/metrics"
	"github.com/nmkridler/fernlabs-api/internal/workflow"
)

var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	var (
		showVersion      = flag.Bool("version", false, "Show version information")
		showVersionShort = flag.Bool("v", false, "Show version information (short)")
		configPath       = flag.String("c", "", "Path to configuration file")
		configPathLong   = flag.String("config", "", "Path to configuration file")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "fernlabs API Server - plan workflow service\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    Start server with default configuration\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -c config.yaml     Start server with custom config file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nConfiguration can also come from FERNLABS_* environment variables\n")
		fmt.Fprintf(os.Stderr, "and CONFIG_PATH for the config file location.\n")
	}
	flag.Parse()

	if *showVersion || *showVersionShort {
		fmt.Printf("fernlabs-server version %s\n", version)
		fmt.Printf("Build date: %s\n", buildDate)
		fmt.Printf("Git commit: %s\n", gitCommit)
		os.Exit(0)
	}

	/* Config path: command line flag takes precedence over environment */
	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = *configPathLong
	}
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load config: %v\n", err)
		os.Exit(1)
	}

	metrics.InitLogging(cfg.Logging.Level, cfg.Logging.Format)

	database, err := db.NewDBWithRetry(cfg.Database.URL, db.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, cfg.Database.ConnectRetries, 2*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	queries := db.NewQueries(database)

	generator, err := llm.NewClient(llm.Config{
		Provider:    cfg.Model.Provider,
		Model:       cfg.Model.Name,
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.BaseURL,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize model client: %v\n", err)
		os.Exit(1)
	}

	orchestrator := workflow.New(queries, generator, cfg.Model.Name)
	handlers := api.NewHandlers(queries, orchestrator)

	router := mux.NewRouter()
	router.Use(api.RequestIDMiddleware)
	router.Use(api.CORSMiddleware)
	router.Use(api.LoggingMiddleware)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/projects/{project_id}", handlers.GetProject).Methods("GET")
	apiRouter.HandleFunc("/projects/{project_id}/workflow/run", handlers.RunWorkflow).Methods("POST")
	apiRouter.HandleFunc("/projects/{project_id}/workflow/resume", handlers.ResumeWorkflow).Methods("POST")
	apiRouter.HandleFunc("/projects/{project_id}/diagram", handlers.GetDiagram).Methods("GET")
	apiRouter.HandleFunc("/projects/{project_id}/plan/summary", handlers.GetPlanSummary).Methods("GET")
	apiRouter.HandleFunc("/projects/{project_id}/agent-calls/summary", handlers.GetAgentCallSummary).Methods("GET")
	apiRouter.HandleFunc("/projects/{project_id}/workflows", handlers.ListWorkflows).Methods("GET")
	apiRouter.HandleFunc("/workflows/{workflow_id}", handlers.GetWorkflow).Methods("GET")

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		metrics.InfoWithContext(context.Background(), "server starting", map[string]interface{}{
			"addr":    cfg.Server.Addr(),
			"version": version,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "FATAL: Server failed: %v\n", err)
			os.Exit(1)
		}
	}()

	/* Graceful shutdown on SIGINT/SIGTERM */
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
	}
	metrics.InfoWithContext(context.Background(), "server stopped", nil)
}
