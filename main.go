package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"runclub-strava-sync/internal/auth"
	"runclub-strava-sync/internal/config"
	"runclub-strava-sync/internal/database"
	"runclub-strava-sync/internal/handlers"
	"runclub-strava-sync/internal/metrics"
	"runclub-strava-sync/internal/middleware"
	"runclub-strava-sync/internal/strava"
	syncer "runclub-strava-sync/internal/sync"
	"runclub-strava-sync/internal/worker"
)

func main() {
	listSubscriptions := flag.Bool("list-strava-subscriptions", false, "List all Strava webhook subscriptions")
	deleteSubscription := flag.String("delete-strava-subscription", "", "Delete a Strava webhook subscription by ID")
	createSubscription := flag.Bool("create-strava-subscription", false, "Create a Strava webhook subscription")

	flag.Parse()

	if *listSubscriptions || *deleteSubscription != "" || *createSubscription {
		runCLI(*listSubscriptions, *deleteSubscription, *createSubscription)
		return
	}

	runServer()
}

func runCLI(listSubs bool, deleteSub string, createSub bool) {
	// Quiet structured logging for CLI use
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	client := strava.NewClient(cfg.StravaClientID, cfg.StravaClientSecret)

	switch {
	case listSubs:
		handleListSubscriptions(client)
	case deleteSub != "":
		handleDeleteSubscription(client, deleteSub)
	case createSub:
		handleCreateSubscription(client, cfg)
	}
}

func handleListSubscriptions(client *strava.Client) {
	subscriptions, err := client.ListSubscriptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to list subscriptions: %v\n", err)
		os.Exit(1)
	}

	if len(subscriptions) == 0 {
		fmt.Println("No active subscriptions found.")
		return
	}

	fmt.Printf("Found %d subscription(s):\n\n", len(subscriptions))
	for _, sub := range subscriptions {
		fmt.Printf("ID: %d\n", sub.ID)
		fmt.Printf("  Application ID: %d\n", sub.ApplicationID)
		fmt.Printf("  Callback URL: %s\n", sub.CallbackURL)
		fmt.Printf("  Created: %s\n", sub.CreatedAt)
		fmt.Printf("  Updated: %s\n", sub.UpdatedAt)
		fmt.Println()
	}
}

func handleDeleteSubscription(client *strava.Client, idStr string) {
	subscriptionID, err := strconv.Atoi(idStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid subscription ID: %s\n", idStr)
		os.Exit(1)
	}

	fmt.Printf("Deleting subscription %d...\n", subscriptionID)

	if err := client.DeleteSubscription(subscriptionID); err != nil {
		if httpErr, ok := err.(*strava.HTTPError); ok && httpErr.StatusCode == 404 {
			fmt.Fprintf(os.Stderr, "Error: Subscription %d not found\n", subscriptionID)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println("✓ Subscription deleted successfully!")
}

func handleCreateSubscription(client *strava.Client, cfg *config.Config) {
	callbackURL := cfg.PublicBaseURL + "/webhook/strava"
	if cfg.PublicBaseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: PUBLIC_BASE_URL must be set to build the callback URL")
		os.Exit(1)
	}

	fmt.Printf("Creating webhook subscription...\n")
	fmt.Printf("Callback URL: %s\n\n", callbackURL)

	subscription, err := client.CreateSubscription(callbackURL, cfg.StravaVerifyToken)
	if err != nil {
		if httpErr, ok := err.(*strava.HTTPError); ok {
			fmt.Fprintf(os.Stderr, "Error: Subscription creation failed (HTTP %d)\n", httpErr.StatusCode)
			fmt.Fprintf(os.Stderr, "Response: %s\n", httpErr.Body)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println("✓ Subscription created successfully!")
	fmt.Printf("  ID: %d\n", subscription.ID)
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting runclub-strava-sync server",
		"host", cfg.Host,
		"port", cfg.Port,
		"log_level", cfg.LogLevel)

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Init(); err != nil {
		logger.Error("Failed to initialize database schema", "error", err)
		os.Exit(1)
	}
	logger.Info("Database ready")

	stravaClient := strava.NewClient(cfg.StravaClientID, cfg.StravaClientSecret)
	identity := auth.NewIdentityResolver(cfg.IdentityJWTSecret, cfg.AllowUnverifiedJWT)
	if cfg.AllowUnverifiedJWT {
		logger.Warn("unverified JWT fallback is enabled; identity tokens that fail verification will be trusted")
	}
	stateSigner := auth.NewStateSigner(cfg.StateSecret)

	refresher := syncer.NewRefresher(stravaClient, db)
	activitySyncer := syncer.New(stravaClient, db, refresher)

	oauthHandler := handlers.NewOAuthHandler(identity, stateSigner, stravaClient, db, cfg)
	webhookHandler := handlers.NewWebhookHandler(db, db, activitySyncer, cfg)
	syncHandler := handlers.NewSyncHandler(identity, db, activitySyncer)
	statusHandler := handlers.NewStatusHandler(identity, db)
	notificationsHandler := handlers.NewNotificationsHandler(identity, db)

	mux := http.NewServeMux()

	mux.Handle("/api/strava/start", middleware.WrapHandler(metrics.EndpointOAuthStart, oauthHandler.HandleStart))
	mux.Handle("/api/strava/callback", middleware.WrapHandler(metrics.EndpointOAuthCallback, oauthHandler.HandleCallback))
	mux.Handle("/api/strava/sync", middleware.WrapHandler(metrics.EndpointSync, syncHandler.HandleSync))
	mux.Handle("/api/strava/status", middleware.WrapHandler(metrics.EndpointStatus, statusHandler.HandleStatus))

	mux.Handle("/webhook/strava", middleware.WrapMethods(metrics.EndpointWebhook, map[string]http.HandlerFunc{
		http.MethodGet:  webhookHandler.HandleVerification,
		http.MethodPost: webhookHandler.HandleEvent,
	}))

	mux.Handle("/api/notifications", middleware.WrapHandler(metrics.EndpointNotifications, notificationsHandler.ServeHTTP))

	mux.Handle("/health", middleware.WrapHandler(metrics.EndpointHealth, func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  35 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	if cfg.BackgroundSyncEnabled {
		backgroundWorker := worker.New(db, activitySyncer, cfg.BackgroundSyncInterval, cfg.BackgroundSyncWindow)
		go func() {
			if err := backgroundWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Background sync worker failed", "error", err)
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())

		metricsAddr := fmt.Sprintf("%s:%d", cfg.MetricsHost, cfg.MetricsPort)
		metricsServer = &http.Server{
			Addr:    metricsAddr,
			Handler: metricsMux,
		}

		go func() {
			logger.Info("Metrics server listening", "addr", metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")

	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", "error", err)
		}
	}

	logger.Info("Server stopped")
}
