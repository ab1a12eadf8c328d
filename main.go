package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"

	"afterpay-payment-api/config"
	"afterpay-payment-api/database"
	"afterpay-payment-api/handlers"
	"afterpay-payment-api/middleware"
	"afterpay-payment-api/queue"
	"afterpay-payment-api/services/afterpay"
	"afterpay-payment-api/services/auth"
	"afterpay-payment-api/services/payment"
	"afterpay-payment-api/services/reconciliation"
	"afterpay-payment-api/services/settings"
	"afterpay-payment-api/session"
	"afterpay-payment-api/worker"
)

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile | log.Lmicroseconds | log.LUTC)

	numCPU := runtime.NumCPU()
	runtime.GOMAXPROCS(numCPU)
	log.Printf("Server starting with %d CPUs available", numCPU)

	cfg := config.Load()
	log.Printf("Configuration loaded successfully")

	var db *database.Connection
	var err error
	for retries := 0; retries < 5; retries++ {
		db, err = database.NewConnection(cfg.Database)
		if err == nil {
			break
		}
		retryDelay := time.Duration(retries+1) * time.Second
		log.Printf("Failed to connect to database (attempt %d/5): %v. Retrying in %v...",
			retries+1, err, retryDelay)
		time.Sleep(retryDelay)
	}
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.GetDB().PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Successfully connected to database")

	sessionStore, err := session.NewStore(cfg.Redis.URL, time.Duration(cfg.Session.MaxAge)*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to Redis for session storage: %v", err)
	}
	defer sessionStore.Close()

	jobQueue, err := queue.NewQueue(cfg.Redis.URL, "order_events")
	if err != nil {
		log.Fatalf("Failed to connect to Redis for the job queue: %v", err)
	}
	defer jobQueue.Close()
	log.Println("Successfully connected to Redis")

	settingsResolver := settings.NewResolver(db, cfg.AfterPay, cfg.Server.WebstoreID)
	providerClient := afterpay.NewClient(settingsResolver)
	statusMapper := payment.NewStatusMapper(db)
	orchestrator := payment.NewOrchestrator(sessionStore, db, providerClient, db, statusMapper)
	engine := reconciliation.NewEngine(db, db, providerClient, statusMapper)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, "afterpay-payment-api")

	workerConcurrency := cfg.Redis.WorkerConcurrency
	if workerConcurrency < 2 {
		workerConcurrency = 2
	} else if workerConcurrency > 8 {
		workerConcurrency = 8
	}
	reconciliationWorker := worker.NewWorker(jobQueue, engine)
	reconciliationWorker.Start(workerConcurrency)
	defer reconciliationWorker.Stop()
	log.Printf("Started reconciliation worker with %d threads", workerConcurrency)

	rateLimiter, err := middleware.NewRateLimiter(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to initialize rate limiter: %v", err)
	}
	defer rateLimiter.Close()

	checkoutHandler := handlers.NewCheckoutHandler(orchestrator, settingsResolver, sessionStore, cfg)
	settingsHandler := handlers.NewSettingsHandler(settingsResolver, jwtService, cfg.JWT.Secret)
	eventHandler := handlers.NewEventHandler(jobQueue)

	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.SecurityHeadersMiddleware)

	// Checkout flow, rate limited per client IP.
	checkout := router.PathPrefix("/payment/afterpay").Subrouter()
	checkout.Use(rateLimiter.RateLimitMiddleware())
	checkout.HandleFunc("/prepare", checkoutHandler.Prepare).Methods("POST", "OPTIONS")
	checkout.HandleFunc("/authorize", checkoutHandler.Authorize).Methods("POST", "OPTIONS")
	checkout.HandleFunc("/checkout", checkoutHandler.Confirmation).Methods("GET")
	checkout.HandleFunc("/financing-options", checkoutHandler.FinancingOptions).Methods("GET")
	checkout.HandleFunc("/financing-options", checkoutHandler.SelectFinancingOption).Methods("POST", "OPTIONS")
	checkout.HandleFunc("/contact", checkoutHandler.ConfirmReturn).Methods("GET")
	checkout.HandleFunc("/checkout-cancel/{mode}", checkoutHandler.Cancel).Methods("GET")
	checkout.HandleFunc("/error", checkoutHandler.ErrorPage).Methods("GET")
	checkout.HandleFunc("/execute", checkoutHandler.Execute).Methods("POST", "OPTIONS")
	checkout.HandleFunc("/availability", checkoutHandler.Availability).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/internal/generate-token", settingsHandler.GenerateToken).Methods("POST")

	// Merchant and host-shop endpoints behind bearer tokens.
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.HandleFunc("/settings", settingsHandler.Save).Methods("POST", "OPTIONS")
	protected.HandleFunc("/settings/{mode}", settingsHandler.List).Methods("GET")
	protected.HandleFunc("/settings/{mode}/{country:[0-9]+}", settingsHandler.Get).Methods("GET")
	protected.HandleFunc("/orders/{id:[0-9]+}/capture", eventHandler.Capture).Methods("POST")
	protected.HandleFunc("/orders/{id:[0-9]+}/void", eventHandler.Void).Methods("POST")
	protected.HandleFunc("/orders/{id:[0-9]+}/refund", eventHandler.Refund).Methods("POST")
	protected.HandleFunc("/jobs/failed", eventHandler.FailedJobs).Methods("GET")
	protected.HandleFunc("/jobs/{id}/retry", eventHandler.RetryJob).Methods("POST")

	startTime := time.Now()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		health := struct {
			Status    string `json:"status"`
			Time      string `json:"time"`
			Database  string `json:"database"`
			Redis     string `json:"redis"`
			Uptime    string `json:"uptime"`
			GoVersion string `json:"go_version"`
		}{
			Status:    "ok",
			Time:      time.Now().Format(time.RFC3339),
			Database:  "connected",
			Redis:     "connected",
			Uptime:    fmt.Sprintf("%v", time.Since(startTime)),
			GoVersion: runtime.Version(),
		}

		dbCtx, dbCancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer dbCancel()
		if err := db.GetDB().PingContext(dbCtx); err != nil {
			health.Status = "degraded"
			health.Database = "error"
		}

		redisCtx, redisCancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer redisCancel()
		if err := jobQueue.Client().Ping(redisCtx).Err(); err != nil {
			health.Status = "degraded"
			health.Redis = "error"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	}).Methods("GET")

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   45 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	<-stop
	log.Println("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Stopping reconciliation worker...")
	reconciliationWorker.Stop()

	time.Sleep(2 * time.Second)

	log.Println("Closing database connections...")
	db.Close()

	log.Println("Closing Redis connections...")
	sessionStore.Close()
	jobQueue.Close()

	log.Println("Server exited properly")
}
