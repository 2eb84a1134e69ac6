package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telescreen-backend/internal/config"
	"telescreen-backend/internal/database"
	"telescreen-backend/internal/handlers"
	"telescreen-backend/internal/middleware"
	"telescreen-backend/internal/repository"
	"telescreen-backend/internal/router"
	"telescreen-backend/internal/services"
	"telescreen-backend/internal/signaling"
	"telescreen-backend/internal/worker"
	"telescreen-backend/internal/ws"
)

func main() {
	log.Println("🚀 Starting Telescreen Coordinator...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	accountRepo := repository.NewAccountRepo(pool)
	attendanceRepo := repository.NewAttendanceRepo(pool)
	alertRepo := repository.NewAlertRepo(pool)

	// ──── Initialize Realtime Hub & Signaling Relay ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	wsHub := ws.NewHub(redisClients.PubSub, jwtAuth)
	relay := signaling.NewRelay(wsHub)
	wsHub.SetRelay(relay)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	go wsHub.Run(hubCtx)
	log.Println("✓ WebSocket hub started")

	// ──── Initialize Services ────
	attendanceService := services.NewAttendanceService(accountRepo, attendanceRepo, wsHub, cfg.HeartbeatInterval)
	wsHub.SetHeartbeatSink(attendanceService)
	authService := services.NewAuthService(accountRepo, redisClients.Queue, jwtAuth)

	// ──── Step 5: Start Alert Dispatch Workers ────
	alertPool := worker.NewPool(redisClients.Queue, alertRepo, wsHub, cfg.AlertWorkers)
	alertPool.Start()
	log.Printf("✓ Alert dispatch pool started (%d goroutines)", cfg.AlertWorkers)

	// ──── Step 6: Start Presence Sweeper ────
	sweeper := services.NewPresenceSweeper(wsHub, cfg.HeartbeatInterval, cfg.PresenceSweep)
	sweeper.Start()
	log.Println("✓ Presence sweeper started")

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceService, attendanceRepo)
	alertHandler := handlers.NewAlertHandler(redisClients.Queue, alertRepo)
	presenceHandler := handlers.NewPresenceHandler(wsHub)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		attendanceHandler,
		alertHandler,
		presenceHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		alertPool.Stop()
		sweeper.Stop()
		hubCancel()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Telescreen Coordinator ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
