package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/evn/dstracker/config"
	"github.com/evn/dstracker/db"
	"github.com/evn/dstracker/internal/routes"
	"github.com/evn/dstracker/internal/services/events"
	"github.com/evn/dstracker/internal/services/live"
	"github.com/evn/dstracker/internal/services/shift"
)

func main() {
	cfg := config.NewConfig()
	database := db.InitDB(cfg.DatabaseDSN)
	defer database.Close()

	redisClient := config.NewRedisClient(cfg)
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis unavailable, last positions will be read from Postgres: %v", err)
	}

	hub := live.NewHub()
	go hub.Run(ctx)

	var shiftEvents shift.Notifier
	if cfg.AMQPURL != "" {
		publisher, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("⚠️ RabbitMQ disabled: %v", err)
		} else {
			defer publisher.Close()
			shiftEvents = publisher
			log.Printf("✅ Shift events are published to exchange %q", cfg.AMQPExchange)
		}
	}

	router, engine := routes.Setup(cfg, database, redisClient, hub, shiftEvents)

	if err := routes.EnsureReportDirs(cfg.ReportsDir); err != nil {
		log.Fatalf("Failed to create report directory: %v", err)
	}

	if cfg.ShiftMaxHours > 0 {
		go routes.AutoEndShiftsLoop(ctx, engine, time.Duration(cfg.ShiftMaxHours)*time.Hour, time.Minute)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("❌ Shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Server starting on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}
