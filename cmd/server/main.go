package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tdquang/car-escrow/internal/adapter/handler"
	"github.com/tdquang/car-escrow/internal/adapter/ledger"
	"github.com/tdquang/car-escrow/internal/adapter/mq"
	"github.com/tdquang/car-escrow/internal/adapter/storage"
	"github.com/tdquang/car-escrow/internal/config"
	"github.com/tdquang/car-escrow/internal/core/domain"
	"github.com/tdquang/car-escrow/internal/core/event"
	"github.com/tdquang/car-escrow/internal/core/service"
	"github.com/tdquang/car-escrow/internal/port"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core: ledger, emitter, engine
	accounts := ledger.NewMemory()
	emitter := event.NewEmitter(cfg.EventBuffer)
	escrow := service.NewEscrowService(accounts, emitter, nil)

	// Optional sinks
	var sinks []port.EventSink
	var closers []func()

	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping mysql: %v", err)
		}

		journal := storage.NewMySQLJournal(db)
		if err := journal.InitSchema(ctx); err != nil {
			log.Fatalf("failed to init journal schema: %v", err)
		}
		sinks = append(sinks, journal)
		closers = append(closers, func() { db.Close() })
		log.Println("event journal: mysql")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		sinks = append(sinks, storage.NewRedisMirror(rdb))
		closers = append(closers, func() { rdb.Close() })
		log.Println("availability mirror: redis")
	}

	if cfg.AMQPURL != "" {
		pub, err := mq.NewEventPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("failed to connect rabbitmq: %v", err)
		}
		sinks = append(sinks, pub)
		closers = append(closers, func() { pub.Close() })
		log.Printf("event publisher: amqp exchange %s", cfg.AMQPExchange)
	}

	// Sink worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.SinkWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sinkLoop(id, emitter.Events(), sinks)
		}(i)
	}
	log.Printf("started %d sink workers", cfg.SinkWorkers)

	// HTTP server
	httpHandler := handler.NewHTTPHandler(escrow)
	mux := http.NewServeMux()
	httpHandler.Register(mux)
	mux.HandleFunc("/api/faucet", faucetHandler(accounts))

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	// Close event delivery and wait for workers to drain
	emitter.Close()
	wg.Wait()
	log.Println("sink workers stopped")

	for _, c := range closers {
		c()
	}
	log.Println("connections closed")
}

// sinkLoop delivers each event to every sink. Sinks dedupe on event ID, so
// a failed delivery is only logged; the journal's Log() snapshot can be
// replayed to catch a sink up.
func sinkLoop(id int, events <-chan domain.Event, sinks []port.EventSink) {
	for ev := range events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		for _, sink := range sinks {
			if err := sink.Deliver(ctx, ev); err != nil {
				log.Printf("worker %d: failed to deliver event %s (%s): %v", id, ev.ID, ev.Type, err)
			}
		}

		cancel()
	}
}

// faucetHandler funds accounts on the in-memory ledger. Dev convenience:
// the engine rejects bookings the renter cannot pay for.
func faucetHandler(accounts *ledger.Memory) http.HandlerFunc {
	type faucetRequest struct {
		Account string       `json:"account"`
		Amount  domain.Money `json:"amount"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req faucetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := accounts.Credit(r.Context(), domain.Account(req.Account), req.Amount); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"account": req.Account,
			"balance": accounts.Balance(domain.Account(req.Account)),
		})
	}
}
