package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridianpay/ledger-backend/internal/config"
	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/meridianpay/ledger-backend/internal/export"
	"github.com/meridianpay/ledger-backend/internal/idempotency"
	"github.com/meridianpay/ledger-backend/internal/ledger"
	"github.com/meridianpay/ledger-backend/internal/notify"
	"github.com/meridianpay/ledger-backend/internal/push"
	"github.com/meridianpay/ledger-backend/internal/repository/postgres"
	"github.com/meridianpay/ledger-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping redis")
	}
	log.Info().Msg("Connected to redis")

	// Initialize repositories
	loanRepo := postgres.NewLoanRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	refStore := idempotency.NewRedisStore(redisClient, "", cfg.PaymentRefTTL)

	// Initialize the ledger engine
	engine := ledger.NewEngine(ledger.Config{
		LargePaymentThreshold:   cfg.Ledger.LargePaymentThreshold,
		AllowPartialTargeted:    cfg.Ledger.AllowPartialTargeted,
		CarryUnallocatedForward: cfg.Ledger.CarryUnallocatedForward,
		DueDateMode:             ledger.DueDateMode(cfg.Ledger.DueDateMode),
	})

	// Initialize push hub and notification dispatchers
	hub := push.NewHub()
	dispatcher := notify.Fanout{
		notify.NewLogDispatcher(log.Logger),
		notify.NewHubDispatcher(hub, log.Logger),
	}

	// Initialize services
	ledgerService := service.NewLedgerService(loanRepo, auditRepo, refStore, engine, dispatcher, log.Logger)

	// Start the overdue sweep worker
	worker := service.NewOverdueWorker(loanRepo, engine, log.Logger, service.OverdueWorkerConfig{
		Interval: cfg.SweepInterval,
	})
	workerCtx, workerCancel := context.WithCancel(context.Background())
	worker.Start(workerCtx)

	// HTTP surface: health check, borrower push stream, statement export
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("GET /ws/{borrower_id}", func(w http.ResponseWriter, r *http.Request) {
		borrowerID, err := uuid.Parse(r.PathValue("borrower_id"))
		if err != nil {
			http.Error(w, "invalid borrower id", http.StatusBadRequest)
			return
		}
		if err := hub.Attach(w, r, borrowerID); err != nil {
			log.Error().Err(err).Msg("Failed to attach push subscriber")
		}
	})
	mux.HandleFunc("GET /loans/{loan_id}/statement", func(w http.ResponseWriter, r *http.Request) {
		loanID, err := uuid.Parse(r.PathValue("loan_id"))
		if err != nil {
			http.Error(w, "invalid loan id", http.StatusBadRequest)
			return
		}
		loan, err := ledgerService.GetLoan(r.Context(), loanID)
		if err != nil {
			if errors.Is(err, domain.ErrLoanNotFound) {
				http.Error(w, "loan not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=statement-%s.xlsx", loan.ID))
		if err := export.WriteStatement(loan, w); err != nil {
			log.Error().Err(err).Msg("Failed to write statement")
		}
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	workerCancel()
	worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
