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

	"github.com/example/clothing-shop/internal/api"
	"github.com/example/clothing-shop/internal/auth"
	"github.com/example/clothing-shop/internal/command"
	"github.com/example/clothing-shop/internal/config"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/infrastructure/kafka"
	"github.com/example/clothing-shop/internal/infrastructure/store"
	"github.com/example/clothing-shop/internal/logger"
	"github.com/example/clothing-shop/internal/query"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[API] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	log = log.With(zap.String("service", "api"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting clothing shop API",
		zap.String("addr", cfg.HTTPAddr),
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.Bool("strict_transitions", cfg.OrderStrictTransitions))

	st, err := store.ConnectPostgres(ctx, store.PostgresConfig{
		URL:              cfg.DatabaseURL,
		MaxOpenConns:     cfg.DBMaxOpenConns,
		StatementTimeout: cfg.DBStatementTimeout,
	}, log)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info("connected to PostgreSQL")

	if cfg.AutoMigrate {
		if err := store.MigrateUp(st.DB(), log); err != nil {
			return err
		}
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	defer producer.Close()

	cmdHandler := command.NewHandler(st, producer, log,
		command.WithStrictTransitions(cfg.OrderStrictTransitions),
		command.WithCodeSource(order.NewCodeGenerator(cfg.OrderCodePrefix, cfg.OrderCodeDigits, cfg.OrderLocation)),
		command.WithMaxCodeAttempts(cfg.OrderCodeMaxAttempts),
		command.WithReservationTTL(cfg.ReservationTTL),
	)
	// Let in-flight notifications finish before the producer closes.
	defer cmdHandler.Wait()

	queryHandler := query.NewHandler(st, log, query.WithLowStockThreshold(cfg.LowStockThreshold))

	jwtService := auth.NewJWTService(cfg.JWTSecret, 15*time.Minute)
	router := api.NewRouter(api.NewHandlers(cmdHandler, queryHandler, st), jwtService, log)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}
