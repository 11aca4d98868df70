package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/clothing-shop/internal/config"
	"github.com/example/clothing-shop/internal/infrastructure/kafka"
	"github.com/example/clothing-shop/internal/logger"
	"github.com/example/clothing-shop/internal/notification"
	"github.com/example/clothing-shop/internal/telegram"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[Notifier] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	log = log.With(zap.String("service", "notifier"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID)
	if !client.Configured() {
		log.Warn("telegram bot token or chat id missing, order alerts will be skipped")
	}
	handler := notification.NewHandler(client, cfg.AdminBaseURL, log)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, log)
	defer consumer.Close()

	log.Info("order notifier started",
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID))

	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		return fmt.Errorf("consumer error: %w", err)
	}

	log.Info("shutting down")
	return nil
}
