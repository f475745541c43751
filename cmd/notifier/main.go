// Command notifier consumes booking events and renders QR ticket images for
// every leg of a booking, removing them again when the booking is cancelled
// or expires.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirinyoku/flightbook/internal/app"
	"github.com/kirinyoku/flightbook/internal/config"
	"github.com/kirinyoku/flightbook/internal/kafka"
	"github.com/kirinyoku/flightbook/internal/notify"
	kafkago "github.com/segmentio/kafka-go"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := app.NewLogger(os.Stdout, cfg.Log)

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Error("KAFKA_BROKERS is required for the notifier")
		os.Exit(1)
	}

	renderer, err := notify.NewTicketRenderer(cfg.Notifier.OutputDir, logger)
	if err != nil {
		logger.Error("failed to create ticket renderer", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic)
	defer consumer.Close()

	logger.Info("notifier consuming",
		slog.Any("brokers", cfg.Kafka.Brokers),
		slog.String("topic", cfg.Kafka.Topic),
		slog.String("group", cfg.Kafka.GroupID),
	)

	err = consumer.Consume(ctx, func(ctx context.Context, msg kafkago.Message) error {
		ev, err := notify.DecodeEvent(msg.Value)
		if err != nil {
			// Poison messages are skipped so the partition keeps moving.
			logger.Warn("skipping undecodable event",
				slog.Int64("offset", msg.Offset),
				slog.Any("error", err),
			)
			return nil
		}
		return renderer.Handle(ctx, ev)
	})
	if err != nil {
		logger.Error("notifier stopped", "error", err)
		os.Exit(1)
	}
}
