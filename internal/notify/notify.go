// Package notify delivers booking lifecycle events to the notification
// collaborator. Delivery is best effort: callers log failures and move on.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/flightbook/internal/domain"
)

type Notifier interface {
	Notify(ctx context.Context, ev domain.BookingEvent) error
}

type publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// KafkaNotifier publishes events keyed by booking id, so events of one
// booking stay ordered.
type KafkaNotifier struct {
	producer publisher
}

func NewKafkaNotifier(p publisher) *KafkaNotifier {
	return &KafkaNotifier{producer: p}
}

func (n *KafkaNotifier) Notify(ctx context.Context, ev domain.BookingEvent) error {
	const op = "notify.KafkaNotifier.Notify"

	if err := n.producer.Publish(ctx, ev.BookingID.String(), ev); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

// LogNotifier writes events to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, ev domain.BookingEvent) error {
	n.logger.InfoContext(ctx, "booking event",
		slog.String("type", string(ev.Type)),
		slog.String("booking_id", ev.BookingID.String()),
		slog.String("status", string(ev.Status)),
	)
	return nil
}

func DecodeEvent(b []byte) (domain.BookingEvent, error) {
	var ev domain.BookingEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return domain.BookingEvent{}, fmt.Errorf("notify.DecodeEvent:%w", err)
	}
	if ev.Type == "" {
		return domain.BookingEvent{}, fmt.Errorf("notify.DecodeEvent: missing event type")
	}
	return ev, nil
}
