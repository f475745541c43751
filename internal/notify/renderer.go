package notify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// TicketRenderer turns booking events into boarding-pass QR images in a
// directory that the delivery channel (mail, push) picks up from.
type TicketRenderer struct {
	dir    string
	logger *slog.Logger
}

func NewTicketRenderer(dir string, logger *slog.Logger) (*TicketRenderer, error) {
	const op = "notify.NewTicketRenderer"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &TicketRenderer{dir: dir, logger: logger}, nil
}

// Handle renders a QR per ticket for created and confirmed bookings and
// withdraws them when the booking is cancelled or expired.
func (r *TicketRenderer) Handle(ctx context.Context, ev domain.BookingEvent) error {
	const op = "notify.TicketRenderer.Handle"

	switch ev.Type {
	case domain.EventBookingCreated, domain.EventBookingConfirmed:
		for _, l := range ev.Legs {
			png, err := qrcode.Encode(qrPayload(ev, l), qrcode.Medium, qrSize)
			if err != nil {
				return fmt.Errorf("%s: encode %s: %w", op, l.TicketNumber, err)
			}
			if err := os.WriteFile(r.Path(l.TicketNumber), png, 0o644); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
		}
	case domain.EventBookingCancelled, domain.EventBookingExpired:
		for _, l := range ev.Legs {
			if err := os.Remove(r.Path(l.TicketNumber)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%s:%w", op, err)
			}
		}
	default:
		r.logger.WarnContext(ctx, "unknown booking event type", slog.String("type", string(ev.Type)))
		return nil
	}

	r.logger.InfoContext(ctx, "tickets processed",
		slog.String("type", string(ev.Type)),
		slog.String("booking_id", ev.BookingID.String()),
		slog.Int("legs", len(ev.Legs)),
	)

	return nil
}

func (r *TicketRenderer) Path(ticketNumber string) string {
	return filepath.Join(r.dir, filepath.Base(ticketNumber)+".png")
}

func qrPayload(ev domain.BookingEvent, l domain.Leg) string {
	return fmt.Sprintf("%s|%s|%d|%s|%s|%d",
		l.TicketNumber, ev.BookingID, l.FlightID, l.Direction, ev.SeatClass, ev.Passengers)
}
