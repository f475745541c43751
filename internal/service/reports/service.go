package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
)

var (
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid request")
)

type Service struct {
	reports repository.ReportRepository
}

func New(store repository.Store) *Service {
	return &Service{reports: store.Reports()}
}

// MonthlyRevenue aggregates confirmed bookings created in the given UTC
// calendar month.
//
// Parameters:
//   - ctx: request-scoped context.
//   - p: acting principal, must be an admin.
//   - year, month: the calendar month, month in 1..12.
//
// Returns:
//   - *domain.RevenueReport: totals, per-class breakdown and flight count.
//   - error: reports.ErrForbidden or reports.ErrInvalidRequest.
func (s *Service) MonthlyRevenue(ctx context.Context, p domain.Principal, year, month int) (*domain.RevenueReport, error) {
	const op = "service.reports.MonthlyRevenue"

	if !p.IsAdmin() {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%s: %w: month must be 1..12, got %d", op, ErrInvalidRequest, month)
	}

	if year < 1970 || year > 9999 {
		return nil, fmt.Errorf("%s: %w: year out of range: %d", op, ErrInvalidRequest, year)
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	r, err := s.reports.MonthlyRevenue(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.Year = year
	r.Month = month
	r.Finalize()

	return r, nil
}
