package domain

type ClassRevenue struct {
	Bookings     int64 `json:"bookings"`
	Passengers   int64 `json:"passengers"`
	RevenueCents int64 `json:"revenue_cents"`
}

// RevenueReport aggregates confirmed bookings created in one calendar month.
type RevenueReport struct {
	Year                     int                        `json:"year"`
	Month                    int                        `json:"month"`
	TotalRevenueCents        int64                      `json:"total_revenue_cents"`
	TotalBookings            int64                      `json:"total_bookings"`
	TotalPassengers          int64                      `json:"total_passengers"`
	ByClass                  map[SeatClass]ClassRevenue `json:"by_class"`
	AverageRevenuePerBooking int64                      `json:"average_revenue_per_booking_cents"`
	NumberOfFlights          int64                      `json:"number_of_flights"`
}

// Finalize fills derived fields once the totals are known.
func (r *RevenueReport) Finalize() {
	if r.ByClass == nil {
		r.ByClass = map[SeatClass]ClassRevenue{}
	}
	for _, c := range SeatClasses {
		if _, ok := r.ByClass[c]; !ok {
			r.ByClass[c] = ClassRevenue{}
		}
	}
	if r.TotalBookings > 0 {
		r.AverageRevenuePerBooking = r.TotalRevenueCents / r.TotalBookings
	}
}
