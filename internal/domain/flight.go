package domain

import "time"

type SeatClass string

const (
	SeatClassEconomy SeatClass = "economy"
	SeatClassFirst   SeatClass = "firstClass"
)

// SeatClasses lists every supported fare category.
var SeatClasses = []SeatClass{SeatClassEconomy, SeatClassFirst}

func ParseSeatClass(s string) (SeatClass, bool) {
	for _, c := range SeatClasses {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

type FlightStatus string

const (
	FlightScheduled FlightStatus = "scheduled"
	FlightCancelled FlightStatus = "cancelled"
	FlightCompleted FlightStatus = "completed"
)

func ParseFlightStatus(s string) (FlightStatus, bool) {
	switch FlightStatus(s) {
	case FlightScheduled, FlightCancelled, FlightCompleted:
		return FlightStatus(s), true
	}
	return "", false
}

// ClassInventory is the per-class price and seat counters of a flight.
// Available is the only field the booking core mutates.
type ClassInventory struct {
	Class      SeatClass `json:"class"`
	PriceCents int64     `json:"price_cents"`
	Capacity   int       `json:"capacity"`
	Available  int       `json:"available"`
}

type Flight struct {
	ID          int64            `json:"id"`
	Number      string           `json:"number"`
	Origin      string           `json:"origin"`
	Destination string           `json:"destination"`
	DepartureAt time.Time        `json:"departure_at"`
	ArrivalAt   time.Time        `json:"arrival_at"`
	Status      FlightStatus     `json:"status"`
	Classes     []ClassInventory `json:"classes"`
}

func (f *Flight) Class(c SeatClass) (ClassInventory, bool) {
	for _, ci := range f.Classes {
		if ci.Class == c {
			return ci, true
		}
	}
	return ClassInventory{}, false
}

// Bookable reports whether new seats may be claimed on the flight at now.
func (f *Flight) Bookable(now time.Time) bool {
	return f.Status == FlightScheduled && f.DepartureAt.After(now)
}

type FlightFilter struct {
	Status FlightStatus
	Limit  int
	Offset int
}

type FlightAvailability struct {
	FlightID int64            `json:"flight_id"`
	Classes  []ClassInventory `json:"classes"`
}
