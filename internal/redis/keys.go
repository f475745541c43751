package redisx

import "fmt"

const ns = "flightbook:v1"

func KeyFlight(flightID int64) string {
	return fmt.Sprintf("%s:flight:%d", ns, flightID)
}

func KeyFlightAvailability(flightID int64) string {
	return fmt.Sprintf("%s:flight:%d:availability", ns, flightID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemBooking(userID, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%s:%s", ns, userID, idemKey)
}

func ChannelFlightsChanged() string {
	return ns + ":flights:changed"
}
