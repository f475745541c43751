package memory

import (
	"fmt"
	"os"
	"time"

	"github.com/kirinyoku/flightbook/internal/domain"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Flights []seedFlight `yaml:"flights"`
}

type seedFlight struct {
	ID          int64               `yaml:"id"`
	Number      string              `yaml:"number"`
	Origin      string              `yaml:"origin"`
	Destination string              `yaml:"destination"`
	DepartureAt time.Time           `yaml:"departure_at"`
	ArrivalAt   time.Time           `yaml:"arrival_at"`
	Status      domain.FlightStatus `yaml:"status"`
	Classes     []seedClass         `yaml:"classes"`
}

type seedClass struct {
	Class      domain.SeatClass `yaml:"class"`
	PriceCents int64            `yaml:"price_cents"`
	Capacity   int              `yaml:"capacity"`
	Available  *int             `yaml:"available"`
}

// LoadSeed reads flights from a YAML file into the store. Classes without an
// explicit available count start with every seat free.
func (s *Store) LoadSeed(path string) (int, error) {
	const op = "memory.Store.LoadSeed"

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	for _, f := range sf.Flights {
		if f.ID == 0 || f.Number == "" {
			return 0, fmt.Errorf("%s: flight needs id and number", op)
		}

		flight := domain.Flight{
			ID:          f.ID,
			Number:      f.Number,
			Origin:      f.Origin,
			Destination: f.Destination,
			DepartureAt: f.DepartureAt,
			ArrivalAt:   f.ArrivalAt,
			Status:      f.Status,
		}
		if flight.Status == "" {
			flight.Status = domain.FlightScheduled
		}

		for _, c := range f.Classes {
			if _, ok := domain.ParseSeatClass(string(c.Class)); !ok {
				return 0, fmt.Errorf("%s: flight %d: unknown seat class %q", op, f.ID, c.Class)
			}
			available := c.Capacity
			if c.Available != nil {
				available = *c.Available
			}
			if available < 0 || available > c.Capacity {
				return 0, fmt.Errorf("%s: flight %d: available out of range", op, f.ID)
			}
			flight.Classes = append(flight.Classes, domain.ClassInventory{
				Class:      c.Class,
				PriceCents: c.PriceCents,
				Capacity:   c.Capacity,
				Available:  available,
			})
		}

		s.AddFlight(flight)
	}

	return len(sf.Flights), nil
}
