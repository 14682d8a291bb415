package memory

import (
	"time"

	"github.com/example/catalog-service/internal/domain"
)

// ExampleDevices returns the demo catalogue, stamped relative to now.
func ExampleDevices(now time.Time) []domain.Device {
	return []domain.Device{
		{
			ID:          "p-001",
			Name:        "Seeded Widget",
			PricePence:  1299,
			Description: "A seeded example device for local development.",
			UpdatedAt:   now.Add(-24 * time.Hour),
		},
		{
			ID:          "p-002",
			Name:        "Seeded Gadget",
			PricePence:  2599,
			Description: "Another seeded device to exercise list rendering.",
			UpdatedAt:   now,
		},
	}
}
