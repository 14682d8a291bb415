package domain

import (
	"math"
	"strings"
	"time"
)

// Device is a priced catalog item. Values carry no shared references, so a
// plain copy is independent of the original.
type Device struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PricePence  int64     `json:"pricePence"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Clone returns an independent copy of d.
func (d Device) Clone() Device {
	return Device{
		ID:          d.ID,
		Name:        d.Name,
		PricePence:  d.PricePence,
		Description: d.Description,
		UpdatedAt:   d.UpdatedAt,
	}
}

// DeviceParams is the raw input for NewDevice. PricePence is kept as a float so
// fractional minor units can be detected and rejected.
type DeviceParams struct {
	ID          string
	Name        string
	PricePence  float64
	Description string
	UpdatedAt   time.Time
}

// maxExactPence is the first float64 that no longer fits in an int64.
const maxExactPence = 1 << 63

// NewDevice validates p and builds a Device. Fields are checked in the order
// id, name, pricePence, description, updatedAt and the first violation is
// returned as a *ValidationError.
func NewDevice(p DeviceParams) (Device, error) {
	if blank(p.ID) {
		return Device{}, invalid(FieldID, "Device id must be a non-empty string.")
	}
	if blank(p.Name) {
		return Device{}, invalid(FieldName, "Device name must be a non-empty string.")
	}
	if !wholePence(p.PricePence) {
		return Device{}, invalid(FieldPricePence, "Device pricePence must be a non-negative integer.")
	}
	if blank(p.Description) {
		return Device{}, invalid(FieldDescription, "Device description must be a non-empty string.")
	}
	if p.UpdatedAt.IsZero() {
		return Device{}, invalid(FieldUpdatedAt, "updatedAt must be a valid timestamp.")
	}
	return Device{
		ID:          p.ID,
		Name:        p.Name,
		PricePence:  int64(p.PricePence),
		Description: p.Description,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

// ParseTimestamp parses an RFC 3339 timestamp. Malformed input yields the
// zero time, which NewDevice rejects.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func wholePence(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= 0 && v == math.Trunc(v) && v < maxExactPence
}
