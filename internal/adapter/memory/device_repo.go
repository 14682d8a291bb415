// Package memory holds the in-memory reference DeviceRepository. It is the
// default backend and the behavioural yardstick for every other backend.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/example/catalog-service/internal/domain"
)

// DeviceRepo keeps devices in a map guarded by an RWMutex. List preserves
// insertion order; replacing a device keeps its original position.
type DeviceRepo struct {
	mu    sync.RWMutex
	store map[string]domain.Device
	order []string
}

// NewDeviceRepo copies every seed value in; later seeds win on duplicate ids.
func NewDeviceRepo(seed ...domain.Device) *DeviceRepo {
	r := &DeviceRepo{store: make(map[string]domain.Device, len(seed))}
	for _, d := range seed {
		r.put(d)
	}
	return r
}

func (r *DeviceRepo) List(_ context.Context) ([]domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.store[id].Clone())
	}
	return out, nil
}

func (r *DeviceRepo) GetByID(_ context.Context, id string) (domain.Device, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.store[id]
	if !ok {
		return domain.Device{}, false, nil
	}
	return d.Clone(), true, nil
}

func (r *DeviceRepo) Save(_ context.Context, d domain.Device) (domain.Device, error) {
	r.mu.Lock()
	r.put(d)
	r.mu.Unlock()
	return d.Clone(), nil
}

func (r *DeviceRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return nil
	}
	delete(r.store, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return nil
}

// Len reports the number of stored devices.
func (r *DeviceRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store)
}

// put must be called with mu held for writing.
func (r *DeviceRepo) put(d domain.Device) {
	if _, exists := r.store[d.ID]; !exists {
		r.order = append(r.order, d.ID)
	}
	r.store[d.ID] = d.Clone()
}

var _ domain.DeviceRepository = (*DeviceRepo)(nil)
