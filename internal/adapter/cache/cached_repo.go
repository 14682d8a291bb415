package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/example/catalog-service/internal/domain"
)

// CachedDeviceRepo — read-through кэш перед любым DeviceRepository.
// Backend остаётся источником истины: List всегда читает его, GetByID
// сначала смотрит в кэш.
//
// Чтение заполняет кэш, только если за время обращения к backend не
// начиналась ни одна запись (gen не изменился, pending == 0).
type CachedDeviceRepo struct {
	backend domain.DeviceRepository
	items   *gocache.Cache

	mu      sync.Mutex
	gen     uint64
	pending int
}

// NewCachedDeviceRepo caches entries for ttl; ttl <= 0 keeps them until
// they are replaced or deleted.
func NewCachedDeviceRepo(backend domain.DeviceRepository, ttl time.Duration) *CachedDeviceRepo {
	items := gocache.New(gocache.NoExpiration, 0)
	if ttl > 0 {
		items = gocache.New(ttl, 2*ttl)
	}
	return &CachedDeviceRepo{backend: backend, items: items}
}

// List reads the backend and leaves the cache alone.
func (c *CachedDeviceRepo) List(ctx context.Context) ([]domain.Device, error) {
	return c.backend.List(ctx)
}

func (c *CachedDeviceRepo) GetByID(ctx context.Context, id string) (domain.Device, bool, error) {
	if v, ok := c.items.Get(id); ok {
		return v.(domain.Device).Clone(), true, nil
	}
	gen, quiet := c.snapshot()
	d, ok, err := c.backend.GetByID(ctx, id)
	if err != nil || !ok {
		return domain.Device{}, ok, err
	}
	if quiet {
		c.fill(gen, d)
	}
	return d, true, nil
}

func (c *CachedDeviceRepo) Save(ctx context.Context, d domain.Device) (domain.Device, error) {
	gen := c.beginWrite(d.ID)
	saved, err := c.backend.Save(ctx, d)
	if err != nil {
		c.endWrite(gen, d.ID, nil)
		return domain.Device{}, err
	}
	c.endWrite(gen, saved.ID, &saved)
	return saved, nil
}

func (c *CachedDeviceRepo) Delete(ctx context.Context, id string) error {
	gen := c.beginWrite(id)
	err := c.backend.Delete(ctx, id)
	c.endWrite(gen, id, nil)
	return err
}

// Warm — загрузить все устройства из backend в кэш при старте. Возвращает
// число закэшированных записей: 0, если параллельная запись обесценила снимок.
func (c *CachedDeviceRepo) Warm(ctx context.Context) (int, error) {
	gen, quiet := c.snapshot()
	devices, err := c.backend.List(ctx)
	if err != nil {
		return 0, err
	}
	if !quiet {
		return 0, nil
	}
	return c.fill(gen, devices...), nil
}

// Len reports the number of cached entries, expired ones included until the
// janitor runs.
func (c *CachedDeviceRepo) Len() int {
	return c.items.ItemCount()
}

func (c *CachedDeviceRepo) snapshot() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, c.pending == 0
}

// fill stores devices unless a write started after gen was taken.
func (c *CachedDeviceRepo) fill(gen uint64, devices ...domain.Device) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.pending != 0 {
		return 0
	}
	for _, d := range devices {
		c.items.SetDefault(d.ID, d.Clone())
	}
	return len(devices)
}

func (c *CachedDeviceRepo) beginWrite(id string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.pending++
	c.items.Delete(id)
	return c.gen
}

// endWrite caches saved only when this write was the last to start and no
// other write is in flight; otherwise the backend order is unknown and the
// entry is dropped.
func (c *CachedDeviceRepo) endWrite(gen uint64, id string, saved *domain.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if saved != nil && c.pending == 0 && c.gen == gen {
		c.items.SetDefault(id, saved.Clone())
		return
	}
	c.items.Delete(id)
}

var _ domain.DeviceRepository = (*CachedDeviceRepo)(nil)
