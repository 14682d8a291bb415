// Package repotest checks a domain.DeviceRepository against the behaviour of
// the in-memory reference backend.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/catalog-service/internal/domain"
)

// Factory builds an empty backend holding the given seed devices.
type Factory func(t *testing.T, seed ...domain.Device) domain.DeviceRepository

// T0 and T1 are millisecond-aligned so every backend stores them exactly.
var (
	T0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	T1 = time.Date(2025, 1, 2, 12, 30, 15, 250_000_000, time.UTC)
)

// Device builds a valid device for tests.
func Device(id, name string, pence int64, at time.Time) domain.Device {
	return domain.Device{
		ID:          id,
		Name:        name,
		PricePence:  pence,
		Description: "desc " + id,
		UpdatedAt:   at,
	}
}

// AssertDevice compares field by field, timestamps by instant.
func AssertDevice(t *testing.T, want, got domain.Device) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID, "id")
	assert.Equal(t, want.Name, got.Name, "name")
	assert.Equal(t, want.PricePence, got.PricePence, "pricePence")
	assert.Equal(t, want.Description, got.Description, "description")
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt: want %s, got %s", want.UpdatedAt, got.UpdatedAt)
}

func ids(ds []domain.Device) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.ID)
	}
	return out
}

// Run executes the conformance suite against backends built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	t.Run("list on empty store is empty", func(t *testing.T) {
		repo := newRepo(t)
		got, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("list returns seeds in insertion order", func(t *testing.T) {
		repo := newRepo(t,
			Device("prod-1", "Device 1", 1000, T0),
			Device("prod-2", "Device 2", 2000, T1),
		)
		got, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		AssertDevice(t, Device("prod-1", "Device 1", 1000, T0), got[0])
		AssertDevice(t, Device("prod-2", "Device 2", 2000, T1), got[1])
	})

	t.Run("getById on unknown id is absent", func(t *testing.T) {
		repo := newRepo(t)
		_, ok, err := repo.GetByID(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("getById returns an independent copy", func(t *testing.T) {
		seed := Device("p1", "Device 1", 100, T0)
		repo := newRepo(t, seed)

		a, ok, err := repo.GetByID(ctx, "p1")
		require.NoError(t, err)
		require.True(t, ok)
		AssertDevice(t, seed, a)

		a.Name = "MUTATED"

		b, ok, err := repo.GetByID(ctx, "p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Device 1", b.Name)
	})

	t.Run("seed values are copied in", func(t *testing.T) {
		seed := []domain.Device{Device("p1", "Device 1", 100, T0)}
		repo := newRepo(t, seed...)

		seed[0].Name = "MUTATED"

		got, ok, err := repo.GetByID(ctx, "p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Device 1", got.Name)
	})

	t.Run("list returns independent copies", func(t *testing.T) {
		repo := newRepo(t, Device("prod-1", "Device 1", 1000, T0))

		first, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, first, 1)
		first[0].Name = "MUTATED"

		second, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, "Device 1", second[0].Name)
	})

	t.Run("save inserts and returns an independent copy", func(t *testing.T) {
		repo := newRepo(t)
		d := Device("p2", "New", 200, T1)

		saved, err := repo.Save(ctx, d)
		require.NoError(t, err)
		AssertDevice(t, d, saved)

		saved.Name = "MUTATED"
		d.Name = "ALSO MUTATED"

		got, ok, err := repo.GetByID(ctx, "p2")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "New", got.Name)
	})

	t.Run("save fully replaces an existing device", func(t *testing.T) {
		old := domain.Device{ID: "p3", Name: "Old", PricePence: 300, Description: "old", UpdatedAt: T0}
		repo := newRepo(t, old)

		updated := old
		updated.Name = "Updated"
		updated.PricePence = 350
		updated.UpdatedAt = T1

		saved, err := repo.Save(ctx, updated)
		require.NoError(t, err)
		AssertDevice(t, updated, saved)

		got, ok, err := repo.GetByID(ctx, "p3")
		require.NoError(t, err)
		require.True(t, ok)
		AssertDevice(t, updated, got)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("replacing keeps list position", func(t *testing.T) {
		repo := newRepo(t,
			Device("a", "A", 1, T0),
			Device("b", "B", 2, T0),
			Device("c", "C", 3, T0),
		)
		_, err := repo.Save(ctx, Device("a", "A2", 10, T1))
		require.NoError(t, err)

		got, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids(got))
		assert.Equal(t, "A2", got[0].Name)
	})

	t.Run("delete removes a device", func(t *testing.T) {
		repo := newRepo(t, Device("p4", "ToDelete", 400, T0), Device("p5", "Keep", 500, T0))

		require.NoError(t, repo.Delete(ctx, "p4"))

		_, ok, err := repo.GetByID(ctx, "p4")
		require.NoError(t, err)
		assert.False(t, ok)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"p5"}, ids(all))
	})

	t.Run("delete on unknown id is a no-op", func(t *testing.T) {
		repo := newRepo(t, Device("p1", "Device 1", 100, T0))
		require.NoError(t, repo.Delete(ctx, "missing"))

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("deleted id can be saved again", func(t *testing.T) {
		repo := newRepo(t, Device("p1", "Device 1", 100, T0))
		require.NoError(t, repo.Delete(ctx, "p1"))

		_, err := repo.Save(ctx, Device("p1", "Back", 1, T1))
		require.NoError(t, err)

		got, ok, err := repo.GetByID(ctx, "p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Back", got.Name)
	})

	t.Run("concurrent saves are all stored", func(t *testing.T) {
		repo := newRepo(t)
		const n = 20

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Save(ctx, Device(fmt.Sprintf("c-%02d", i), "C", int64(i), T0))
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, n)
	})
}
