package memstorage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makkenzo/machine-license-api/internal/domain/license"
)

func newLicense(key string) *license.License {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &license.License{
		LicenseKey:   key,
		CustomerName: "ACME",
		ExpiryDate:   now.Add(30 * 24 * time.Hour),
		IsActive:     true,
		CreatedAt:    now,
	}
}

func TestLicenseRepository_CreateIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewLicenseRepository()

	require.NoError(t, repo.Create(ctx, newLicense("ACME-1")))
	assert.ErrorIs(t, repo.Create(ctx, newLicense("ACME-1")), license.ErrKeyExists)
}

func TestLicenseRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewLicenseRepository()
	require.NoError(t, repo.Create(ctx, newLicense("ACME-1")))

	got, err := repo.FindByKey(ctx, "ACME-1")
	require.NoError(t, err)
	got.Notes = "mutated"

	again, err := repo.FindByKey(ctx, "ACME-1")
	require.NoError(t, err)
	assert.Empty(t, again.Notes)
}

func TestLicenseRepository_BindMachine(t *testing.T) {
	ctx := context.Background()
	repo := NewLicenseRepository()
	require.NoError(t, repo.Create(ctx, newLicense("ACME-1")))
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	bound, err := repo.BindMachine(ctx, "ACME-1", "M1", at)
	require.NoError(t, err)
	assert.Equal(t, "M1", *bound.MachineID)
	assert.Equal(t, at, *bound.ActivatedAt)

	current, err := repo.BindMachine(ctx, "ACME-1", "M2", at.Add(time.Hour))
	assert.ErrorIs(t, err, license.ErrAlreadyBound)
	assert.Equal(t, "M1", *current.MachineID)
	assert.Equal(t, at, *current.ActivatedAt)

	_, err = repo.BindMachine(ctx, "missing", "M1", at)
	assert.ErrorIs(t, err, license.ErrNotFound)
}

func TestLicenseRepository_BindMachineConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewLicenseRepository()
	require.NoError(t, repo.Create(ctx, newLicense("ACME-1")))

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			machine := string(rune('A' + id))
			if _, err := repo.BindMachine(ctx, "ACME-1", machine, time.Now()); err == nil {
				wins <- machine
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1)
}

func TestLicenseRepository_ModifyAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewLicenseRepository()
	require.NoError(t, repo.Create(ctx, newLicense("ACME-1")))

	updated, err := repo.Modify(ctx, "ACME-1", func(l *license.License) error {
		l.Notes = "vip"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "vip", updated.Notes)

	_, err = repo.Modify(ctx, "ACME-1", func(l *license.License) error {
		l.Notes = "discarded"
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	got, err := repo.FindByKey(ctx, "ACME-1")
	require.NoError(t, err)
	assert.Equal(t, "vip", got.Notes)

	require.NoError(t, repo.Delete(ctx, "ACME-1"))
	assert.ErrorIs(t, repo.Delete(ctx, "ACME-1"), license.ErrNotFound)
	_, err = repo.FindByKey(ctx, "ACME-1")
	assert.ErrorIs(t, err, license.ErrNotFound)
}

func TestLicenseRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewLicenseRepository()

	older := newLicense("OLD-1")
	newer := newLicense("NEW-1")
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "NEW-1", list[0].LicenseKey)
	assert.Equal(t, "OLD-1", list[1].LicenseKey)
}
