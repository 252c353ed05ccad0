package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/makkenzo/machine-license-api/internal/config"
	"github.com/makkenzo/machine-license-api/internal/domain/license"
	"github.com/makkenzo/machine-license-api/internal/storage/gormstore"
	"github.com/makkenzo/machine-license-api/internal/storage/memstorage"
)

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}

	repo, closeFn, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &memstorage.LicenseRepository{}, repo)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Store:  config.StoreConfig{Driver: config.DriverSQLite},
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "licenses.db")},
	}

	repo, closeFn, err := Open(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &gormstore.LicenseRepository{}, repo)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &license.License{
		LicenseKey:   "ACME-0000000000000000",
		CustomerName: "ACME",
		ExpiryDate:   now.Add(time.Hour),
		IsActive:     true,
		CreatedAt:    now,
	}))
	got, err := repo.FindByKey(ctx, "ACME-0000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "ACME", got.CustomerName)
}

func TestOpen_Misconfigured(t *testing.T) {
	cases := map[string]*config.Config{
		"unknown driver":   {Store: config.StoreConfig{Driver: "mongo"}},
		"postgres no url":  {Store: config.StoreConfig{Driver: config.DriverPostgres}},
		"redis no address": {Store: config.StoreConfig{Driver: config.DriverRedis}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			repo, closeFn, err := Open(context.Background(), cfg, zap.NewNop())
			assert.Error(t, err)
			assert.Nil(t, repo)
			require.NotNil(t, closeFn)
			closeFn()
		})
	}
}
