package memstorage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/makkenzo/machine-license-api/internal/domain/license"
)

// LicenseRepository keeps licenses in process memory. A single mutex makes
// every operation atomic, which gives the same guarantees as the remote
// stores for a single replica.
type LicenseRepository struct {
	mu       sync.RWMutex
	licenses map[string]*license.License
}

func NewLicenseRepository() *LicenseRepository {
	return &LicenseRepository{
		licenses: make(map[string]*license.License),
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

func (r *LicenseRepository) Create(ctx context.Context, lic *license.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.licenses[lic.LicenseKey]; ok {
		return license.ErrKeyExists
	}
	r.licenses[lic.LicenseKey] = lic.Clone()
	return nil
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*license.License, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lic, ok := r.licenses[key]
	if !ok {
		return nil, license.ErrNotFound
	}
	return lic.Clone(), nil
}

func (r *LicenseRepository) List(ctx context.Context) ([]*license.License, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	licenses := make([]*license.License, 0, len(r.licenses))
	for _, lic := range r.licenses {
		licenses = append(licenses, lic.Clone())
	}
	sort.Slice(licenses, func(i, j int) bool {
		return licenses[i].CreatedAt.After(licenses[j].CreatedAt)
	})
	return licenses, nil
}

func (r *LicenseRepository) BindMachine(ctx context.Context, key, machineID string, at time.Time) (*license.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lic, ok := r.licenses[key]
	if !ok {
		return nil, license.ErrNotFound
	}
	if lic.IsBound() {
		return lic.Clone(), license.ErrAlreadyBound
	}
	lic.Bind(machineID, at)
	return lic.Clone(), nil
}

func (r *LicenseRepository) Modify(ctx context.Context, key string, fn func(*license.License) error) (*license.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lic, ok := r.licenses[key]
	if !ok {
		return nil, license.ErrNotFound
	}
	updated := lic.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	r.licenses[key] = updated
	return updated.Clone(), nil
}

func (r *LicenseRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.licenses[key]; !ok {
		return license.ErrNotFound
	}
	delete(r.licenses, key)
	return nil
}

func (r *LicenseRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
