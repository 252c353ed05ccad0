package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/makkenzo/machine-license-api/internal/clock"
	"github.com/makkenzo/machine-license-api/internal/domain/license"
	"github.com/makkenzo/machine-license-api/internal/ierr"
	"github.com/makkenzo/machine-license-api/internal/keygen"
	"github.com/makkenzo/machine-license-api/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultStoreTimeout = 10 * time.Second
	defaultMaxAttempts  = 8
)

type Options struct {
	StoreTimeout      time.Duration
	KeyGenMaxAttempts int
}

// LicenseService runs the license lifecycle against a Repository. A nil
// repository means the store could not be initialized; every operation then
// fails with ierr.ErrStoreUnavailable.
type LicenseService struct {
	repo         license.Repository
	keys         *keygen.Generator
	clock        clock.Clock
	storeTimeout time.Duration
	maxAttempts  int
	logger       *zap.Logger
}

func NewLicenseService(repo license.Repository, keys *keygen.Generator, clk clock.Clock, opts Options, logger *zap.Logger) *LicenseService {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.KeyGenMaxAttempts <= 0 {
		opts.KeyGenMaxAttempts = defaultMaxAttempts
	}
	return &LicenseService{
		repo:         repo,
		keys:         keys,
		clock:        clk,
		storeTimeout: opts.StoreTimeout,
		maxAttempts:  opts.KeyGenMaxAttempts,
		logger:       logger.Named("LicenseService"),
	}
}

func (s *LicenseService) Available() bool {
	return s.repo != nil
}

func (s *LicenseService) Ping(ctx context.Context) error {
	if !s.Available() {
		return ierr.ErrStoreUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.Ping(ctx)
}

type ActivationResult struct {
	Status  license.Status
	License *license.License
}

// Activate binds key to machineID on first use. Re-activation from the bound
// machine succeeds without touching activated_at.
func (s *LicenseService) Activate(ctx context.Context, key, machineID string) (*ActivationResult, error) {
	if !s.Available() {
		return nil, ierr.ErrStoreUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	now := s.clock.Now()

	lic, err := s.find(ctx, key)
	if err != nil {
		return nil, err
	}

	status := license.CheckActivation(lic, machineID, now)
	if status != license.StatusValid || lic.IsBound() {
		s.observeActivation(status, key, machineID)
		return &ActivationResult{Status: status, License: lic}, nil
	}

	bound, err := s.repo.BindMachine(ctx, key, machineID, now)
	switch {
	case err == nil:
		lic = bound
	case errors.Is(err, license.ErrAlreadyBound):
		// Lost the race; judge against whoever won.
		lic = bound
		status = license.CheckActivation(lic, machineID, now)
	case errors.Is(err, license.ErrNotFound):
		lic, status = nil, license.StatusInvalid
	default:
		s.logger.Error("Failed to bind license to machine", zap.String("license_key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: bind machine: %v", ierr.ErrInternalServer, err)
	}

	s.observeActivation(status, key, machineID)
	return &ActivationResult{Status: status, License: lic}, nil
}

// Validate never writes.
func (s *LicenseService) Validate(ctx context.Context, key, machineID string) (*ActivationResult, error) {
	if !s.Available() {
		return nil, ierr.ErrStoreUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	lic, err := s.find(ctx, key)
	if err != nil {
		return nil, err
	}

	status := license.CheckValidation(lic, machineID, s.clock.Now())
	metrics.ValidationsTotal.WithLabelValues(string(status)).Inc()
	s.logger.Debug("License validation", zap.String("license_key", key), zap.String("machine_id", machineID), zap.String("status", string(status)))

	return &ActivationResult{Status: status, License: lic}, nil
}

type GenerateParams struct {
	CustomerName string
	Notes        string
	Duration     license.Duration
}

// Generate issues a new unbound license. Key uniqueness is enforced by the
// store's conditional create; collisions are retried a bounded number of times.
func (s *LicenseService) Generate(ctx context.Context, p GenerateParams) (*license.License, error) {
	if !s.Available() {
		return nil, ierr.ErrStoreUnavailable
	}
	name := keygen.NormalizeName(p.CustomerName)
	if name == "" {
		return nil, fmt.Errorf("%w: customer_name must not be empty", ierr.ErrValidation)
	}

	now := s.clock.Now()
	expiry, err := p.Duration.Apply(now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ierr.ErrValidation, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	lic := &license.License{
		CustomerName: name,
		ExpiryDate:   expiry,
		IsActive:     true,
		Notes:        p.Notes,
		CreatedAt:    now,
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		lic.LicenseKey = s.keys.Candidate(name, attempt)

		err := s.repo.Create(ctx, lic)
		if err == nil {
			metrics.LicensesGeneratedTotal.Inc()
			s.logger.Info("License generated",
				zap.String("license_key", lic.LicenseKey),
				zap.String("customer_name", name),
				zap.Time("expiry_date", lic.ExpiryDate),
			)
			return lic, nil
		}
		if !errors.Is(err, license.ErrKeyExists) {
			s.logger.Error("Failed to store generated license", zap.Error(err))
			return nil, fmt.Errorf("repository error during license creation: %w", err)
		}
		s.logger.Warn("License key collision, retrying", zap.String("license_key", lic.LicenseKey), zap.Int("attempt", attempt+1))
	}

	s.logger.Error("Exhausted license key generation attempts", zap.String("customer_name", name), zap.Int("attempts", s.maxAttempts))
	return nil, fmt.Errorf("%w after %d attempts", ierr.ErrKeyGeneration, s.maxAttempts)
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Extend   *license.Duration
	IsActive *bool
	Notes    *string
}

func (p Patch) IsEmpty() bool {
	return p.Extend == nil && p.IsActive == nil && p.Notes == nil
}

func (s *LicenseService) Update(ctx context.Context, key string, p Patch) (*license.License, error) {
	if !s.Available() {
		return nil, ierr.ErrStoreUnavailable
	}
	if p.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", ierr.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	updated, err := s.repo.Modify(ctx, key, func(lic *license.License) error {
		if p.Extend != nil {
			expiry, err := p.Extend.Apply(lic.ExpiryDate)
			if err != nil {
				return fmt.Errorf("%w: %w", ierr.ErrValidation, err)
			}
			lic.ExpiryDate = expiry
		}
		if p.IsActive != nil {
			lic.IsActive = *p.IsActive
		}
		if p.Notes != nil {
			lic.Notes = *p.Notes
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return nil, fmt.Errorf("%w: license %s", ierr.ErrNotFound, key)
		}
		if errors.Is(err, ierr.ErrValidation) {
			s.logger.Info("License update rejected", zap.String("license_key", key), zap.Error(err))
			return nil, err
		}
		s.logger.Error("Failed to update license", zap.String("license_key", key), zap.Error(err))
		return nil, fmt.Errorf("repository error during license update: %w", err)
	}

	s.logger.Info("License updated", zap.String("license_key", key), zap.Bool("is_active", updated.IsActive), zap.Time("expiry_date", updated.ExpiryDate))
	return updated, nil
}

// Extend pushes the expiry date of key forward by d.
func (s *LicenseService) Extend(ctx context.Context, key string, d license.Duration) (*license.License, error) {
	return s.Update(ctx, key, Patch{Extend: &d})
}

func (s *LicenseService) Delete(ctx context.Context, key string) error {
	if !s.Available() {
		return ierr.ErrStoreUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.repo.Delete(ctx, key); err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return fmt.Errorf("%w: license %s", ierr.ErrNotFound, key)
		}
		s.logger.Error("Failed to delete license", zap.String("license_key", key), zap.Error(err))
		return fmt.Errorf("repository error during license delete: %w", err)
	}

	s.logger.Info("License deleted", zap.String("license_key", key))
	return nil
}

func (s *LicenseService) List(ctx context.Context) ([]*license.License, error) {
	if !s.Available() {
		return nil, ierr.ErrStoreUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	licenses, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list licenses", zap.Error(err))
		return nil, fmt.Errorf("repository error listing licenses: %w", err)
	}
	return licenses, nil
}

// Stats aggregates over every stored license and refreshes the exported gauges.
func (s *LicenseService) Stats(ctx context.Context) (license.Stats, error) {
	licenses, err := s.List(ctx)
	if err != nil {
		return license.Stats{}, err
	}

	stats := license.ComputeStats(licenses, s.clock.Now())
	metrics.ObserveStats(stats)
	return stats, nil
}

func (s *LicenseService) find(ctx context.Context, key string) (*license.License, error) {
	lic, err := s.repo.FindByKey(ctx, key)
	if err == nil {
		return lic, nil
	}
	if errors.Is(err, license.ErrNotFound) {
		return nil, nil
	}
	s.logger.Error("Failed to load license", zap.String("license_key", key), zap.Error(err))
	return nil, fmt.Errorf("repository error loading license: %w", err)
}

func (s *LicenseService) observeActivation(status license.Status, key, machineID string) {
	metrics.ActivationsTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("License activation",
		zap.String("license_key", key),
		zap.String("machine_id", machineID),
		zap.String("status", string(status)),
	)
}
