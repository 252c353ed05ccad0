package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/makkenzo/machine-license-api/internal/domain/license"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// maxTxRetries bounds optimistic WATCH retries under contention on one key.
const maxTxRetries = 10

var errTxContention = errors.New("redis: too much contention on license key")

// LicenseRepository stores each license as a JSON string under
// "<prefix>:<license_key>" and tracks all keys in the "<prefix>:index" set.
type LicenseRepository struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

func NewLicenseRepository(client *redis.Client, prefix string, logger *zap.Logger) *LicenseRepository {
	if prefix == "" {
		prefix = "licenses"
	}
	return &LicenseRepository{
		client: client,
		prefix: prefix,
		logger: logger.Named("RedisLicenseRepository"),
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

func (r *LicenseRepository) recordKey(key string) string {
	return r.prefix + ":" + key
}

func (r *LicenseRepository) indexKey() string {
	return r.prefix + ":index"
}

// Create writes the record and its index entry in one MULTI under WATCH, so a
// failed or aborted create never leaves one without the other.
func (r *LicenseRepository) Create(ctx context.Context, lic *license.License) error {
	payload, err := json.Marshal(lic)
	if err != nil {
		return fmt.Errorf("failed to encode license: %w", err)
	}
	recordKey := r.recordKey(lic.LicenseKey)

	err = r.watch(ctx, lic.LicenseKey, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, recordKey).Result()
		if err != nil {
			return fmt.Errorf("redis error on create license: %w", err)
		}
		if n > 0 {
			return license.ErrKeyExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, recordKey, payload, 0)
			pipe.SAdd(ctx, r.indexKey(), lic.LicenseKey)
			return nil
		})
		return err
	})
	if errors.Is(err, license.ErrKeyExists) {
		r.logger.Warn("Attempted to create license with duplicate key", zap.String("license_key", lic.LicenseKey))
		return err
	}
	if err != nil {
		r.logger.Error("Failed to create license in redis", zap.String("license_key", lic.LicenseKey), zap.Error(err))
		return err
	}
	return nil
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*license.License, error) {
	return r.get(ctx, r.client, key)
}

func (r *LicenseRepository) List(ctx context.Context) ([]*license.License, error) {
	keys, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		r.logger.Error("Failed to read license index", zap.Error(err))
		return nil, fmt.Errorf("redis error on list licenses: %w", err)
	}

	licenses := make([]*license.License, 0, len(keys))
	if len(keys) == 0 {
		return licenses, nil
	}

	recordKeys := make([]string, len(keys))
	for i, k := range keys {
		recordKeys[i] = r.recordKey(k)
	}

	values, err := r.client.MGet(ctx, recordKeys...).Result()
	if err != nil {
		r.logger.Error("Failed to load licenses", zap.Error(err))
		return nil, fmt.Errorf("redis error on list licenses: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// deleted between SMEMBERS and MGET
			r.logger.Debug("Skipping dangling index entry", zap.String("license_key", keys[i]))
			continue
		}
		lic, err := decode(raw)
		if err != nil {
			r.logger.Error("Failed to decode license", zap.String("license_key", keys[i]), zap.Error(err))
			return nil, err
		}
		licenses = append(licenses, lic)
	}

	sort.Slice(licenses, func(i, j int) bool {
		return licenses[i].CreatedAt.After(licenses[j].CreatedAt)
	})
	return licenses, nil
}

func (r *LicenseRepository) BindMachine(ctx context.Context, key, machineID string, at time.Time) (*license.License, error) {
	var result *license.License
	var bindErr error

	err := r.update(ctx, key, func(lic *license.License) (bool, error) {
		if lic.IsBound() {
			result, bindErr = lic, license.ErrAlreadyBound
			return false, nil
		}
		lic.Bind(machineID, at)
		result, bindErr = lic, nil
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if bindErr == nil {
		r.logger.Info("License bound to machine", zap.String("license_key", key), zap.String("machine_id", machineID))
	}
	return result, bindErr
}

func (r *LicenseRepository) Modify(ctx context.Context, key string, fn func(*license.License) error) (*license.License, error) {
	var result *license.License

	err := r.update(ctx, key, func(lic *license.License) (bool, error) {
		if err := fn(lic); err != nil {
			return false, err
		}
		result = lic
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *LicenseRepository) Delete(ctx context.Context, key string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.recordKey(key))
		pipe.SRem(ctx, r.indexKey(), key)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete license", zap.String("license_key", key), zap.Error(err))
		return fmt.Errorf("redis error on delete license: %w", err)
	}
	if del.Val() == 0 {
		return license.ErrNotFound
	}
	return nil
}

func (r *LicenseRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// update runs mutate inside WATCH/MULTI on the record key. mutate returns
// false to skip the write. A concurrent writer aborts the transaction and the
// whole read-check-write is retried.
func (r *LicenseRepository) update(ctx context.Context, key string, mutate func(*license.License) (bool, error)) error {
	recordKey := r.recordKey(key)

	txf := func(tx *redis.Tx) error {
		lic, err := r.get(ctx, tx, key)
		if err != nil {
			return err
		}

		write, err := mutate(lic)
		if err != nil || !write {
			return err
		}

		payload, err := json.Marshal(lic)
		if err != nil {
			return fmt.Errorf("failed to encode license: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, recordKey, payload, 0)
			return nil
		})
		return err
	}

	return r.watch(ctx, key, txf)
}

// watch runs txf under WATCH on the record key, retrying while a concurrent
// writer aborts the transaction.
func (r *LicenseRepository) watch(ctx context.Context, key string, txf func(*redis.Tx) error) error {
	recordKey := r.recordKey(key)
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, recordKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("Optimistic transaction conflict, retrying", zap.String("license_key", key), zap.Int("attempt", i+1))
			continue
		}
		return err
	}

	r.logger.Warn("Giving up after repeated transaction conflicts", zap.String("license_key", key))
	return errTxContention
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *LicenseRepository) get(ctx context.Context, c getter, key string) (*license.License, error) {
	raw, err := c.Get(ctx, r.recordKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, license.ErrNotFound
		}
		r.logger.Error("Failed to read license", zap.String("license_key", key), zap.Error(err))
		return nil, fmt.Errorf("redis error on find license: %w", err)
	}
	return decode(raw)
}

func decode(raw string) (*license.License, error) {
	var lic license.License
	if err := json.Unmarshal([]byte(raw), &lic); err != nil {
		return nil, fmt.Errorf("failed to decode license: %w", err)
	}
	return &lic, nil
}
