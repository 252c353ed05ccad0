package license

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("license not found")
	ErrKeyExists    = errors.New("license key already exists")
	ErrAlreadyBound = errors.New("license already bound to a machine")
)

// Repository is the durable license store.
//
// BindMachine is a compare-and-swap on an unbound machine_id: it binds and
// returns the updated record, or returns the current record together with
// ErrAlreadyBound when another activation won. Create fails with ErrKeyExists
// instead of overwriting. Modify applies fn to the current record atomically
// with respect to other writers of the same key.
type Repository interface {
	Create(ctx context.Context, lic *License) error
	FindByKey(ctx context.Context, key string) (*License, error)
	List(ctx context.Context) ([]*License, error)
	BindMachine(ctx context.Context, key, machineID string, at time.Time) (*License, error)
	Modify(ctx context.Context, key string, fn func(*License) error) (*License, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
