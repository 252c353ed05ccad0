package license

import (
	"time"
)

// License is a single issued key. MachineID and ActivatedAt are nil until the
// first successful activation binds the license to a machine.
type License struct {
	LicenseKey   string     `db:"license_key" json:"license_key"`
	CustomerName string     `db:"customer_name" json:"customer_name"`
	ExpiryDate   time.Time  `db:"expiry_date" json:"expiry_date"`
	MachineID    *string    `db:"machine_id" json:"machine_id"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	Notes        string     `db:"notes" json:"notes"`
	ActivatedAt  *time.Time `db:"activated_at" json:"activated_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

func (l *License) IsBound() bool {
	return l.MachineID != nil && *l.MachineID != ""
}

func (l *License) BoundTo(machineID string) bool {
	return l.IsBound() && *l.MachineID == machineID
}

// IsExpired reports whether now is strictly past the expiry date.
func (l *License) IsExpired(now time.Time) bool {
	return now.After(l.ExpiryDate)
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (l *License) Clone() *License {
	c := *l
	if l.MachineID != nil {
		m := *l.MachineID
		c.MachineID = &m
	}
	if l.ActivatedAt != nil {
		a := *l.ActivatedAt
		c.ActivatedAt = &a
	}
	return &c
}

// Bind sets the machine binding. It does not check the current state; stores
// call it only after their own conditional check.
func (l *License) Bind(machineID string, at time.Time) {
	l.MachineID = &machineID
	at = at.UTC()
	l.ActivatedAt = &at
}
