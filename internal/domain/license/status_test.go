package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T {
	return &v
}

func TestCheckActivation(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	testCases := []struct {
		name      string
		lic       *License
		machineID string
		expected  Status
	}{
		{
			name:      "missing license",
			lic:       nil,
			machineID: "M1",
			expected:  StatusInvalid,
		},
		{
			name:      "unbound and valid",
			lic:       &License{ExpiryDate: future, IsActive: true},
			machineID: "M1",
			expected:  StatusValid,
		},
		{
			name:      "bound to same machine",
			lic:       &License{ExpiryDate: future, IsActive: true, MachineID: ptr("M1")},
			machineID: "M1",
			expected:  StatusValid,
		},
		{
			name:      "bound to other machine",
			lic:       &License{ExpiryDate: future, IsActive: true, MachineID: ptr("M1")},
			machineID: "M2",
			expected:  StatusInUse,
		},
		{
			name:      "other machine wins over expiry and suspension",
			lic:       &License{ExpiryDate: past, IsActive: false, MachineID: ptr("M1")},
			machineID: "M2",
			expected:  StatusInUse,
		},
		{
			name:      "expired wins over suspension",
			lic:       &License{ExpiryDate: past, IsActive: false},
			machineID: "M1",
			expected:  StatusExpired,
		},
		{
			name:      "suspended",
			lic:       &License{ExpiryDate: future, IsActive: false, MachineID: ptr("M1")},
			machineID: "M1",
			expected:  StatusBanned,
		},
		{
			name:      "expiry equal to now is still valid",
			lic:       &License{ExpiryDate: now, IsActive: true},
			machineID: "M1",
			expected:  StatusValid,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CheckActivation(tc.lic, tc.machineID, now))
		})
	}
}

func TestCheckValidation(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	testCases := []struct {
		name      string
		lic       *License
		machineID string
		expected  Status
	}{
		{"missing license", nil, "M1", StatusInvalid},
		{"unbound license never validates", &License{ExpiryDate: future, IsActive: true}, "M1", StatusInvalid},
		{"other machine", &License{ExpiryDate: future, IsActive: true, MachineID: ptr("M1")}, "M2", StatusInvalid},
		{"bound and valid", &License{ExpiryDate: future, IsActive: true, MachineID: ptr("M1")}, "M1", StatusValid},
		{"bound and expired", &License{ExpiryDate: past, IsActive: false, MachineID: ptr("M1")}, "M1", StatusExpired},
		{"bound and suspended", &License{ExpiryDate: future, IsActive: false, MachineID: ptr("M1")}, "M1", StatusBanned},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CheckValidation(tc.lic, tc.machineID, now))
		})
	}
}

func TestLicense_Clone(t *testing.T) {
	at := time.Now().UTC()
	orig := &License{LicenseKey: "ACME-1", MachineID: ptr("M1"), ActivatedAt: &at}

	c := orig.Clone()
	*c.MachineID = "M2"

	assert.Equal(t, "M1", *orig.MachineID)
	assert.NotSame(t, orig.ActivatedAt, c.ActivatedAt)
}
