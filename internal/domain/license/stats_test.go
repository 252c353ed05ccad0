package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	in3d := now.Add(3 * 24 * time.Hour)

	licenses := []*License{
		{LicenseKey: "A", IsActive: true, MachineID: ptr("M1"), ExpiryDate: in3d},
		{LicenseKey: "B", IsActive: true, ExpiryDate: in3d},
	}

	stats := ComputeStats(licenses, now)
	assert.Equal(t, Stats{TotalLicenses: 2, ActiveNow: 1, ExpiringSoon7d: 2}, stats)
}

func TestComputeStats_Predicates(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	licenses := []*License{
		// bound, far future: active only
		{IsActive: true, MachineID: ptr("M1"), ExpiryDate: now.Add(30 * 24 * time.Hour)},
		// suspended: counted in total only
		{IsActive: false, MachineID: ptr("M2"), ExpiryDate: now.Add(24 * time.Hour)},
		// expired and bound: total only
		{IsActive: true, MachineID: ptr("M3"), ExpiryDate: now.Add(-time.Hour)},
		// exactly at the window edge is not expiring soon
		{IsActive: true, ExpiryDate: now.Add(ExpiringSoonWindow)},
		// empty machine id counts as unbound
		{IsActive: true, MachineID: ptr(""), ExpiryDate: now.Add(time.Hour)},
	}

	stats := ComputeStats(licenses, now)
	assert.Equal(t, 5, stats.TotalLicenses)
	assert.Equal(t, 1, stats.ActiveNow)
	assert.Equal(t, 1, stats.ExpiringSoon7d)
}

func TestComputeStats_Empty(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil, time.Now()))
}
