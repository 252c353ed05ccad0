package license

import "time"

const ExpiringSoonWindow = 7 * 24 * time.Hour

type Stats struct {
	TotalLicenses  int `json:"total_licenses"`
	ActiveNow      int `json:"active_now"`
	ExpiringSoon7d int `json:"expiring_soon_7d"`
}

// ComputeStats counts the records in a single pass. ActiveNow and
// ExpiringSoon7d are independent predicates, a license may count in both.
func ComputeStats(licenses []*License, now time.Time) Stats {
	stats := Stats{TotalLicenses: len(licenses)}
	soon := now.Add(ExpiringSoonWindow)

	for _, lic := range licenses {
		if !lic.IsActive {
			continue
		}
		if lic.ExpiryDate.After(now) && lic.IsBound() {
			stats.ActiveNow++
		}
		if lic.ExpiryDate.After(now) && lic.ExpiryDate.Before(soon) {
			stats.ExpiringSoon7d++
		}
	}
	return stats
}
