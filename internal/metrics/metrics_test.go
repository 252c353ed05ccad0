package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/makkenzo/machine-license-api/internal/domain/license"
)

func TestObserveStats(t *testing.T) {
	ObserveStats(license.Stats{TotalLicenses: 4, ActiveNow: 2, ExpiringSoon7d: 1})

	assert.Equal(t, 4.0, testutil.ToFloat64(LicensesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(LicensesActiveNow))
	assert.Equal(t, 1.0, testutil.ToFloat64(LicensesExpiringSoon))
}
