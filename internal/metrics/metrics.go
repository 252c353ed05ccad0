// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/makkenzo/machine-license-api/internal/domain/license"
)

var (
	ActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "license",
		Name:      "activations_total",
		Help:      "Activation attempts by outcome.",
	}, []string{"status"})

	ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "license",
		Name:      "validations_total",
		Help:      "Validation checks by outcome.",
	}, []string{"status"})

	LicensesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "license",
		Name:      "generated_total",
		Help:      "Licenses issued.",
	})

	LicensesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "license",
		Name:      "licenses",
		Help:      "Stored licenses at the last stats refresh.",
	})

	LicensesActiveNow = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "license",
		Name:      "active_now",
		Help:      "Active, unexpired, machine-bound licenses at the last stats refresh.",
	})

	LicensesExpiringSoon = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "license",
		Name:      "expiring_soon_7d",
		Help:      "Active licenses expiring within seven days at the last stats refresh.",
	})
)

func ObserveStats(s license.Stats) {
	LicensesTotal.Set(float64(s.TotalLicenses))
	LicensesActiveNow.Set(float64(s.ActiveNow))
	LicensesExpiringSoon.Set(float64(s.ExpiringSoon7d))
}
