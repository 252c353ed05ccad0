package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/makkenzo/machine-license-api/internal/domain/license"
	"go.uber.org/zap"
)

// StatsSource computes aggregate license counters and publishes them to the
// metrics gauges as a side effect.
type StatsSource interface {
	Stats(ctx context.Context) (license.Stats, error)
}

type StatsRefreshHandler struct {
	source StatsSource
	logger *zap.Logger
}

func NewStatsRefreshHandler(source StatsSource, logger *zap.Logger) *StatsRefreshHandler {
	return &StatsRefreshHandler{
		source: source,
		logger: logger.Named("StatsRefreshHandler"),
	}
}

func (h *StatsRefreshHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeLicenseStatsRefresh {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	if len(t.Payload()) > 0 {
		var p StatsRefreshPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			h.logger.Error("Failed to unmarshal payload for stats refresh task", zap.Error(err), zap.ByteString("payload", t.Payload()))
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	stats, err := h.source.Stats(ctx)
	if err != nil {
		h.logger.Error("Failed to refresh license stats", zap.Error(err))
		return fmt.Errorf("stats refresh failed: %w", err)
	}

	h.logger.Info("License stats refreshed",
		zap.Int("total_licenses", stats.TotalLicenses),
		zap.Int("active_now", stats.ActiveNow),
		zap.Int("expiring_soon_7d", stats.ExpiringSoon7d),
	)
	return nil
}
