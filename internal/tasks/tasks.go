package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeLicenseStatsRefresh = "license:stats:refresh"
)

type StatsRefreshPayload struct{}

// NewLicenseStatsRefreshTask builds the periodic task. Uniqueness is held for
// one minute so overlapping scheduler ticks collapse into a single run.
func NewLicenseStatsRefreshTask(opts ...asynq.Option) (*asynq.Task, error) {
	payload := StatsRefreshPayload{}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	uniqueOpt := asynq.Unique(1 * time.Minute)
	allOpts := append(opts, uniqueOpt)

	return asynq.NewTask(TypeLicenseStatsRefresh, payloadBytes, allOpts...), nil
}
