package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends everything gathered by g to the Pushgateway at url, grouped by
// job and run id.
func Push(ctx context.Context, url, job, runID string, g prometheus.Gatherer) error {
	pusher := push.New(url, job).Gatherer(g)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	slog.Info("metrics pushed", "url", url, "job", job, "run_id", runID)
	return nil
}
