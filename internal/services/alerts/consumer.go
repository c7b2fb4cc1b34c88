package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/SuOnTheRun/intel-hub/internal/adapters/repository/snapshot"
	"github.com/SuOnTheRun/intel-hub/pkg/metrics"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

// NewStoreAlertsHandler creates the queue handler that persists alert
// batches and counts them by kind.
func NewStoreAlertsHandler(repo snapshot.Repository, m *metrics.Metrics, tracer tracing.Tracer, logger *zap.Logger) func(message []byte) error {
	return func(message []byte) error {
		var alertsMessage AlertsMessage
		if err := json.Unmarshal(message, &alertsMessage); err != nil {
			return fmt.Errorf("failed to unmarshal message: %w", err)
		}

		ctx := context.Background()

		ctx, span := tracer.StartSpanWithContext(
			ctx,
			"services.alerts.consumer.StoreAlerts",
			alertsMessage.SpanContext.SpanContext,
		)
		defer span.End()

		if err := repo.SaveAlerts(ctx, alertsMessage.Alerts); err != nil {
			return fmt.Errorf("persist alerts: %w", err)
		}

		for _, a := range alertsMessage.Alerts {
			m.AlertsEmitted.WithLabelValues(a.Kind).Inc()
		}

		logger.Info("alerts stored", zap.Int("count", len(alertsMessage.Alerts)))

		return nil
	}
}
