package alerts

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/SuOnTheRun/intel-hub/internal/adapters/feeds"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/queue"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/repository/snapshot"
	"github.com/SuOnTheRun/intel-hub/internal/config"
	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/pkg/metrics"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

var testMetrics = metrics.New()

func testTracer(name string) tracing.Tracer {
	return tracing.NewTracer(name, tracetest.NewNoopExporter())
}

func newTestService(feedClient feeds.Client, q queue.Queue) Service {
	return NewService(feedClient, q, testTracer("alerts-test"), zap.NewNop())
}

func TestEvaluate_Rules(t *testing.T) {
	t.Parallel()

	heat := []domain.CategoryHeat{
		{Category: "Macro", NewsZ: 2.1, Sentiment: -0.45, MarketPct: -2.5, Trends: 75},
		{Category: "Technology", NewsZ: 0.2, Sentiment: 0.1, MarketPct: 0.5, Trends: 10},
	}
	tension := []domain.CategoryTension{
		{Category: "Macro", Tension: 68},
		{Category: "Technology", Tension: 12},
	}

	out := newTestService(nil, nil).Evaluate(context.Background(), heat, tension, nil)

	// Macro trips all five rules, Technology none.
	require.Len(t, out, 5)
	for _, a := range out {
		assert.Equal(t, "Macro", a.Title)
		assert.Equal(t, domain.AlertKindData, a.Kind)
		assert.NotEmpty(t, a.ID)
	}
	// Highest severity first.
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Severity, out[i].Severity)
	}
	assert.Equal(t, 4, out[0].Severity)
}

func TestEvaluate_QuietBoard(t *testing.T) {
	t.Parallel()

	heat := []domain.CategoryHeat{
		{Category: "Macro", NewsZ: 0.5, Sentiment: 0.0, MarketPct: 0.3, Trends: 20},
	}

	assert.Empty(t, newTestService(nil, nil).Evaluate(context.Background(), heat, nil, nil))
}

func TestWatchSeverity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, watchSeverity(domain.AlertKindGeo, "USGS Earthquakes"))
	assert.Equal(t, 4, watchSeverity(domain.AlertKindGeo, "GDACS"))
	assert.Equal(t, 4, watchSeverity(domain.AlertKindCyber, "CISA Advisories"))
	assert.Equal(t, 3, watchSeverity(domain.AlertKindCyber, "Vendor Blog"))
	assert.Equal(t, 3, watchSeverity(domain.AlertKindPolicy, "Federal Register"))
}

func TestCollectWatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>W</title>`+
			`<item><title>Magnitude 6 quake</title><link>https://example.com/q</link><pubDate>%s</pubDate></item>`+
			`</channel></rss>`, time.Now().UTC().Format(time.RFC1123Z))
	}))
	defer srv.Close()

	feedClient := feeds.NewClient(&feeds.Config{
		Catalog:    config.Catalog{},
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		Tracer:     testTracer("feeds-test"),
		Logger:     zap.NewNop(),
	})

	watch := config.Watch{
		Geo: map[string]string{"USGS Earthquakes": srv.URL},
	}

	out := newTestService(feedClient, nil).CollectWatch(context.Background(), watch)
	require.Len(t, out, 1)

	assert.Equal(t, domain.AlertKindGeo, out[0].Kind)
	assert.Equal(t, "USGS Earthquakes", out[0].Title)
	assert.Equal(t, "Magnitude 6 quake", out[0].Detail)
	assert.Equal(t, 4, out[0].Severity)
}

func TestPublish_RoundTripThroughQueue(t *testing.T) {
	t.Parallel()

	q := queue.NewInMemoryQueue(zap.NewNop())
	defer func() { _ = q.Close() }()

	repo := snapshot.NewRepository()
	handler := NewStoreAlertsHandler(repo, testMetrics, testTracer("consumer-test"), zap.NewNop())

	consumerCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		_ = q.Consume(consumerCtx, AlertsTopic, handler)
	}()

	svc := newTestService(nil, q)
	alerts := []domain.Alert{
		{ID: "a1", Kind: domain.AlertKindData, Title: "Macro", Detail: "test", At: time.Now().UTC(), Severity: 3},
	}
	require.NoError(t, svc.Publish(context.Background(), alerts))

	require.Eventually(t, func() bool {
		stored, err := repo.RecentAlerts(context.Background(), 10)
		return err == nil && len(stored) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPublish_EmptyBatchIsNoop(t *testing.T) {
	t.Parallel()

	assert.NoError(t, newTestService(nil, nil).Publish(context.Background(), nil))
}
