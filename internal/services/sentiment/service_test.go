package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

func newTestService() Service {
	return NewService(tracing.NewTracer("sentiment-test", tracetest.NewNoopExporter()))
}

func TestScoreArticles(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{Title: "Markets rally as growth beats expectations", Summary: "Strong gains across the board"},
		{Title: "Crisis deepens as conflict escalates", Summary: "Devastating losses reported"},
		{Title: "Quarterly schedule published"},
	}

	scored := newTestService().ScoreArticles(context.Background(), articles)
	require.Len(t, scored, 3)

	assert.Greater(t, scored[0].Sentiment, 0.0)
	assert.Less(t, scored[1].Sentiment, 0.0)
	assert.InDelta(t, 0.0, scored[2].Sentiment, 0.3)
}

func TestCategoryStats(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{Category: "Macro", Sentiment: -0.5},
		{Category: "Macro", Sentiment: -0.5},
		{Category: "Macro", Sentiment: 0.2},
		{Category: "Technology", Sentiment: 0.4},
	}

	stats := newTestService().CategoryStats(articles)
	require.Len(t, stats, 2)

	macro := stats["Macro"]
	assert.Equal(t, 3, macro.Count)
	assert.InDelta(t, (-0.5-0.5+0.2)/3, macro.Mean, 1e-9)
	assert.InDelta(t, 2.0/3.0, macro.NegDensity, 1e-9)
	assert.Greater(t, macro.Volatility, 0.0)

	tech := stats["Technology"]
	assert.Equal(t, 1, tech.Count)
	assert.Zero(t, tech.NegDensity)
	assert.Zero(t, tech.Volatility)
}
