package mobility

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

func newTestClient(address string) Client {
	return NewClient(&Config{
		Address:    address,
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		Tracer:     tracing.NewTracer("mobility-test", tracetest.NewNoopExporter()),
	})
}

func throughputCSV(days int) string {
	var b strings.Builder
	b.WriteString("Date,Numbers,2019 Numbers\n")
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		// Current throughput runs 10% above the baseline.
		fmt.Fprintf(&b, "%s,\"2,200,000\",\"2,000,000\"\n", d.Format("1/2/2006"))
	}
	return b.String()
}

func TestCollect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(throughputCSV(10)))
	}))
	defer srv.Close()

	stats, err := newTestClient(srv.URL).Collect(context.Background(), 7)
	require.NoError(t, err)

	assert.Len(t, stats.Points, 7)
	assert.InDelta(t, 10.0, stats.DeltaVsBase, 1e-9)

	last := stats.Points[len(stats.Points)-1]
	assert.Equal(t, int64(2200000), last.Throughput)
	assert.Equal(t, int64(2000000), last.Baseline)
}

func TestCollect_ShortSeriesHasNoDelta(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(throughputCSV(3)))
	}))
	defer srv.Close()

	stats, err := newTestClient(srv.URL).Collect(context.Background(), 30)
	require.NoError(t, err)

	assert.Len(t, stats.Points, 3)
	assert.Zero(t, stats.DeltaVsBase)
}

func TestCollect_BadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Collect(context.Background(), 30)
	assert.Error(t, err)
}

func TestColumnIndexes(t *testing.T) {
	t.Parallel()

	date, count, base := columnIndexes([]string{"Date", "Numbers", "2019 Numbers"})
	assert.Equal(t, 0, date)
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, base)

	date, count, base = columnIndexes([]string{"Date", "Travelers"})
	assert.Equal(t, 0, date)
	assert.Equal(t, 1, count)
	assert.Equal(t, -1, base)
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	n, err := parseCount("2,123,456")
	require.NoError(t, err)
	assert.Equal(t, int64(2123456), n)

	_, err = parseCount("")
	assert.Error(t, err)
}
