package markets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/SuOnTheRun/intel-hub/internal/config"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

const quotesCSV = `Date,Open,High,Low,Close,Volume
2026-08-24,100.0,101.0,99.0,100.0,1000
2026-08-25,100.0,103.0,99.5,102.0,1200
2026-08-26,102.0,106.0,101.0,105.0,1500
`

func newTestClient(address string) Client {
	return NewClient(&Config{
		Address:    address,
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		Tracer:     tracing.NewTracer("markets-test", tracetest.NewNoopExporter()),
		Logger:     zap.NewNop(),
	})
}

func TestQuote(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "nvda.us", r.URL.Query().Get("s"))
		_, _ = w.Write([]byte(quotesCSV))
	}))
	defer srv.Close()

	q, err := newTestClient(srv.URL).Quote(context.Background(), "NVDA.US", 5)
	require.NoError(t, err)

	assert.Equal(t, "NVDA.US", q.Symbol)
	assert.InDelta(t, 105.0, q.Last, 1e-9)
	assert.InDelta(t, 5.0, q.ChangePct, 1e-9)
}

func TestQuote_NotEnoughData(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Date,Open,High,Low,Close,Volume\n"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Quote(context.Background(), "XXXX.US", 5)
	assert.Error(t, err)
}

func TestCategoryChanges_SkipsFailingSymbols(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("s") == "bad.us" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(quotesCSV))
	}))
	defer srv.Close()

	catalog := config.Catalog{
		Categories: []config.Category{
			{Name: "Technology", Tickers: []string{"NVDA.US", "BAD.US"}},
			{Name: "Empty", Tickers: []string{"BAD.US"}},
		},
	}

	changes, quotes := newTestClient(srv.URL).CategoryChanges(context.Background(), catalog, 5)
	require.Len(t, changes, 2)
	require.Len(t, quotes, 1)

	assert.Equal(t, "Technology", changes[0].Category)
	assert.InDelta(t, 5.0, changes[0].ChangePct, 1e-9)

	// No usable symbols degrades to neutral.
	assert.Equal(t, "Empty", changes[1].Category)
	assert.Zero(t, changes[1].ChangePct)
}
