package timeseries

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxApi "github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"

	"github.com/SuOnTheRun/intel-hub/internal/domain"
)

const (
	heatSeries    = "category_heat"
	tensionSeries = "category_tension"
	categoryTag   = "category"
)

// Sink mirrors per-category heat and tension rows into a time-series
// store for long-horizon charting. A nil *InfluxSink is a no-op, so the
// binary runs without Influx configured.
type Sink interface {
	WriteSnapshot(snap *domain.Snapshot)
	Close()
}

type InfluxSink struct {
	client   influxdb2.Client
	writeAPI influxApi.WriteAPI
}

// NewInfluxSink connects a non-blocking write API and drains its error
// channel into the logger.
func NewInfluxSink(url, token, org, bucket string, logger *zap.Logger) *InfluxSink {
	client := influxdb2.NewClient(url, token)
	writeAPI := client.WriteAPI(org, bucket)

	go func() {
		for err := range writeAPI.Errors() {
			logger.Error("error writing point", zap.Error(err))
		}
	}()

	return &InfluxSink{client: client, writeAPI: writeAPI}
}

func (s *InfluxSink) WriteSnapshot(snap *domain.Snapshot) {
	if s == nil {
		return
	}

	for _, h := range snap.Heat {
		p := influxdb2.NewPoint(
			heatSeries,
			map[string]string{categoryTag: h.Category},
			map[string]interface{}{
				"news_count": h.NewsCount,
				"news_z":     h.NewsZ,
				"sentiment":  h.Sentiment,
				"market_pct": h.MarketPct,
				"trends":     h.Trends,
				"composite":  h.Composite,
			},
			snap.TakenAt,
		)
		s.writeAPI.WritePoint(p)
	}

	for _, t := range snap.Tension {
		p := influxdb2.NewPoint(
			tensionSeries,
			map[string]string{categoryTag: t.Category},
			map[string]interface{}{
				"tension":         t.Tension,
				"neg_density":     t.Drivers.NegDensity,
				"sent_volatility": t.Drivers.SentVolatility,
				"market_drawdown": t.Drivers.MarketDrawdown,
			},
			snap.TakenAt,
		)
		s.writeAPI.WritePoint(p)
	}
}

func (s *InfluxSink) Close() {
	if s == nil {
		return
	}
	s.writeAPI.Flush()
	s.client.Close()
}
