package mobility

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

const movingAvgWindow = 7

type Config struct {
	// URL of the checkpoint throughput CSV.
	Address    string
	HTTPClient *http.Client
	Tracer     tracing.Tracer
}

// Client reads TSA checkpoint passenger throughput. The CSV carries a
// Date column, the current-year count, and optionally a 2019 baseline
// column used for the delta-vs-2019 metric.
type Client interface {
	Collect(ctx context.Context, lastN int) (domain.MobilityStats, error)
}

type client struct {
	config *Config
}

func NewClient(cfg *Config) Client {
	return &client{config: cfg}
}

func (c client) Collect(ctx context.Context, lastN int) (domain.MobilityStats, error) {
	ctx, span := c.config.Tracer.Start(ctx, "adapters.mobility.Collect")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Address, nil)
	if err != nil {
		return domain.MobilityStats{}, err
	}

	c.config.Tracer.InjectHTTP(ctx, req.Header)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return domain.MobilityStats{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.MobilityStats{}, fmt.Errorf("mobility endpoint returned status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return domain.MobilityStats{}, err
	}
	if len(records) < 2 {
		return domain.MobilityStats{}, fmt.Errorf("mobility csv has no data rows")
	}

	dateIdx, countIdx, baseIdx := columnIndexes(records[0])
	if dateIdx < 0 || countIdx < 0 {
		return domain.MobilityStats{}, fmt.Errorf("mobility csv missing date or count column")
	}

	points := make([]domain.MobilityPoint, 0, len(records)-1)
	for _, row := range records[1:] {
		if dateIdx >= len(row) || countIdx >= len(row) {
			continue
		}

		date, err := parseDate(row[dateIdx])
		if err != nil {
			continue
		}
		count, err := parseCount(row[countIdx])
		if err != nil {
			continue
		}

		p := domain.MobilityPoint{Date: date, Throughput: count}
		if baseIdx >= 0 && baseIdx < len(row) {
			if base, err := parseCount(row[baseIdx]); err == nil {
				p.Baseline = base
			}
		}
		points = append(points, p)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	delta := deltaVsBaseline(points)

	if lastN > 0 && len(points) > lastN {
		points = points[len(points)-lastN:]
	}

	return domain.MobilityStats{Points: points, DeltaVsBase: delta}, nil
}

func columnIndexes(header []string) (dateIdx, countIdx, baseIdx int) {
	dateIdx, countIdx, baseIdx = -1, -1, -1
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(name, "date"):
			dateIdx = i
		case strings.Contains(name, "2019"):
			baseIdx = i
		case countIdx < 0 && name != "":
			countIdx = i
		}
	}
	return dateIdx, countIdx, baseIdx
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"1/2/2006", "2006-01-02", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseCount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty count")
	}
	return strconv.ParseInt(s, 10, 64)
}

// deltaVsBaseline compares the 7-day moving average of the current
// series against the 2019 baseline column's 7-day average over the same
// most recent days. Returns 0 when the baseline is absent.
func deltaVsBaseline(points []domain.MobilityPoint) float64 {
	if len(points) < movingAvgWindow {
		return 0
	}

	recent := points[len(points)-movingAvgWindow:]
	var cur, base float64
	for _, p := range recent {
		cur += float64(p.Throughput)
		base += float64(p.Baseline)
	}
	if base == 0 {
		return 0
	}
	return (cur - base) / base * 100.0
}
