package alerts

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SuOnTheRun/intel-hub/internal/adapters/feeds"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/queue"
	"github.com/SuOnTheRun/intel-hub/internal/config"
	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/internal/services/sentiment"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

const AlertsTopic = "alerts"

// Rule thresholds.
const (
	newsZThreshold   = 1.5
	toneThreshold    = -0.30
	marketMoveAbs    = 2.0
	trendsThreshold  = 70.0
	tensionThreshold = 60.0
	maxWatchSources  = 18
	maxItemsPerWatch = 3
	highSeverity     = 4
	mediumSeverity   = 3
	lowSeverity      = 2
)

// AlertsMessage is the queue payload carrying a batch of alerts plus
// the emitting span context, so the consumer's span links back to the
// refresh that produced it.
type AlertsMessage struct {
	Alerts      []domain.Alert      `json:"alerts"`
	SpanContext tracing.SpanContext `json:"spanContext"`
}

type Service interface {
	Evaluate(ctx context.Context, heat []domain.CategoryHeat, tension []domain.CategoryTension, stats map[string]sentiment.Stats) []domain.Alert
	CollectWatch(ctx context.Context, watch config.Watch) []domain.Alert
	Publish(ctx context.Context, alerts []domain.Alert) error
}

type service struct {
	feedClient  feeds.Client
	queueClient queue.Queue
	tracer      tracing.Tracer
	logger      *zap.Logger
}

func NewService(feedClient feeds.Client, queueClient queue.Queue, tracer tracing.Tracer, logger *zap.Logger) Service {
	return &service{
		feedClient:  feedClient,
		queueClient: queueClient,
		tracer:      tracer,
		logger:      logger,
	}
}

// Evaluate applies the data-driven rules to the current heat and
// tension rows.
func (s *service) Evaluate(ctx context.Context, heat []domain.CategoryHeat, tension []domain.CategoryTension, stats map[string]sentiment.Stats) []domain.Alert {
	_, span := s.tracer.Start(ctx, "services.alerts.Evaluate")
	defer span.End()

	tensionByCat := map[string]float64{}
	for _, t := range tension {
		tensionByCat[t.Category] = t.Tension
	}

	now := time.Now().UTC()
	var out []domain.Alert

	add := func(category, detail string, severity int) {
		out = append(out, domain.Alert{
			ID:       uuid.New().String(),
			Kind:     domain.AlertKindData,
			Title:    category,
			Detail:   detail,
			At:       now,
			Severity: severity,
		})
	}

	for _, h := range heat {
		if h.NewsZ >= newsZThreshold {
			add(h.Category, fmt.Sprintf("Elevated news momentum (z=%.2f)", h.NewsZ), mediumSeverity)
		}
		if h.Sentiment <= toneThreshold {
			add(h.Category, fmt.Sprintf("Adverse tone (%.2f)", h.Sentiment), highSeverity)
		}
		if h.MarketPct >= marketMoveAbs || h.MarketPct <= -marketMoveAbs {
			direction := "up"
			if h.MarketPct < 0 {
				direction = "down"
			}
			add(h.Category, fmt.Sprintf("Market moved %s %.2f%%", direction, h.MarketPct), mediumSeverity)
		}
		if h.Trends >= trendsThreshold {
			add(h.Category, fmt.Sprintf("Public interest spiking (trends %.0f)", h.Trends), lowSeverity)
		}
		if t := tensionByCat[h.Category]; t >= tensionThreshold {
			add(h.Category, fmt.Sprintf("Heightened tension (%.0f)", t), highSeverity)
		}
	}

	sortAlerts(out)

	return out
}

// CollectWatch pulls the policy, geo and cyber watch feeds, capped to
// maxWatchSources across all kinds per refresh. Source order is
// shuffled so coverage varies across refreshes.
func (s *service) CollectWatch(ctx context.Context, watch config.Watch) []domain.Alert {
	ctx, span := s.tracer.Start(ctx, "services.alerts.CollectWatch")
	defer span.End()

	remaining := maxWatchSources
	var out []domain.Alert

	for _, group := range []struct {
		kind  string
		feeds map[string]string
	}{
		{domain.AlertKindPolicy, watch.Policy},
		{domain.AlertKindGeo, watch.Geo},
		{domain.AlertKindCyber, watch.Cyber},
	} {
		if remaining <= 0 {
			break
		}
		collected := s.collectKind(ctx, group.kind, group.feeds, remaining)
		remaining -= len(group.feeds)
		out = append(out, collected...)
	}

	sortAlerts(out)

	return out
}

func (s *service) collectKind(ctx context.Context, kind string, sources map[string]string, budget int) []domain.Alert {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	rand.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })

	if len(names) > budget {
		names = names[:budget]
	}

	var out []domain.Alert
	for _, name := range names {
		items, err := s.feedClient.PullFeed(ctx, sources[name], maxItemsPerWatch)
		if err != nil {
			s.logger.Warn("watch feed unavailable", zap.String("source", name), zap.Error(err))
			continue
		}
		for _, it := range items {
			out = append(out, domain.Alert{
				ID:       uuid.New().String(),
				Kind:     kind,
				Title:    name,
				Detail:   it.Title,
				Link:     it.Link,
				At:       it.Published,
				Severity: watchSeverity(kind, name),
			})
		}
	}

	return out
}

// watchSeverity bumps named high-trust sources.
func watchSeverity(kind, source string) int {
	switch kind {
	case domain.AlertKindGeo:
		if strings.Contains(source, "USGS") || strings.Contains(source, "GDACS") {
			return highSeverity
		}
	case domain.AlertKindCyber:
		if strings.Contains(source, "CISA") {
			return highSeverity
		}
	}
	return mediumSeverity
}

// Publish sends the batch to the alerts topic with the current span
// context attached.
func (s *service) Publish(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "services.alerts.Publish")
	defer span.End()

	msg := AlertsMessage{
		Alerts:      alerts,
		SpanContext: tracing.NewSpanContext(span.SpanContext()),
	}

	return s.queueClient.Publish(ctx, AlertsTopic, msg)
}

func sortAlerts(alerts []domain.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Severity != alerts[j].Severity {
			return alerts[i].Severity > alerts[j].Severity
		}
		return alerts[i].At.After(alerts[j].At)
	})
}
