package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/SuOnTheRun/intel-hub/internal/adapters/feeds"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/markets"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/mobility"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/newsapi"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/repository/snapshot"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/timeseries"
	"github.com/SuOnTheRun/intel-hub/internal/adapters/trends"
	"github.com/SuOnTheRun/intel-hub/internal/config"
	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/internal/services/alerts"
	"github.com/SuOnTheRun/intel-hub/internal/services/analysis"
	"github.com/SuOnTheRun/intel-hub/internal/services/entities"
	"github.com/SuOnTheRun/intel-hub/internal/services/narratives"
	"github.com/SuOnTheRun/intel-hub/internal/services/sentiment"
	"github.com/SuOnTheRun/intel-hub/pkg/metrics"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

const (
	topNarratives    = 3
	topEntities      = 8
	mobilityLastDays = 30
	minKeyedArticles = 10
	snapshotAgeTick  = 30 * time.Second
)

// Collectors bundles the source adapters the pipeline fans out to.
type Collectors struct {
	Feeds    feeds.Client
	NewsAPI  newsapi.Client
	Trends   trends.Client
	Markets  markets.Client
	Mobility mobility.Client
}

// Analyzers bundles the analysis stages run after collection.
type Analyzers struct {
	Sentiment  sentiment.Service
	Entities   entities.Service
	Narratives narratives.Service
	Analysis   analysis.Service
	Alerts     alerts.Service
}

type Service interface {
	// Refresh runs a full collect-analyze-store cycle. With force
	// false, fresh cached source results are reused.
	Refresh(ctx context.Context, force bool) (*domain.Snapshot, error)
	Latest(ctx context.Context) (*domain.Snapshot, error)
	Ready() bool
	Start()
	Stop()
}

type service struct {
	cfg        config.Config
	catalog    config.Catalog
	collectors Collectors
	analyzers  Analyzers
	repo       snapshot.Repository
	sink       timeseries.Sink
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
	logger     *zap.Logger

	cache  *gocache.Cache
	group  singleflight.Group
	done   chan struct{}
	stopMu sync.Once

	mu       sync.RWMutex
	lastGood map[string]interface{}
	ready    bool
	takenAt  time.Time
}

func NewService(
	cfg config.Config,
	catalog config.Catalog,
	collectors Collectors,
	analyzers Analyzers,
	repo snapshot.Repository,
	sink timeseries.Sink,
	m *metrics.Metrics,
	tracer tracing.Tracer,
	logger *zap.Logger,
) Service {
	return &service{
		cfg:        cfg,
		catalog:    catalog,
		collectors: collectors,
		analyzers:  analyzers,
		repo:       repo,
		sink:       sink,
		metrics:    m,
		tracer:     tracer,
		logger:     logger,
		cache:      gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		done:       make(chan struct{}),
		lastGood:   map[string]interface{}{},
	}
}

// Start runs the background refresh loop: one immediate cycle, then one
// per interval until Stop.
func (s *service) Start() {
	go func() {
		s.runCycle()

		ticker := time.NewTicker(s.cfg.RefreshInterval)
		defer ticker.Stop()
		age := time.NewTicker(snapshotAgeTick)
		defer age.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.runCycle()
			case <-age.C:
				s.observeAge()
			}
		}
	}()
}

func (s *service) observeAge() {
	s.mu.RLock()
	takenAt := s.takenAt
	s.mu.RUnlock()

	if takenAt.IsZero() {
		return
	}
	s.metrics.SnapshotAge.Set(time.Since(takenAt).Seconds())
}

func (s *service) Stop() {
	s.stopMu.Do(func() { close(s.done) })
}

func (s *service) runCycle() {
	if _, err := s.Refresh(context.Background(), true); err != nil {
		s.logger.Error("scheduled refresh failed", zap.Error(err))
	}
}

func (s *service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *service) Latest(ctx context.Context) (*domain.Snapshot, error) {
	return s.repo.Latest(ctx)
}

func (s *service) Refresh(ctx context.Context, force bool) (*domain.Snapshot, error) {
	v, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return s.refresh(ctx, force)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Snapshot), nil
}

func (s *service) refresh(ctx context.Context, force bool) (*domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "services.ingest.Refresh")
	defer span.End()

	started := time.Now()

	// Hard wall so a slow source can never hang the dashboard.
	collectCtx, cancel := context.WithTimeout(ctx, s.cfg.RefreshWall)
	defer cancel()

	categories := s.catalog.CategoryNames()

	var (
		articles   []domain.Article
		govNotices []domain.GovNotice
		trendRows  []domain.TrendScore
		marketRows []domain.CategoryMarket
		quotes     []domain.Quote
		mobile     domain.MobilityStats
	)

	// Collector failures degrade to the last known good value; the
	// errgroup is for fan-out, not fail-fast.
	g, gctx := errgroup.WithContext(collectCtx)

	g.Go(func() error {
		articles = collect(s, gctx, "news", force, func(ctx context.Context) ([]domain.Article, error) {
			return s.collectNews(ctx, categories)
		})
		return nil
	})
	g.Go(func() error {
		govNotices = collect(s, gctx, "gov", force, func(ctx context.Context) ([]domain.GovNotice, error) {
			return s.collectors.Feeds.CollectGov(ctx, s.cfg.MaxPerSource, s.cfg.LookbackDays)
		})
		return nil
	})
	g.Go(func() error {
		trendRows = collect(s, gctx, "trends", force, func(ctx context.Context) ([]domain.TrendScore, error) {
			if !s.collectors.Trends.Enabled() {
				return nil, nil
			}
			return s.collectors.Trends.CategoryScores(ctx, s.catalog, categories)
		})
		return nil
	})
	g.Go(func() error {
		type marketResult struct {
			Changes []domain.CategoryMarket
			Quotes  []domain.Quote
		}
		res := collect(s, gctx, "markets", force, func(ctx context.Context) (marketResult, error) {
			changes, qs := s.collectors.Markets.CategoryChanges(ctx, s.catalog, s.cfg.LookbackDays)
			return marketResult{Changes: changes, Quotes: qs}, nil
		})
		marketRows, quotes = res.Changes, res.Quotes
		return nil
	})
	g.Go(func() error {
		mobile = collect(s, gctx, "mobility", force, func(ctx context.Context) (domain.MobilityStats, error) {
			return s.collectors.Mobility.Collect(ctx, mobilityLastDays)
		})
		return nil
	})

	_ = g.Wait()

	// Collection may have consumed the whole wall; the rest of the
	// cycle runs under its own deadline so one hung source cannot
	// void a refresh that still gathered data.
	storeCtx, storeCancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RefreshWall)
	defer storeCancel()

	articles = s.analyzers.Sentiment.ScoreArticles(storeCtx, articles)
	stats := s.analyzers.Sentiment.CategoryStats(articles)
	mentions := s.analyzers.Entities.Extract(storeCtx, articles, topEntities)
	stories := s.analyzers.Narratives.Build(storeCtx, articles, topNarratives)
	heat := s.analyzers.Analysis.Heatmap(storeCtx, articles, stats, trendRows, marketRows)
	tension := s.analyzers.Analysis.Tension(storeCtx, heat, stats, mentions)

	snap := &domain.Snapshot{
		ID:         uuid.New().String(),
		TakenAt:    time.Now().UTC(),
		Articles:   articles,
		GovNotices: govNotices,
		Trends:     trendRows,
		Markets:    marketRows,
		Quotes:     quotes,
		Mobility:   mobile,
		Heat:       heat,
		Tension:    tension,
		Narratives: stories,
		Entities:   mentions,
	}

	if err := s.repo.SaveSnapshot(storeCtx, snap); err != nil {
		return nil, err
	}

	s.sink.WriteSnapshot(snap)

	dataAlerts := s.analyzers.Alerts.Evaluate(storeCtx, heat, tension, stats)
	watchAlerts := s.analyzers.Alerts.CollectWatch(storeCtx, s.catalog.Watch)
	if err := s.analyzers.Alerts.Publish(storeCtx, append(dataAlerts, watchAlerts...)); err != nil {
		s.logger.Error("alert publish failed", zap.Error(err))
	}

	s.mu.Lock()
	s.ready = true
	s.takenAt = snap.TakenAt
	s.mu.Unlock()

	s.metrics.RefreshTotal.Inc()
	s.metrics.RefreshDuration.Observe(time.Since(started).Seconds())
	s.metrics.SnapshotAge.Set(0)

	s.logger.Info("refresh complete",
		zap.Int("articles", len(articles)),
		zap.Int("gov", len(govNotices)),
		zap.Int("alerts", len(dataAlerts)+len(watchAlerts)),
		zap.Duration("took", time.Since(started)),
	)

	return snap, nil
}

// collectNews prefers the keyed API per category and falls back to RSS
// when it is disabled or returns too little.
func (s *service) collectNews(ctx context.Context, categories []string) ([]domain.Article, error) {
	if s.collectors.NewsAPI.Enabled() {
		var keyed []domain.Article
		for _, name := range categories {
			cat, ok := s.catalog.Category(name)
			if !ok {
				continue
			}
			rows, err := s.collectors.NewsAPI.Search(ctx, cat, s.cfg.MaxPerSource)
			if err != nil {
				s.logger.Warn("keyed news source failed", zap.String("category", name), zap.Error(err))
				continue
			}
			keyed = append(keyed, rows...)
		}
		if len(keyed) >= minKeyedArticles {
			return keyed, nil
		}
	}

	return s.collectors.Feeds.CollectNews(ctx, categories, s.cfg.MaxPerSource, s.cfg.LookbackDays)
}

// collect wraps a source fetch with the TTL cache, metrics, and the
// last-known-good fallback.
func collect[T any](s *service, ctx context.Context, source string, force bool, fn func(context.Context) (T, error)) T {
	if !force {
		if v, ok := s.cache.Get(source); ok {
			return v.(T)
		}
	}

	started := time.Now()
	v, err := fn(ctx)
	if err != nil {
		s.metrics.ObserveFetch(source, started, 0, err)
		s.logger.Warn("collector failed, using last known value", zap.String("source", source), zap.Error(err))

		s.mu.RLock()
		prev, ok := s.lastGood[source]
		s.mu.RUnlock()
		if ok {
			return prev.(T)
		}
		var zero T
		return zero
	}

	s.metrics.ObserveFetch(source, started, itemCount(v), nil)
	s.cache.Set(source, v, gocache.DefaultExpiration)

	s.mu.Lock()
	s.lastGood[source] = v
	s.mu.Unlock()

	return v
}

func itemCount(v interface{}) int {
	switch t := v.(type) {
	case []domain.Article:
		return len(t)
	case []domain.GovNotice:
		return len(t)
	case []domain.TrendScore:
		return len(t)
	case domain.MobilityStats:
		return len(t.Points)
	default:
		return 0
	}
}
