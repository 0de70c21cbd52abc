// Package statuspage runs the two request flows of the status service: the
// report (catalog, live feed, overrides, resolve) and the override mutation
// (read, apply, conditional write).
package statuspage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/pop-status-service/internal/domain"
	"github.com/couchcryptid/pop-status-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const otherStatusLabel = "other"

// CatalogSource lists the known POPs.
type CatalogSource interface {
	FetchPops(ctx context.Context) ([]domain.PopRecord, error)
}

// LiveStatusSource returns the scraped status of each POP.
type LiveStatusSource interface {
	FetchStatuses(ctx context.Context) (domain.LiveStatus, error)
}

// OverrideStore holds the serialized override map. Put must only succeed when
// revision still matches the stored version, unless the backend cannot
// compare (empty revisions).
type OverrideStore interface {
	Get(ctx context.Context) (domain.StoredOverrides, error)
	Put(ctx context.Context, value, revision string) (domain.StoredOverrides, error)
}

// ChangePublisher announces persisted override changes.
type ChangePublisher interface {
	PublishOverrideChange(ctx context.Context, change domain.OverrideChange) error
}

// Service is stateless between requests; every call reads its sources fresh.
type Service struct {
	catalog    CatalogSource
	live       LiveStatusSource
	store      OverrideStore
	publisher  ChangePublisher
	currentPOP string
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
}

// New creates a Service with the given sources and observability.
func New(catalog CatalogSource, live LiveStatusSource, store OverrideStore, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		catalog: catalog,
		live:    live,
		store:   store,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
}

// WithPublisher enables change events.
func (s *Service) WithPublisher(p ChangePublisher) *Service {
	s.publisher = p
	return s
}

// WithCurrentPOP sets the POP code reported as current_pop.
func (s *Service) WithCurrentPOP(code string) *Service {
	s.currentPOP = code
	return s
}

// WithClock swaps the time source used for timings and event timestamps.
func (s *Service) WithClock(c clockwork.Clock) *Service {
	s.clock = c
	return s
}

// CheckReadiness returns nil when the override store answers.
func (s *Service) CheckReadiness(ctx context.Context) error {
	_, err := s.store.Get(ctx)
	return err
}

// Report resolves the status of every catalog POP. With scrape false the live
// feed is not called and POPs without an override report "Not Available".
func (s *Service) Report(ctx context.Context, scrape bool) (domain.StatusReport, error) {
	pops, err := observe(s, domain.SourceCatalog, func() ([]domain.PopRecord, error) {
		return s.catalog.FetchPops(ctx)
	})
	if err != nil {
		return domain.StatusReport{}, err
	}

	var live domain.LiveStatus
	if scrape {
		live, err = observe(s, domain.SourceLiveStatus, func() (domain.LiveStatus, error) {
			return s.live.FetchStatuses(ctx)
		})
		if err != nil {
			return domain.StatusReport{}, err
		}
	}

	overrides, _, err := s.loadOverrides(ctx)
	if err != nil {
		return domain.StatusReport{}, err
	}

	report := domain.BuildReport(s.currentPOP, pops, live, overrides)
	for _, p := range report.PopStatusData {
		s.metrics.ResolvedStatuses.WithLabelValues(statusLabel(p.Status)).Inc()
	}
	s.logger.Debug("status report built", "pops", len(report.PopStatusData), "scrape", scrape, "overrides", len(overrides))
	return report, nil
}

// Mutate applies the directives in rawQuery to the stored override map and
// returns the map as persisted. With no directives it only reads.
//
// The write is conditional on the revision read at the start of the call. A
// concurrent writer in between causes domain.ErrOverrideConflict and nothing is
// written; backends without revisions (empty) keep last-writer-wins.
func (s *Service) Mutate(ctx context.Context, rawQuery string) (domain.OverrideMap, error) {
	directives, err := domain.ParseDirectives(rawQuery)
	if err != nil {
		return nil, err
	}

	current, stored, err := s.loadOverrides(ctx)
	if err != nil {
		return nil, err
	}
	if len(directives) == 0 {
		return current, nil
	}

	next := domain.ApplyDirectives(current, directives)
	written, err := observe(s, domain.SourceOverrideStore, func() (domain.StoredOverrides, error) {
		return s.store.Put(ctx, next.Encode(), stored.Revision)
	})
	if err != nil {
		if errors.Is(err, domain.ErrOverrideConflict) {
			s.metrics.OverrideConflict.Inc()
			s.logger.Warn("override write lost a race", "revision", stored.Revision, "error", err)
		}
		return nil, err
	}

	persisted, err := domain.DecodeOverrides(written.Value)
	if err != nil {
		return nil, &domain.SourceError{Source: domain.SourceOverrideStore, Err: err}
	}
	s.metrics.OverrideWrites.Inc()
	s.metrics.OverrideEntries.Set(float64(len(persisted)))
	s.logger.Info("override map updated",
		"directives", len(directives),
		"entries", len(persisted),
		"revision", written.Revision,
	)

	s.publish(ctx, domain.OverrideChange{
		ID:         uuid.NewString(),
		ChangedAt:  s.clock.Now().UTC(),
		POP:        s.currentPOP,
		Directives: directives,
		Previous:   current,
		Current:    persisted,
	})
	return persisted, nil
}

// statusLabel keeps the metric label set fixed: live feed strings pass through
// to the report verbatim but anything outside the catalog counts as "other".
func statusLabel(status string) string {
	if domain.IsCanonicalStatus(status) {
		return status
	}
	return otherStatusLabel
}

func (s *Service) loadOverrides(ctx context.Context) (domain.OverrideMap, domain.StoredOverrides, error) {
	stored, err := observe(s, domain.SourceOverrideStore, func() (domain.StoredOverrides, error) {
		return s.store.Get(ctx)
	})
	if err != nil {
		return nil, domain.StoredOverrides{}, err
	}

	overrides, err := domain.DecodeOverrides(stored.Value)
	if err != nil {
		return nil, domain.StoredOverrides{}, &domain.SourceError{Source: domain.SourceOverrideStore, Err: err}
	}
	s.metrics.OverrideEntries.Set(float64(len(overrides)))
	return overrides, stored, nil
}

// publish sends a change event. The override write has already happened, so
// a failure is logged and counted but not returned.
func (s *Service) publish(ctx context.Context, change domain.OverrideChange) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOverrideChange(ctx, change); err != nil {
		s.metrics.EventsFailed.Inc()
		s.logger.Warn("publish override change failed", "id", change.ID, "error", err)
		return
	}
	s.metrics.EventsPublished.Inc()
}

// observe times one outbound call and makes sure a failure names its source.
func observe[T any](s *Service, src domain.Source, call func() (T, error)) (T, error) {
	start := s.clock.Now()
	v, err := call()
	s.metrics.UpstreamDuration.WithLabelValues(string(src)).Observe(s.clock.Since(start).Seconds())
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues(string(src)).Inc()
		if _, ok := domain.FailedSource(err); !ok {
			err = &domain.SourceError{Source: src, Err: err}
		}
		var zero T
		return zero, err
	}
	return v, nil
}
