package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"sjsage522/listingsync/internal/crawler"
	"sjsage522/listingsync/internal/listing"
	"sjsage522/listingsync/logger"
	apperrors "sjsage522/listingsync/pkg/errors"
	"sjsage522/listingsync/services/mirror"
	"sjsage522/listingsync/services/publisher"
	"sjsage522/listingsync/services/store"

	"github.com/google/uuid"
)

// EventListingCreated is the publisher key for listings seen for the first time
const EventListingCreated = "listing.created"

// Summary reports the outcome of one run
type Summary struct {
	RunID         string
	Fetched       int
	Skipped       int
	FailedSources int
	Inserted      int
	Updated       int
	Expired       int
	Total         int
}

// Worker runs one synchronization: load, fetch, enrich, merge, expire, save
type Worker struct {
	crawlers      []crawler.Crawler
	store         store.Store
	enricher      *Enricher
	publisher     publisher.Publisher
	mirror        mirror.Mirror
	fetchLimit    int
	retentionDays int
	now           func() time.Time
}

// Option configures optional worker collaborators
type Option func(*Worker)

// WithPublisher announces newly inserted listings after a successful save
func WithPublisher(pub publisher.Publisher) Option {
	return func(w *Worker) { w.publisher = pub }
}

// WithMirror copies the saved collection into a mirror
func WithMirror(m mirror.Mirror) Option {
	return func(w *Worker) { w.mirror = m }
}

// WithClock replaces the run clock
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// NewWorker creates a new worker
func NewWorker(
	crawlers []crawler.Crawler,
	st store.Store,
	enricher *Enricher,
	fetchLimit int,
	retentionDays int,
	opts ...Option,
) *Worker {
	w := &Worker{
		crawlers:      crawlers,
		store:         st,
		enricher:      enricher,
		fetchLimit:    fetchLimit,
		retentionDays: retentionDays,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// batch is what one crawler produced in a run
type batch struct {
	crawler crawler.Crawler
	records []crawler.RawRecord
	err     error
}

// Run performs one synchronization. Source failures are logged and never
// abort the run; only a failed save is returned as an error.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	log := logger.ForWorker().WithField("run_id", summary.RunID)

	start := w.now()
	today := listing.FormatDate(start)

	prior := w.store.Load()
	priorIndex := listing.Index(prior)

	batches := w.fetchAll(ctx)

	incoming := make([]listing.Listing, 0)
	for _, b := range batches {
		if b.err != nil {
			summary.FailedSources++
			log.Error().
				Err(b.err).
				Str("crawler", b.crawler.GetName()).
				Bool("rate_limited", isRateLimited(b.err)).
				Int("kept", len(b.records)).
				Msg("Source fetch failed")
		}

		summary.Fetched += len(b.records)
		for _, raw := range b.records {
			var priorRecord *listing.Listing
			if p, ok := priorIndex[identityOf(raw)]; ok {
				priorRecord = &p
			}

			l, ok := w.enricher.Enrich(ctx, raw, priorRecord, today)
			if !ok {
				summary.Skipped++
				continue
			}
			incoming = append(incoming, l)
		}
	}

	merged, stats := listing.Merge(prior, incoming)
	kept, expired := listing.Expire(merged, w.retentionDays, start)
	listing.SortByObserved(kept)

	summary.Inserted = stats.Inserted
	summary.Updated = stats.Updated
	summary.Expired = expired
	summary.Total = len(kept)

	if err := w.store.Save(kept); err != nil {
		log.Error().Err(err).Msg("Failed to save listings, prior state left untouched")
		return summary, err
	}

	w.announce(ctx, log, created(priorIndex, kept))
	w.syncMirror(ctx, log, kept)

	log.Info().
		Int("fetched", summary.Fetched).
		Int("skipped", summary.Skipped).
		Int("failed_sources", summary.FailedSources).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("expired", summary.Expired).
		Int("total", summary.Total).
		Dur("elapsed", w.now().Sub(start)).
		Msg("Sync run completed")

	return summary, nil
}

// fetchAll runs every crawler concurrently. Each goroutine owns one slot,
// and slots keep registration order so the merge is deterministic.
func (w *Worker) fetchAll(ctx context.Context) []batch {
	batches := make([]batch, len(w.crawlers))

	var wg sync.WaitGroup
	for i, c := range w.crawlers {
		wg.Add(1)
		go func(i int, c crawler.Crawler) {
			defer wg.Done()
			records, err := c.FetchListings(ctx, w.fetchLimit)
			batches[i] = batch{crawler: c, records: records, err: err}

			logger.ForCrawler(c.GetName()).Debug().
				Int("records", len(records)).
				Msg("Fetched listings")
		}(i, c)
	}
	wg.Wait()

	return batches
}

// created returns the saved listings whose identity was not in the prior state
func created(priorIndex map[string]listing.Listing, saved []listing.Listing) []listing.Listing {
	fresh := make([]listing.Listing, 0)
	for _, l := range saved {
		if _, ok := priorIndex[l.IdentityURL]; !ok {
			fresh = append(fresh, l)
		}
	}
	return fresh
}

func (w *Worker) announce(ctx context.Context, log *logger.Logger, fresh []listing.Listing) {
	if w.publisher == nil || len(fresh) == 0 {
		return
	}

	published := 0
	for _, l := range fresh {
		data, err := json.Marshal(l)
		if err != nil {
			log.Error().Err(err).Str("identity_url", l.IdentityURL).Msg("Failed to encode listing")
			continue
		}
		if err := w.publisher.Publish(ctx, EventListingCreated, data); err != nil {
			log.Error().
				Err(apperrors.NewPublisher(l.Source, "publish "+l.IdentityURL, err)).
				Msg("Failed to publish listing")
			continue
		}
		published++
	}

	if err := w.publisher.TrimStreams(ctx); err != nil {
		log.Error().Err(apperrors.NewPublisher("", "trim streams", err)).Msg("Failed to trim streams")
	}

	log.Debug().Int("published", published).Msg("Announced new listings")
}

func (w *Worker) syncMirror(ctx context.Context, log *logger.Logger, saved []listing.Listing) {
	if w.mirror == nil {
		return
	}
	if err := w.mirror.Sync(ctx, saved); err != nil {
		log.Error().Err(err).Msg("Failed to mirror listings")
	}
}

func isRateLimited(err error) bool {
	return errors.Is(err, apperrors.ErrRateLimit)
}
