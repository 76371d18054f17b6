package casefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"casefeed/lib/identity"
	"casefeed/lib/notify"
	"casefeed/lib/recency"
	"casefeed/lib/scrapers/orthobullets/core"
	"casefeed/lib/scrapers/orthobullets/detail"
	"casefeed/lib/scrapers/orthobullets/listing"
	"casefeed/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("casefeed.services.casefeed")
var meter = otel.Meter("casefeed.services.casefeed")

var candidatesCounter, _ = meter.Int64Counter("casefeed.candidates")
var failuresCounter, _ = meter.Int64Counter("casefeed.item_failures")
var retainedCounter, _ = meter.Int64Counter("casefeed.retained")

var (
	ErrNoCandidates    = errors.New("no case links found on the listing page")
	ErrNothingRetained = errors.New("no cases within the recency window")
)

// Fetcher retrieves and parses a page, core.Client is the implementation
// used outside of tests.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*core.Page, error)
}

type Service struct {
	config  Config
	fetcher Fetcher
	store   identity.Store
	now     func() time.Time
}

func NewService(config Config, fetcher Fetcher, store identity.Store) (*Service, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}
	return &Service{
		config:  config,
		fetcher: fetcher,
		store:   store,
		now:     timezone.Now,
	}, nil
}

// Report summarizes a run.
type Report struct {
	Candidates int
	Failed     int
	Records    []CaseRecord
}

func (r Report) NewRecords() []CaseRecord {
	var out []CaseRecord
	for _, rec := range r.Records {
		if rec.New {
			out = append(out, rec)
		}
	}
	return out
}

// Run executes one pipeline pass: fetch the listing, extract every
// candidate, keep the recent ones, then write both documents and the
// identity store. The documents are written on every path once the run
// has begun, empty when nothing could be collected.
//
// ErrNothingRetained is returned when the run succeeded but produced no
// records.
func (s *Service) Run(ctx context.Context) (report Report, err error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	now := timezone.Normalize(s.now())
	seen := s.store.Load(ctx)
	slog.DebugContext(ctx, "loaded identity set", "size", len(seen))

	report.Records = []CaseRecord{}
	filtered := false
	defer func() {
		writeErr := s.writeOutputs(ctx, now, report.Records)
		if filtered {
			for _, rec := range report.Records {
				seen.Add(rec.ID)
			}
			if saveErr := s.store.Save(ctx, seen); saveErr != nil {
				writeErr = errors.Join(writeErr, fmt.Errorf("save identity store: %w", saveErr))
			}
		}
		if writeErr != nil {
			err = errors.Join(err, writeErr)
		}
		if err != nil && !errors.Is(err, ErrNothingRetained) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	page, err := s.fetcher.Fetch(ctx, s.config.ListingUrl)
	if err != nil {
		return report, fmt.Errorf("fetch listing: %w", err)
	}

	candidates := listing.Collect(ctx, page.Doc, s.config.listingOptions(), now)
	report.Candidates = len(candidates)
	candidatesCounter.Add(ctx, int64(len(candidates)))
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	if len(candidates) == 0 {
		return report, ErrNoCandidates
	}
	slog.InfoContext(ctx, "collected candidates", "count", len(candidates))

	results := make([]ItemResult, 0, len(candidates))
	for _, candidate := range candidates {
		result := s.process(ctx, candidate)
		if result.Err != nil {
			report.Failed++
			failuresCounter.Add(ctx, 1)
			slog.WarnContext(ctx, "failed to process case", "url", candidate.URL, "err", result.Err)
			continue
		}
		results = append(results, result)
	}

	retained := recency.Retain(results, func(r ItemResult) *time.Time {
		return recency.Resolve(r.Candidate.Hint, r.Record.PublishedAt)
	}, recency.Options{
		Now:            now,
		Window:         s.config.Window.Std(),
		IncludeUndated: s.config.IncludeUndated,
	})
	filtered = true

	for _, dated := range retained {
		rec := dated.Item.Record
		rec.EffectiveAt = timezone.Normalize(dated.EffectiveAt)
		rec.New = !seen.Has(rec.ID)
		report.Records = append(report.Records, rec)
	}
	retainedCounter.Add(ctx, int64(len(report.Records)))
	span.SetAttributes(
		attribute.Int("failed", report.Failed),
		attribute.Int("retained", len(report.Records)),
	)
	slog.InfoContext(
		ctx, "filtered cases",
		"processed", len(results),
		"failed", report.Failed,
		"retained", len(report.Records),
		"window", s.config.Window.String(),
	)

	s.notify(ctx, report.NewRecords())

	if len(report.Records) == 0 {
		return report, ErrNothingRetained
	}
	return report, nil
}

// process fetches and extracts a single case. Panics are turned into an
// item failure so one bad page cannot abort the run.
func (s *Service) process(ctx context.Context, candidate listing.Candidate) (result ItemResult) {
	ctx, span := tracer.Start(ctx, "process")
	defer span.End()
	span.SetAttributes(attribute.String("url", candidate.URL))

	result.Candidate = candidate
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic while processing %s: %v", candidate.URL, r)
		}
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, "failed to process case")
		}
	}()

	page, err := s.fetcher.Fetch(ctx, candidate.URL)
	if err != nil {
		result.Err = err
		return result
	}

	fields := detail.Extract(ctx, candidate.URL, page.Doc, s.config.detailOptions())
	result.Record = CaseRecord{
		ID:          identity.Fingerprint(candidate.URL),
		URL:         candidate.URL,
		Title:       fields.Title,
		Author:      fields.Author,
		BodyText:    fields.BodyText,
		SectionText: fields.SectionText,
		Images:      fields.Images,
		PublishedAt: fields.PublishedAt,
	}
	return result
}

func (s *Service) notify(ctx context.Context, records []CaseRecord) {
	if !s.config.Notify.Enabled() || len(records) == 0 {
		return
	}
	entries := make([]notify.Entry, len(records))
	for i, rec := range records {
		entries[i] = notify.Entry{
			Title:       rec.Title,
			URL:         rec.URL,
			Author:      rec.Author,
			PublishedAt: rec.EffectiveAt,
		}
	}
	err := notify.Send(ctx, s.config.Notify, entries)
	if err != nil {
		slog.WarnContext(ctx, "failed to send new case notification", "err", err)
		return
	}
	slog.InfoContext(ctx, "sent new case notification", "count", len(entries))
}

var _ Fetcher = (*core.Client)(nil)
