package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/flushfinder/flushfinder/internal/facilities"
	"github.com/flushfinder/flushfinder/internal/geocode"
	"github.com/flushfinder/flushfinder/internal/instrumentation"
	"github.com/flushfinder/flushfinder/internal/logging"
	"github.com/flushfinder/flushfinder/internal/restroom"
)

// Fetcher lists buildings and their rooms.
type Fetcher interface {
	ListBuildings(ctx context.Context, token *oauth2.Token) ([]facilities.Building, error)
	GetRooms(ctx context.Context, token *oauth2.Token, brn string) ([]facilities.Room, error)
}

// Sink receives every reported building together with its restrooms,
// in report order.
type Sink interface {
	SaveBuilding(ctx context.Context, record Record, restrooms []facilities.Room) error
}

// Summary counts what a run did with each building.
type Summary struct {
	RunID   string
	Written int
	Skipped int
	Failed  int
}

// Runner produces the all-buildings text report.
type Runner struct {
	fetcher        Fetcher
	geocoder       geocode.Geocoder
	filter         *restroom.Filter
	sink           Sink
	excludedCampus string
	requiredCity   string
	workers        int
	metrics        *instrumentation.Metrics
	logger         logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the worker pool size. Values below 2 run sequentially.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithExcludedCampus skips buildings whose long description contains campus.
// An empty campus disables the check.
func WithExcludedCampus(campus string) Option {
	return func(r *Runner) { r.excludedCampus = campus }
}

// WithRequiredCity skips buildings whose city does not contain city.
// An empty city disables the check.
func WithRequiredCity(city string) Option {
	return func(r *Runner) { r.requiredCity = city }
}

// WithSink forwards reported buildings to s.
func WithSink(s Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithMetrics records building outcomes on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner. A nil geocoder disables geocoding and a nil
// filter uses the default keyword sets.
func NewRunner(fetcher Fetcher, geocoder geocode.Geocoder, filter *restroom.Filter, opts ...Option) *Runner {
	if geocoder == nil {
		geocoder = geocode.Noop{}
	}
	if filter == nil {
		filter = restroom.New()
	}
	r := &Runner{
		fetcher:        fetcher,
		geocoder:       geocoder,
		filter:         filter,
		excludedCampus: "Dearborn",
		requiredCity:   "Ann Arbor",
		workers:        1,
		logger:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run writes the report for every building to w, one line per reported
// building.
func (r *Runner) Run(ctx context.Context, token *oauth2.Token, w io.Writer) (summary Summary, err error) {
	summary.RunID = uuid.NewString()
	logger := logging.With(r.logger, logging.KeyRunID, summary.RunID)

	ctx, span := instrumentation.StartSpan(ctx, "report.Run",
		attribute.String(instrumentation.SpanAttrRunID, summary.RunID),
	)
	defer span.End()
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		logger = logging.With(logger, logging.KeyTraceID, traceID)
	}

	start := time.Now()
	defer func() {
		span.SetAttributes(
			attribute.Int("report.written", summary.Written),
			attribute.Int("report.skipped", summary.Skipped),
			attribute.Int("report.failed", summary.Failed),
		)
		if err != nil {
			instrumentation.SetSpanError(span, err)
			logger.Error("report run failed",
				logging.Operation("report"),
				logging.Err(err),
				"written", summary.Written,
				logging.KeyDuration, time.Since(start))
			return
		}
		instrumentation.SetSpanSuccess(span)
		logger.Info("report run complete",
			logging.Operation("report"),
			logging.Status(logging.StatusSuccess),
			"written", summary.Written,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
			logging.KeyDuration, time.Since(start))
	}()

	buildings, err := r.fetcher.ListBuildings(ctx, token)
	if err != nil {
		return summary, fmt.Errorf("failed to list buildings: %w", err)
	}
	buildings = SortBuildings(buildings)

	logger.Info("report run started",
		logging.Operation("report"),
		"buildings", len(buildings),
		"workers", r.workers)

	if r.workers > 1 {
		err = r.runPool(ctx, token, buildings, w, logger, &summary)
	} else {
		err = r.runSequential(ctx, token, buildings, w, logger, &summary)
	}
	return summary, err
}

func (r *Runner) runSequential(ctx context.Context, token *oauth2.Token, buildings []facilities.Building, w io.Writer, logger logging.Logger, summary *Summary) error {
	for i, b := range buildings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Skip(b) {
			r.skipped(ctx, b, logger, summary)
			continue
		}

		rec, rooms, err := r.process(ctx, token, i, b, logger)
		if err != nil {
			r.metrics.RecordBuilding(ctx, instrumentation.BuildingFailed)
			return fmt.Errorf("building %s (%s): %w", b.RecordNumber, b.LongDescription, err)
		}
		if err := r.emit(ctx, w, rec, rooms, summary); err != nil {
			return err
		}
	}
	return nil
}

type result struct {
	record  Record
	rooms   []facilities.Room
	skipped bool
	err     error
}

func (r *Runner) runPool(ctx context.Context, token *oauth2.Token, buildings []facilities.Building, w io.Writer, logger logging.Logger, summary *Summary) error {
	results := make([]result, len(buildings))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, b := range buildings {
		if r.Skip(b) {
			results[i].skipped = true
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			results[i].record, results[i].rooms, results[i].err = r.process(ctx, token, i, b, logger)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	for i, res := range results {
		b := buildings[i]
		switch {
		case res.skipped:
			r.skipped(ctx, b, logger, summary)
		case res.err != nil:
			summary.Failed++
			r.metrics.RecordBuilding(ctx, instrumentation.BuildingFailed)
			logger.Warn("building failed",
				logging.Building(b.RecordNumber),
				"description", b.LongDescription,
				logging.Status(logging.StatusError),
				logging.Err(res.err))
		default:
			if err := r.emit(ctx, w, res.record, res.rooms, summary); err != nil {
				return err
			}
		}
	}
	return nil
}

// Skip reports whether b falls outside the report: on the excluded campus or
// outside the required city. Both checks are case-sensitive.
func (r *Runner) Skip(b facilities.Building) bool {
	if r.excludedCampus != "" && strings.Contains(b.LongDescription, r.excludedCampus) {
		return true
	}
	if r.requiredCity != "" && !strings.Contains(b.City, r.requiredCity) {
		return true
	}
	return false
}

// process geocodes b and counts its restrooms.
func (r *Runner) process(ctx context.Context, token *oauth2.Token, index int, b facilities.Building, logger logging.Logger) (Record, []facilities.Room, error) {
	ctx, span := instrumentation.StartSpan(ctx, "report.building",
		attribute.String(instrumentation.SpanAttrBuilding, b.RecordNumber),
	)
	defer span.End()

	address := b.Address()
	loc, err := r.geocoder.Geocode(ctx, address)
	if err != nil {
		if !geocode.Recoverable(err) {
			instrumentation.SetSpanError(span, err)
			return Record{}, nil, fmt.Errorf("geocode %q: %w", address, err)
		}
		logger.Debug("geocoding failed, using zero coordinates",
			logging.Building(b.RecordNumber),
			"address", address,
			logging.Err(err))
		loc = geocode.Location{}
	}

	rooms, err := r.fetcher.GetRooms(ctx, token, b.RecordNumber)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return Record{}, nil, err
	}

	// only a sink needs the restrooms themselves
	var restrooms []facilities.Room
	count := 0
	if r.sink != nil {
		restrooms = r.filter.Restrooms(rooms)
		count = len(restrooms)
	} else {
		count = r.filter.Count(rooms)
	}

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrRestrooms, count))
	instrumentation.SetSpanSuccess(span)

	return NewRecord(index, b, loc, count), restrooms, nil
}

func (r *Runner) emit(ctx context.Context, w io.Writer, rec Record, rooms []facilities.Room, summary *Summary) error {
	if _, err := io.WriteString(w, rec.String()+"\n"); err != nil {
		return fmt.Errorf("failed to write report line: %w", err)
	}
	if r.sink != nil {
		if err := r.sink.SaveBuilding(ctx, rec, rooms); err != nil {
			return fmt.Errorf("failed to save building %s: %w", rec.BRN, err)
		}
	}
	summary.Written++
	r.metrics.RecordBuilding(ctx, instrumentation.BuildingReported)
	r.metrics.AddRestrooms(ctx, rec.Restrooms)
	return nil
}

func (r *Runner) skipped(ctx context.Context, b facilities.Building, logger logging.Logger, summary *Summary) {
	summary.Skipped++
	r.metrics.RecordBuilding(ctx, instrumentation.BuildingSkipped)
	logger.Debug("building skipped",
		logging.Building(b.RecordNumber),
		"description", b.LongDescription,
		"city", b.City,
		logging.Status(logging.StatusSkipped))
}

// SortBuildings returns a copy of buildings ordered by long description.
// The comparison is byte-wise and ties keep their input order.
func SortBuildings(buildings []facilities.Building) []facilities.Building {
	sorted := make([]facilities.Building, len(buildings))
	copy(sorted, buildings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LongDescription < sorted[j].LongDescription
	})
	return sorted
}
