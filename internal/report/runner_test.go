package report

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
	"golang.org/x/oauth2"

	"github.com/flushfinder/flushfinder/internal/facilities"
	"github.com/flushfinder/flushfinder/internal/geocode"
	"github.com/flushfinder/flushfinder/internal/logging"
	"github.com/flushfinder/flushfinder/internal/restroom"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testToken = &oauth2.Token{AccessToken: "abc123"}

type fakeFetcher struct {
	buildings []facilities.Building
	listErr   error
	rooms     map[string][]facilities.Room
	roomErrs  map[string]error

	mu     sync.Mutex
	called []string
}

func (f *fakeFetcher) ListBuildings(ctx context.Context, token *oauth2.Token) ([]facilities.Building, error) {
	return f.buildings, f.listErr
}

func (f *fakeFetcher) GetRooms(ctx context.Context, token *oauth2.Token, brn string) ([]facilities.Room, error) {
	f.mu.Lock()
	f.called = append(f.called, brn)
	f.mu.Unlock()

	if err := f.roomErrs[brn]; err != nil {
		return nil, err
	}
	rooms, ok := f.rooms[brn]
	if !ok {
		return []facilities.Room{}, nil
	}
	return rooms, nil
}

type fakeGeocoder struct {
	locations map[string]geocode.Location
	errs      map[string]error
}

func (g *fakeGeocoder) Geocode(ctx context.Context, address string) (geocode.Location, error) {
	if err := g.errs[address]; err != nil {
		return geocode.Location{}, err
	}
	loc, ok := g.locations[address]
	if !ok {
		return geocode.Location{}, geocode.ErrNoMatch
	}
	return loc, nil
}

type recordingSink struct {
	records []Record
	rooms   [][]facilities.Room
	err     error
}

func (s *recordingSink) SaveBuilding(ctx context.Context, rec Record, rooms []facilities.Room) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	s.rooms = append(s.rooms, rooms)
	return nil
}

func roomList(descriptions ...string) []facilities.Room {
	out := make([]facilities.Room, len(descriptions))
	for i, d := range descriptions {
		out[i] = facilities.Room{TypeDescription: d}
	}
	return out
}

// campus sorts as: Angell Hall(0), Dearborn Library(1), Flint Center(2),
// Michigan Stadium(3), Zeta Hall(4).
func campus() *fakeFetcher {
	return &fakeFetcher{
		buildings: []facilities.Building{
			{RecordNumber: "3", LongDescription: "Zeta Hall", StreetNumber: "1", StreetName: "Zeta Dr", City: "Ann Arbor", State: "MI", Postal: "48109"},
			{RecordNumber: "1", LongDescription: "Angell Hall", StreetNumber: "435", StreetName: "S State St", City: "Ann Arbor", State: "MI", Postal: "48109"},
			{RecordNumber: "2", LongDescription: "Dearborn Library", City: "Ann Arbor", State: "MI"},
			{RecordNumber: "4", LongDescription: "Michigan Stadium", StreetNumber: "1201", StreetName: "S Main St", City: "Ann Arbor", State: "MI", Postal: "48104"},
			{RecordNumber: "5", LongDescription: "Flint Center", City: "Flint", State: "MI"},
		},
		rooms: map[string][]facilities.Room{
			"1": roomList("Men's Restroom", "Mechanical Room", "All Gender Restroom"),
			"3": roomList("Lavatory"),
		},
	}
}

func geocoder() *fakeGeocoder {
	return &fakeGeocoder{
		locations: map[string]geocode.Location{
			"435 S State St Ann Arbor MI": {Lat: 42.2766, Lng: -83.7398},
			"1201 S Main St Ann Arbor MI": {Lat: 42.2658, Lng: -83.7487},
			"1 Zeta Dr Ann Arbor MI":      {Lat: 42.3, Lng: -83.7},
		},
	}
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestRunner_Sequential(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(campus(), geocoder(), restroom.New())

	summary, err := r.Run(context.Background(), testToken, &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"(0, 'Angell Hall', '435', 'S State St', 'Ann Arbor', 'MI', '48109', 42.2766, -83.7398, '1', 2)",
		"(3, 'Michigan Stadium', '1201', 'S Main St', 'Ann Arbor', 'MI', '48104', 42.2658, -83.7487, '4', 0)",
		"(4, 'Zeta Hall', '1', 'Zeta Dr', 'Ann Arbor', 'MI', '48109', 42.3, -83.7, '3', 1)",
	}, lines(&buf))
	assert.Equal(t, 3, summary.Written)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.NotEmpty(t, summary.RunID)
}

func TestRunner_GeocoderUnavailable(t *testing.T) {
	geo := geocoder()
	geo.errs = map[string]error{"435 S State St Ann Arbor MI": geocode.ErrUnavailable}
	fetcher := campus()

	var buf bytes.Buffer
	summary, err := NewRunner(fetcher, geo, nil).Run(context.Background(), testToken, &buf)
	require.NoError(t, err)

	got := lines(&buf)
	require.Len(t, got, 3)
	assert.Equal(t, "(0, 'Angell Hall', '435', 'S State St', 'Ann Arbor', 'MI', '48109', 0.0, 0.0, '1', 2)", got[0])
	assert.Contains(t, got[1], "42.2658, -83.7487")
	assert.Equal(t, 3, summary.Written)
	assert.Equal(t, []string{"1", "4", "3"}, fetcher.called)
}

func TestRunner_Sequential_AbortsOnError(t *testing.T) {
	fetcher := campus()
	fetcher.roomErrs = map[string]error{
		"4": &facilities.FetchError{Endpoint: facilities.EndpointRoomInfo, Status: 500},
	}

	var buf bytes.Buffer
	summary, err := NewRunner(fetcher, geocoder(), nil).Run(context.Background(), testToken, &buf)
	require.Error(t, err)

	var fetchErr *facilities.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 500, fetchErr.Status)
	assert.Contains(t, err.Error(), "Michigan Stadium")

	// lines written before the failure stay in place
	assert.Equal(t, []string{
		"(0, 'Angell Hall', '435', 'S State St', 'Ann Arbor', 'MI', '48109', 42.2766, -83.7398, '1', 2)",
	}, lines(&buf))
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, []string{"1", "4"}, fetcher.called, "run must stop at the failing building")
}

func TestRunner_Sequential_HardGeocodeError(t *testing.T) {
	geo := geocoder()
	geo.errs = map[string]error{"435 S State St Ann Arbor MI": errors.New("google: REQUEST_DENIED")}

	var buf bytes.Buffer
	_, err := NewRunner(campus(), geo, nil).Run(context.Background(), testToken, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
	assert.Empty(t, buf.String())
}

func TestRunner_Pool_IsolatesFailures(t *testing.T) {
	fetcher := campus()
	fetcher.roomErrs = map[string]error{
		"4": &facilities.FetchError{Endpoint: facilities.EndpointRoomInfo, Status: 502},
	}

	var buf bytes.Buffer
	summary, err := NewRunner(fetcher, geocoder(), nil, WithWorkers(4)).Run(context.Background(), testToken, &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"(0, 'Angell Hall', '435', 'S State St', 'Ann Arbor', 'MI', '48109', 42.2766, -83.7398, '1', 2)",
		"(4, 'Zeta Hall', '1', 'Zeta Dr', 'Ann Arbor', 'MI', '48109', 42.3, -83.7, '3', 1)",
	}, lines(&buf))
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.ElementsMatch(t, []string{"1", "3", "4"}, fetcher.called)
}

func TestRunner_Pool_MatchesSequential(t *testing.T) {
	var seq, pool bytes.Buffer

	_, err := NewRunner(campus(), geocoder(), nil).Run(context.Background(), testToken, &seq)
	require.NoError(t, err)
	_, err = NewRunner(campus(), geocoder(), nil, WithWorkers(3)).Run(context.Background(), testToken, &pool)
	require.NoError(t, err)

	assert.Equal(t, seq.String(), pool.String())
}

func TestRunner_Sink(t *testing.T) {
	sink := &recordingSink{}

	var buf bytes.Buffer
	_, err := NewRunner(campus(), geocoder(), nil, WithSink(sink)).Run(context.Background(), testToken, &buf)
	require.NoError(t, err)

	require.Len(t, sink.records, 3)
	assert.Equal(t, "1", sink.records[0].BRN)
	assert.Equal(t, 0, sink.records[0].Index)
	assert.Equal(t, "3", sink.records[2].BRN)
	assert.Equal(t, roomList("Men's Restroom", "All Gender Restroom"), sink.rooms[0])
	assert.Empty(t, sink.rooms[1])
}

func TestRunner_SinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}

	var buf bytes.Buffer
	_, err := NewRunner(campus(), geocoder(), nil, WithSink(sink)).Run(context.Background(), testToken, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRunner_ListError(t *testing.T) {
	fetcher := &fakeFetcher{listErr: &facilities.FetchError{Endpoint: facilities.EndpointBuildingInfo, Status: 401}}

	var buf bytes.Buffer
	_, err := NewRunner(fetcher, geocoder(), nil).Run(context.Background(), testToken, &buf)
	require.Error(t, err)

	var fetchErr *facilities.FetchError
	assert.True(t, errors.As(err, &fetchErr))
	assert.Empty(t, buf.String())
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		var buf bytes.Buffer
		_, err := NewRunner(campus(), geocoder(), nil, WithWorkers(workers)).Run(ctx, testToken, &buf)
		assert.ErrorIs(t, err, context.Canceled, "workers=%d", workers)
		assert.Empty(t, buf.String())
	}
}

func TestRunner_Skip(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		building facilities.Building
		want     bool
	}{
		{"ann arbor", nil, facilities.Building{LongDescription: "Angell Hall", City: "Ann Arbor"}, false},
		{"dearborn campus", nil, facilities.Building{LongDescription: "UM-Dearborn Union", City: "Ann Arbor"}, true},
		{"campus match is case-sensitive", nil, facilities.Building{LongDescription: "dearborn annex", City: "Ann Arbor"}, false},
		{"other city", nil, facilities.Building{LongDescription: "Flint Center", City: "Flint"}, true},
		{"city substring", nil, facilities.Building{LongDescription: "Hall", City: "Ann Arbor Township"}, false},
		{"empty city", nil, facilities.Building{LongDescription: "Hall"}, true},
		{"no city requirement", []Option{WithRequiredCity("")}, facilities.Building{LongDescription: "Flint Center", City: "Flint"}, false},
		{"custom campus", []Option{WithExcludedCampus("Flint")}, facilities.Building{LongDescription: "UM-Dearborn Union", City: "Ann Arbor"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(&fakeFetcher{}, nil, nil, tt.opts...)
			assert.Equal(t, tt.want, r.Skip(tt.building))
		})
	}
}

func TestRunner_LogsCarryRunAndTraceIDs(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	var logs bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&logs, nil)))
	r := NewRunner(campus(), geocoder(), restroom.New(), WithLogger(logger))

	var buf bytes.Buffer
	summary, err := r.Run(context.Background(), testToken, &buf)
	require.NoError(t, err)

	var runSpan sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == "report.Run" {
			runSpan = span
		}
	}
	require.NotNil(t, runSpan)

	out := logs.String()
	assert.Contains(t, out, "run_id="+summary.RunID)
	assert.Contains(t, out, "trace_id="+runSpan.SpanContext().TraceID().String())
}

func TestRunner_CountsWithoutSink(t *testing.T) {
	fetcher := campus()
	fetcher.rooms["1"] = roomList("Men's Restroom", "Janitor Closet (Restroom supplies)", "Office")

	var plain, sunk bytes.Buffer
	filter := restroom.New(restroom.WithExclusions(true))

	_, err := NewRunner(fetcher, geocoder(), filter).Run(context.Background(), testToken, &plain)
	require.NoError(t, err)

	sink := &recordingSink{}
	_, err = NewRunner(fetcher, geocoder(), filter, WithSink(sink)).Run(context.Background(), testToken, &sunk)
	require.NoError(t, err)

	assert.Equal(t, sunk.String(), plain.String())
	assert.Contains(t, plain.String(), "'1', 1)")
	require.NotEmpty(t, sink.rooms)
	assert.Len(t, sink.rooms[0], 1)
}
