package airquality_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/airwatchpro/airwatch/internal/airquality"
)

// stubAdapter returns a fixed reading or error and counts calls.
type stubAdapter struct {
	source  airquality.Source
	reading *airquality.Reading
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (s *stubAdapter) Source() airquality.Source { return s.source }

func (s *stubAdapter) Fetch(ctx context.Context, c airquality.Coordinate) (*airquality.Reading, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	r := *s.reading
	return &r, nil
}

func liveReading(aqi int) *airquality.Reading {
	return &airquality.Reading{
		Location:   "Queens College",
		AQI:        aqi,
		Pollutants: airquality.Pollutants{airquality.PollutantPM25: 9.5},
		Timestamp:  observedAt,
	}
}

type recordingRecorder struct {
	mu          sync.Mutex
	attempts    map[string]int
	resolutions map[airquality.Source]int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{attempts: map[string]int{}, resolutions: map[airquality.Source]int{}}
}

func (r *recordingRecorder) ObserveAttempt(source airquality.Source, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[string(source)+"/"+outcome]++
}

func (r *recordingRecorder) ObserveResolution(source airquality.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions[source]++
}

type staticGate struct {
	disabled      map[airquality.Source]bool
	syntheticOnly bool
}

func (g staticGate) SourceEnabled(_ context.Context, s airquality.Source) bool { return !g.disabled[s] }
func (g staticGate) SyntheticOnly(context.Context) bool                       { return g.syntheticOnly }

func newResolver(adapters ...airquality.Adapter) *airquality.Resolver {
	return airquality.NewResolver(airquality.ResolverConfig{
		Adapters:  adapters,
		Generator: seededGenerator(5, clockwork.NewFakeClockAt(observedAt)),
		Logger:    zerolog.Nop(),
	})
}

func TestResolver_FirstSuccessShortCircuits(t *testing.T) {
	first := &stubAdapter{source: airquality.SourceGroundStation, reading: liveReading(42)}
	second := &stubAdapter{source: airquality.SourceAirNow, reading: liveReading(88)}

	r, err := newResolver(first, second).Resolve(context.Background(), newYork)
	require.NoError(t, err)

	assert.Equal(t, airquality.SourceGroundStation, r.Source)
	assert.Equal(t, 42, r.AQI)
	assert.Equal(t, newYork, r.Coordinates)
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestResolver_FallsThroughInPriorityOrder(t *testing.T) {
	first := &stubAdapter{
		source: airquality.SourceGroundStation,
		err:    airquality.NewFailure(airquality.SourceGroundStation, airquality.ReasonNotConfigured, nil),
	}
	second := &stubAdapter{source: airquality.SourceAirNow, reading: liveReading(88)}
	third := &stubAdapter{source: airquality.SourceTEMPO, reading: liveReading(12)}

	r, err := newResolver(first, second, third).Resolve(context.Background(), newYork)
	require.NoError(t, err)

	assert.Equal(t, airquality.SourceAirNow, r.Source)
	assert.Equal(t, airquality.LevelModerate, r.Level())
	assert.Equal(t, int32(0), third.calls.Load())
}

func TestResolver_AllFailFallsBackToSynthetic(t *testing.T) {
	adapters := []airquality.Adapter{
		&stubAdapter{source: airquality.SourceGroundStation, err: errors.New("connection refused")},
		&stubAdapter{source: airquality.SourceAirNow, err: airquality.NewFailure(airquality.SourceAirNow, airquality.ReasonUnauthorized, nil)},
		&stubAdapter{source: airquality.SourceTEMPO, err: airquality.NewFailure(airquality.SourceTEMPO, airquality.ReasonMalformedResponse, nil)},
	}

	r, err := newResolver(adapters...).Resolve(context.Background(), newYork)
	require.NoError(t, err)

	assert.Equal(t, airquality.SourceSynthetic, r.Source)
	assert.GreaterOrEqual(t, r.AQI, 60)
	assert.LessOrEqual(t, r.AQI, 100)
	assert.GreaterOrEqual(t, r.Pollutants[airquality.PollutantPM10], r.Pollutants[airquality.PollutantPM25])
	for _, a := range adapters {
		assert.Equal(t, int32(1), a.(*stubAdapter).calls.Load())
	}
}

func TestResolver_NoAdaptersConfigured(t *testing.T) {
	r, err := newResolver().Resolve(context.Background(), newYork)
	require.NoError(t, err)

	assert.Equal(t, airquality.SourceSynthetic, r.Source)
	assert.Equal(t, observedAt, r.Timestamp)
}

func TestResolver_InvalidCoordinateRejected(t *testing.T) {
	adapter := &stubAdapter{source: airquality.SourceGroundStation, reading: liveReading(10)}

	_, err := newResolver(adapter).Resolve(context.Background(), airquality.Coordinate{Latitude: 999, Longitude: 0})

	assert.ErrorIs(t, err, airquality.ErrInvalidCoordinate)
	assert.Equal(t, int32(0), adapter.calls.Load())
}

func TestResolver_TimeoutCountsAsUnreachable(t *testing.T) {
	slow := &stubAdapter{source: airquality.SourceTEMPO, reading: liveReading(30), delay: time.Second}
	recorder := newRecordingRecorder()

	resolver := airquality.NewResolver(airquality.ResolverConfig{
		Adapters:  []airquality.Adapter{slow},
		Generator: seededGenerator(5, nil),
		Timeout:   20 * time.Millisecond,
		Logger:    zerolog.Nop(),
		Recorder:  recorder,
	})

	start := time.Now()
	r, err := resolver.Resolve(context.Background(), boise)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, airquality.SourceSynthetic, r.Source)
	assert.Equal(t, 1, recorder.attempts["TEMPO/unreachable"])
	assert.Equal(t, 1, recorder.resolutions[airquality.SourceSynthetic])
}

func TestResolver_RejectsOutOfRangeAdapterReading(t *testing.T) {
	bad := &stubAdapter{source: airquality.SourceAirNow, reading: liveReading(0)}
	recorder := newRecordingRecorder()

	resolver := airquality.NewResolver(airquality.ResolverConfig{
		Adapters:  []airquality.Adapter{bad},
		Generator: seededGenerator(5, nil),
		Logger:    zerolog.Nop(),
		Recorder:  recorder,
	})

	r, err := resolver.Resolve(context.Background(), boise)
	require.NoError(t, err)
	assert.Equal(t, airquality.SourceSynthetic, r.Source)
	assert.Equal(t, 1, recorder.attempts["epa_airnow/malformed_response"])
}

func TestResolver_GateSkipsDisabledSources(t *testing.T) {
	first := &stubAdapter{source: airquality.SourceGroundStation, reading: liveReading(20)}
	second := &stubAdapter{source: airquality.SourceAirNow, reading: liveReading(40)}

	resolver := airquality.NewResolver(airquality.ResolverConfig{
		Adapters:  []airquality.Adapter{first, second},
		Generator: seededGenerator(5, nil),
		Logger:    zerolog.Nop(),
		Gate:      staticGate{disabled: map[airquality.Source]bool{airquality.SourceGroundStation: true}},
	})

	r, err := resolver.Resolve(context.Background(), newYork)
	require.NoError(t, err)
	assert.Equal(t, airquality.SourceAirNow, r.Source)
	assert.Equal(t, int32(0), first.calls.Load())
}

func TestResolver_GateSyntheticOnly(t *testing.T) {
	adapter := &stubAdapter{source: airquality.SourceGroundStation, reading: liveReading(20)}

	resolver := airquality.NewResolver(airquality.ResolverConfig{
		Adapters:  []airquality.Adapter{adapter},
		Generator: seededGenerator(5, nil),
		Logger:    zerolog.Nop(),
		Gate:      staticGate{syntheticOnly: true},
	})

	r, err := resolver.Resolve(context.Background(), newYork)
	require.NoError(t, err)
	assert.Equal(t, airquality.SourceSynthetic, r.Source)
	assert.Equal(t, int32(0), adapter.calls.Load())
}

func TestResolver_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	resolver := airquality.NewResolver(airquality.ResolverConfig{
		Adapters: []airquality.Adapter{
			&stubAdapter{source: airquality.SourceGroundStation, err: errors.New("boom")},
			&stubAdapter{source: airquality.SourceAirNow, reading: liveReading(60)},
		},
		Generator:      seededGenerator(5, nil),
		Logger:         zerolog.Nop(),
		TracerProvider: tp,
	})

	_, err := resolver.Resolve(context.Background(), newYork)
	require.NoError(t, err)

	names := make([]string, 0)
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"airquality.adapter.Fetch", "airquality.adapter.Fetch", "airquality.Resolve"}, names)
}

func TestResolver_ConcurrentResolutions(t *testing.T) {
	adapter := &stubAdapter{source: airquality.SourceAirNow, err: errors.New("down")}
	resolver := newResolver(adapter)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := resolver.Resolve(context.Background(), newYork)
			assert.NoError(t, err)
			assert.Equal(t, airquality.SourceSynthetic, r.Source)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(20), adapter.calls.Load())
}

func TestAsFailure(t *testing.T) {
	f := airquality.AsFailure(airquality.SourceTEMPO, context.DeadlineExceeded)
	assert.Equal(t, airquality.ReasonUnreachable, f.Reason)
	assert.ErrorIs(t, f, context.DeadlineExceeded)

	orig := airquality.NewFailure(airquality.SourceAirNow, airquality.ReasonUnauthorized, errors.New("401"))
	assert.Same(t, orig, airquality.AsFailure(airquality.SourceAirNow, orig))
	assert.Equal(t, "epa_airnow: unauthorized: 401", orig.Error())
}

func TestResolver_Sources(t *testing.T) {
	resolver := newResolver(
		&stubAdapter{source: airquality.SourceGroundStation},
		&stubAdapter{source: airquality.SourceAirNow},
	)
	assert.Equal(t, []airquality.Source{airquality.SourceGroundStation, airquality.SourceAirNow}, resolver.Sources())
}

func TestStatusFailure(t *testing.T) {
	tests := []struct {
		status   int
		expected airquality.FailureReason
	}{
		{401, airquality.ReasonUnauthorized},
		{403, airquality.ReasonUnauthorized},
		{404, airquality.ReasonNoCoverage},
		{429, airquality.ReasonUnreachable},
		{503, airquality.ReasonUnreachable},
	}

	for _, tt := range tests {
		f := airquality.StatusFailure(airquality.SourceAirNow, tt.status)
		assert.Equal(t, tt.expected, f.Reason, "status %d", tt.status)
		assert.Equal(t, airquality.SourceAirNow, f.Source)
	}
}
