package airquality

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/airwatchpro/airwatch/internal/airquality"

// DefaultAdapterTimeout bounds a single adapter attempt.
const DefaultAdapterTimeout = 8 * time.Second

// Adapter fetches a reading from exactly one external source. It never
// retries; expected failures are returned as *Failure.
type Adapter interface {
	Source() Source
	Fetch(ctx context.Context, c Coordinate) (*Reading, error)
}

// FailureReason classifies why an adapter could not produce a reading.
type FailureReason string

const (
	ReasonUnreachable       FailureReason = "unreachable"
	ReasonUnauthorized      FailureReason = "unauthorized"
	ReasonMalformedResponse FailureReason = "malformed_response"
	ReasonNotConfigured     FailureReason = "not_configured"
	ReasonNoCoverage        FailureReason = "no_coverage"
)

// Failure is the normalized error returned by adapters.
type Failure struct {
	Source Source
	Reason FailureReason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Source, f.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", f.Source, f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure builds a Failure.
func NewFailure(source Source, reason FailureReason, err error) *Failure {
	return &Failure{Source: source, Reason: reason, Err: err}
}

// AsFailure normalizes any adapter error. Unknown errors, deadlines and
// cancellations become ReasonUnreachable.
func AsFailure(source Source, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return NewFailure(source, ReasonUnreachable, err)
}

// StatusFailure maps an unexpected HTTP status from a provider to a Failure.
func StatusFailure(source Source, status int) *Failure {
	err := fmt.Errorf("unexpected status %d", status)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewFailure(source, ReasonUnauthorized, err)
	case http.StatusNotFound:
		return NewFailure(source, ReasonNoCoverage, err)
	default:
		return NewFailure(source, ReasonUnreachable, err)
	}
}

// Attempt outcomes reported to a Recorder.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
)

// Recorder observes resolver activity. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveAttempt(source Source, outcome string, duration time.Duration)
	ObserveResolution(source Source)
}

// SourceGate lets operators disable sources at runtime.
type SourceGate interface {
	SourceEnabled(ctx context.Context, source Source) bool
	SyntheticOnly(ctx context.Context) bool
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Adapters in priority order.
	Adapters []Adapter

	// Generator provides the fallback. Required.
	Generator *Generator

	// Timeout bounds each adapter call. Default: DefaultAdapterTimeout.
	Timeout time.Duration

	Logger   zerolog.Logger
	Recorder Recorder
	Gate     SourceGate

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Resolver tries adapters in priority order and falls back to a synthetic
// reading. It holds no per-request state.
type Resolver struct {
	adapters  []Adapter
	generator *Generator
	timeout   time.Duration
	logger    zerolog.Logger
	recorder  Recorder
	gate      SourceGate
	tracer    trace.Tracer
}

// NewResolver creates a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Generator == nil {
		cfg.Generator = NewGenerator(GeneratorConfig{})
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAdapterTimeout
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Resolver{
		adapters:  append([]Adapter(nil), cfg.Adapters...),
		generator: cfg.Generator,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
		recorder:  cfg.Recorder,
		gate:      cfg.Gate,
		tracer:    tp.Tracer(tracerName),
	}
}

// Sources returns the configured adapter sources in priority order.
func (r *Resolver) Sources() []Source {
	out := make([]Source, len(r.adapters))
	for i, a := range r.adapters {
		out[i] = a.Source()
	}
	return out
}

// Resolve returns the first live reading for c, or a synthetic one. The
// only error it returns wraps ErrInvalidCoordinate.
func (r *Resolver) Resolve(ctx context.Context, c Coordinate) (*Reading, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ctx, span := r.tracer.Start(ctx, "airquality.Resolve", trace.WithAttributes(
		attribute.Float64("geo.lat", c.Latitude),
		attribute.Float64("geo.lon", c.Longitude),
	))
	defer span.End()

	reading, err := r.tryAdapters(ctx, c)
	if err != nil {
		r.logger.Info().
			Str("coordinate", c.String()).
			Err(err).
			Msg("falling back to synthetic air quality reading")

		reading, err = r.generator.Generate(c)
		if err != nil {
			return nil, err
		}
	}

	span.SetAttributes(
		attribute.String("airquality.source", string(reading.Source)),
		attribute.Int("airquality.aqi", reading.AQI),
	)
	r.recorder.ObserveResolution(reading.Source)
	return reading, nil
}

// tryAdapters returns ErrAllSourcesExhausted when no adapter produced a
// reading.
func (r *Resolver) tryAdapters(ctx context.Context, c Coordinate) (*Reading, error) {
	if r.gate != nil && r.gate.SyntheticOnly(ctx) {
		return nil, fmt.Errorf("%w: synthetic only", ErrAllSourcesExhausted)
	}

	var failures []error
	for _, adapter := range r.adapters {
		source := adapter.Source()

		if r.gate != nil && !r.gate.SourceEnabled(ctx, source) {
			r.recorder.ObserveAttempt(source, OutcomeSkipped, 0)
			continue
		}

		reading, err := r.attempt(ctx, adapter, c)
		if err == nil {
			return reading, nil
		}
		failures = append(failures, err)

		if ctx.Err() != nil {
			break
		}
	}

	if len(failures) == 0 {
		return nil, ErrAllSourcesExhausted
	}
	return nil, fmt.Errorf("%w: %w", ErrAllSourcesExhausted, errors.Join(failures...))
}

func (r *Resolver) attempt(ctx context.Context, adapter Adapter, c Coordinate) (*Reading, error) {
	source := adapter.Source()

	ctx, span := r.tracer.Start(ctx, "airquality.adapter.Fetch",
		trace.WithAttributes(attribute.String("airquality.source", string(source))))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	reading, err := adapter.Fetch(ctx, c)
	elapsed := time.Since(start)

	if err == nil && reading == nil {
		err = NewFailure(source, ReasonMalformedResponse, errors.New("adapter returned no reading"))
	}
	if err == nil {
		err = checkReading(source, reading)
	}

	if err != nil {
		failure := *AsFailure(source, err)
		failure.Source = source
		if errors.Is(err, context.DeadlineExceeded) {
			failure.Reason = ReasonUnreachable
		}

		span.SetStatus(codes.Error, string(failure.Reason))
		span.RecordError(&failure)
		r.recorder.ObserveAttempt(source, string(failure.Reason), elapsed)
		r.logger.Warn().
			Str("source", string(source)).
			Str("reason", string(failure.Reason)).
			Dur("duration", elapsed).
			Err(failure.Err).
			Msg("air quality source failed")
		return nil, &failure
	}

	reading.Source = source
	reading.Coordinates = c
	r.recorder.ObserveAttempt(source, OutcomeSuccess, elapsed)
	r.logger.Debug().
		Str("source", string(source)).
		Int("aqi", reading.AQI).
		Dur("duration", elapsed).
		Msg("air quality source answered")
	return reading, nil
}

// checkReading enforces reading invariants on adapter output.
func checkReading(source Source, reading *Reading) error {
	if reading.AQI < minAQI || reading.AQI > maxAQI {
		return NewFailure(source, ReasonMalformedResponse, fmt.Errorf("aqi %d out of range", reading.AQI))
	}
	for p, v := range reading.Pollutants {
		if v < 0 {
			return NewFailure(source, ReasonMalformedResponse, fmt.Errorf("negative %s concentration", p))
		}
	}
	if reading.Timestamp.IsZero() {
		return NewFailure(source, ReasonMalformedResponse, errors.New("missing timestamp"))
	}
	return nil
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(Source, string, time.Duration) {}
func (nopRecorder) ObserveResolution(Source)                      {}
