package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatchpro/airwatch/internal/airquality"
	"github.com/airwatchpro/airwatch/internal/weather"
)

// AirQualityRefresher re-resolves a coordinate and stores the result.
type AirQualityRefresher interface {
	Refresh(ctx context.Context, c airquality.Coordinate) (*airquality.Reading, error)
}

// WeatherFetcher warms the weather cache.
type WeatherFetcher interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error)
}

// Publisher receives every reading refreshed in a run.
type Publisher interface {
	PublishReadings(ctx context.Context, readings []*airquality.Reading) error
}

// Observer counts refreshed points.
type Observer interface {
	ObserveRefresh(ok bool)
}

// RefreshJob handles cache refresh operations.
type RefreshJob struct {
	config RefreshConfig
	logger zerolog.Logger

	// Optional, nil if not configured
	airQuality AirQualityRefresher
	weather    WeatherFetcher
	publisher  Publisher
	observer   Observer

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns         int64
	SuccessfulRefresh int64
	FailedRefreshes   int64
	SyntheticReadings int64
	PublishFailures   int64

	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config     RefreshConfig
	Logger     zerolog.Logger
	AirQuality AirQualityRefresher
	Weather    WeatherFetcher
	Publisher  Publisher
	Observer   Observer
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config.Targets = DefaultRefreshTargets()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshJob{
		config:     config,
		logger:     cfg.Logger,
		airQuality: cfg.AirQuality,
		weather:    cfg.Weather,
		publisher:  cfg.Publisher,
		observer:   cfg.Observer,
		metrics:    &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh operation.
type RefreshResult struct {
	StartTime   time.Time
	Duration    time.Duration
	TotalPoints int
	Successful  int
	Failed      int

	// Synthetic counts points where every live source failed.
	Synthetic int

	Errors       []RefreshError
	PublishError error
}

// RefreshError represents an error during refresh.
type RefreshError struct {
	Provider string
	Point    airquality.Coordinate
	Error    string
}

// Run executes the refresh job for all configured targets.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{
		StartTime:   startTime,
		TotalPoints: j.config.TotalPoints(),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting refresh job")

	points := j.config.AllPoints()

	pointsChan := make(chan airquality.Coordinate, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var readings []*airquality.Reading
	for pr := range resultsChan {
		if pr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		if pr.reading != nil {
			readings = append(readings, pr.reading)
			if pr.reading.Source == airquality.SourceSynthetic {
				result.Synthetic++
			}
		}
		if j.observer != nil {
			j.observer.ObserveRefresh(pr.success)
		}
		result.Errors = append(result.Errors, pr.errors...)
	}

	if j.publisher != nil && len(readings) > 0 {
		if err := j.publisher.PublishReadings(ctx, readings); err != nil {
			j.logger.Error().Err(err).Int("readings", len(readings)).Msg("failed to publish refreshed readings")
			result.PublishError = err
		}
	}

	result.Duration = time.Since(startTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("synthetic", result.Synthetic).
		Msg("refresh job completed")

	return result
}

type pointResult struct {
	success bool
	reading *airquality.Reading
	errors  []RefreshError
}

func (j *RefreshJob) refreshWorker(ctx context.Context, points <-chan airquality.Coordinate, results chan<- pointResult) {
	for point := range points {
		if ctx.Err() != nil {
			results <- pointResult{errors: []RefreshError{{Provider: "airquality", Point: point, Error: ctx.Err().Error()}}}
			continue
		}
		results <- j.refreshPoint(ctx, point)
	}
}

func (j *RefreshJob) refreshPoint(ctx context.Context, point airquality.Coordinate) pointResult {
	result := pointResult{success: true}

	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.airQuality != nil {
		reading, err := j.airQuality.Refresh(pointCtx, point)
		if err != nil {
			result.errors = append(result.errors, RefreshError{Provider: "airquality", Point: point, Error: err.Error()})
			result.success = false
		} else {
			result.reading = reading
		}
	}

	if j.config.RefreshWeather && j.weather != nil {
		_, err := j.weather.GetCurrentWeather(pointCtx, point.Latitude, point.Longitude)
		// No API key is a deployment choice, not a refresh failure.
		if err != nil && !errors.Is(err, weather.ErrNotConfigured) {
			result.errors = append(result.errors, RefreshError{Provider: "weather", Point: point, Error: err.Error()})
			result.success = false
		}
	}

	return result
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulRefresh += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.SyntheticReadings += int64(result.Synthetic)
	if result.PublishError != nil {
		j.metrics.PublishFailures++
	}
	j.metrics.LastRefreshAt = result.StartTime.Add(result.Duration)
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		SuccessfulRefresh:   j.metrics.SuccessfulRefresh,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		SyntheticReadings:   j.metrics.SyntheticReadings,
		PublishFailures:     j.metrics.PublishFailures,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":            m.TotalRuns,
		"successful_refreshes":  m.SuccessfulRefresh,
		"failed_refreshes":      m.FailedRefreshes,
		"synthetic_readings":    m.SyntheticReadings,
		"publish_failures":      m.PublishFailures,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
