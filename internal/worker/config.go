// Package worker keeps readings for priority cities warm in the cache.
package worker

import (
	"sort"
	"time"

	"github.com/airwatchpro/airwatch/internal/airquality"
)

// RefreshTarget represents a metro area to refresh.
type RefreshTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Points are sampled across the metro area.
	Points []airquality.Coordinate

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// RefreshConfig holds configuration for the refresh job.
type RefreshConfig struct {
	// Targets are the metro areas to refresh.
	// If empty, uses DefaultRefreshTargets.
	Targets []RefreshTarget

	// Concurrency is the number of concurrent refresh operations.
	// Default: 3
	Concurrency int

	// Timeout bounds the work for one point.
	// Default: 30 seconds
	Timeout time.Duration

	// RefreshWeather also warms the weather cache.
	RefreshWeather bool
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:        DefaultRefreshTargets(),
		Concurrency:    3,
		Timeout:        30 * time.Second,
		RefreshWeather: true,
	}
}

// DefaultRefreshTargets returns the largest metro areas inside the
// AirNow and TEMPO footprints.
func DefaultRefreshTargets() []RefreshTarget {
	return []RefreshTarget{
		{
			Name:     "New York",
			Priority: 1,
			Points: []airquality.Coordinate{
				{Latitude: 40.7128, Longitude: -74.0060}, // Lower Manhattan
				{Latitude: 40.7812, Longitude: -73.9665}, // Central Park
				{Latitude: 40.6782, Longitude: -73.9442}, // Brooklyn
			},
		},
		{
			Name:     "Los Angeles",
			Priority: 1,
			Points: []airquality.Coordinate{
				{Latitude: 34.0522, Longitude: -118.2437}, // Downtown
				{Latitude: 34.0195, Longitude: -118.4912}, // Santa Monica
				{Latitude: 34.0633, Longitude: -117.6509}, // Ontario
			},
		},
		{
			Name:     "Chicago",
			Priority: 1,
			Points: []airquality.Coordinate{
				{Latitude: 41.8781, Longitude: -87.6298}, // Loop
				{Latitude: 41.9742, Longitude: -87.9073}, // O'Hare
			},
		},
		{
			Name:     "Houston",
			Priority: 2,
			Points: []airquality.Coordinate{
				{Latitude: 29.7604, Longitude: -95.3698}, // Downtown
				{Latitude: 29.7355, Longitude: -95.2585}, // Ship Channel
			},
		},
		{
			Name:     "Phoenix",
			Priority: 2,
			Points:   []airquality.Coordinate{{Latitude: 33.4484, Longitude: -112.0740}},
		},
		{
			Name:     "Philadelphia",
			Priority: 2,
			Points:   []airquality.Coordinate{{Latitude: 39.9526, Longitude: -75.1652}},
		},
		{
			Name:     "Dallas",
			Priority: 2,
			Points:   []airquality.Coordinate{{Latitude: 32.7767, Longitude: -96.7970}},
		},
		{
			Name:     "San Antonio",
			Priority: 3,
			Points:   []airquality.Coordinate{{Latitude: 29.4241, Longitude: -98.4936}},
		},
		{
			Name:     "Denver",
			Priority: 3,
			Points:   []airquality.Coordinate{{Latitude: 39.7392, Longitude: -104.9903}},
		},
		{
			Name:     "Toronto",
			Priority: 3,
			Points:   []airquality.Coordinate{{Latitude: 43.6532, Longitude: -79.3832}},
		},
		{
			Name:     "Vancouver",
			Priority: 3,
			Points:   []airquality.Coordinate{{Latitude: 49.2827, Longitude: -123.1207}},
		},
	}
}

// AllPoints returns all points from all targets, highest priority first.
func (c RefreshConfig) AllPoints() []airquality.Coordinate {
	targets := make([]RefreshTarget, len(c.Targets))
	copy(targets, c.Targets)
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Priority < targets[j].Priority })

	var points []airquality.Coordinate
	for _, target := range targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to refresh.
func (c RefreshConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
