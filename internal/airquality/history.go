package airquality

import (
	"context"
	"sort"
	"sync"
)

// DefaultHistoryLimit is used when List is called with a non-positive limit.
const DefaultHistoryLimit = 24

// MaxHistoryLimit caps a single List call.
const MaxHistoryLimit = 500

// HistoryRepository persists live readings per grid cell.
type HistoryRepository interface {
	Record(ctx context.Context, r *Reading) error
	List(ctx context.Context, c Coordinate, limit int) ([]*Reading, error)
}

// MemoryHistory keeps a bounded number of readings per grid cell.
type MemoryHistory struct {
	perCell int

	mu    sync.RWMutex
	cells map[string][]*Reading
}

// NewMemoryHistory creates an in-memory history holding perCell readings
// per grid cell.
func NewMemoryHistory(perCell int) *MemoryHistory {
	if perCell <= 0 {
		perCell = MaxHistoryLimit
	}
	return &MemoryHistory{perCell: perCell, cells: make(map[string][]*Reading)}
}

// Record implements HistoryRepository.
func (h *MemoryHistory) Record(_ context.Context, r *Reading) error {
	key := GridKey(r.Coordinates)
	cp := *r
	cp.Pollutants = make(Pollutants, len(r.Pollutants))
	for k, v := range r.Pollutants {
		cp.Pollutants[k] = v
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	readings := append(h.cells[key], &cp)
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.After(readings[j].Timestamp)
	})
	if len(readings) > h.perCell {
		readings = readings[:h.perCell]
	}
	h.cells[key] = readings
	return nil
}

// List implements HistoryRepository.
func (h *MemoryHistory) List(_ context.Context, c Coordinate, limit int) ([]*Reading, error) {
	limit = clampLimit(limit)

	h.mu.RLock()
	defer h.mu.RUnlock()

	readings := h.cells[GridKey(c)]
	if len(readings) > limit {
		readings = readings[:limit]
	}
	out := make([]*Reading, len(readings))
	copy(out, readings)
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

var _ HistoryRepository = (*MemoryHistory)(nil)
