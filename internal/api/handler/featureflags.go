package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/airwatchpro/airwatch/internal/api/middleware"
	"github.com/airwatchpro/airwatch/internal/api/models"
	"github.com/airwatchpro/airwatch/internal/api/response"
	"github.com/airwatchpro/airwatch/internal/featureflags"
)

// maxFlagRequestBytes bounds a PUT body.
const maxFlagRequestBytes = 64 << 10

// FlagService manages feature flags.
type FlagService interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
	SetFlags(ctx context.Context, flags []*featureflags.Flag) error
	ResetFlag(ctx context.Context, key string) error
	InvalidateCache()
}

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service FlagService
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service FlagService, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.list(r.Context()))
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFlagRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		response.BadRequest(w, r, "request body must be a JSON flag update", nil)
		return
	}
	if len(req.Updates) == 0 {
		response.BadRequest(w, r, "at least one update is required", []models.FieldError{
			{Field: "updates", Message: "must not be empty", Code: CodeRequired},
		})
		return
	}

	var errs []models.FieldError
	flags := make([]*featureflags.Flag, 0, len(req.Updates))
	for i, u := range req.Updates {
		if !featureflags.IsKnown(u.Key) {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("updates[%d].key", i),
				Message: fmt.Sprintf("unknown flag %q", u.Key),
				Code:    CodeUnknownKey,
			})
			continue
		}
		if _, ok := u.Value.(bool); !ok {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("updates[%d].value", i),
				Message: "must be a boolean",
				Code:    CodeInvalidValue,
			})
			continue
		}
		flags = append(flags, &featureflags.Flag{Key: u.Key, Value: u.Value})
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid feature flag update", errs)
		return
	}

	if err := h.service.SetFlags(r.Context(), flags); err != nil {
		h.logger.Error().Err(err).Msg("failed to update feature flags")
		response.InternalError(w, r, "could not update feature flags")
		return
	}

	h.logger.Info().
		Str("subject", middleware.GetSubject(r.Context())).
		Str("reason", req.Reason).
		Int("count", len(flags)).
		Msg("feature flags changed")

	response.JSON(w, r, http.StatusOK, h.list(r.Context()))
}

// ResetFeatureFlag handles DELETE /v1/admin/feature-flags/{key}.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !featureflags.IsKnown(key) {
		response.NotFound(w, r, fmt.Sprintf("feature flag %q not found", key))
		return
	}
	if err := h.service.ResetFlag(r.Context(), key); err != nil {
		h.logger.Error().Err(err).Str("flag", key).Msg("failed to reset feature flag")
		response.InternalError(w, r, "could not reset feature flag")
		return
	}
	response.NoContent(w, r)
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - invalidate flag cache.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}

func (h *FeatureFlagsHandler) list(ctx context.Context) featureflags.FlagList {
	all := h.service.GetAllFlags(ctx)
	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(all))}
	for _, f := range all {
		list.Items = append(list.Items, *f)
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Key < list.Items[j].Key })
	return list
}
