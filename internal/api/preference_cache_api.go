package api

import (
	"context"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/tinywideclouds/go-microservice-base/pkg/response"
)

// PreferenceCacheInvalidator drops one cached preference record so a manual
// correction in the backing store takes effect immediately.
type PreferenceCacheInvalidator interface {
	Invalidate(ctx context.Context, fiscalCode, serviceID string, version int64) error
}

// PreferenceCacheAPI is the operator surface for evicting stale preference
// cache entries after a support intervention.
type PreferenceCacheAPI struct {
	Cache  PreferenceCacheInvalidator
	Logger *slog.Logger
}

func NewPreferenceCacheAPI(cache PreferenceCacheInvalidator, logger *slog.Logger) *PreferenceCacheAPI {
	return &PreferenceCacheAPI{
		Cache:  cache,
		Logger: logger,
	}
}

// Invalidate handles DELETE /api/v1/preferences/{fiscalCode}/{serviceId}/{version}/cache.
func (api *PreferenceCacheAPI) Invalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fiscalCode := r.PathValue("fiscalCode")
	serviceID := r.PathValue("serviceId")
	if fiscalCode == "" || serviceID == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing fiscalCode or serviceId")
		return
	}

	version, err := strconv.ParseInt(r.PathValue("version"), 10, 64)
	if err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "version must be an integer")
		return
	}

	if err := api.Cache.Invalidate(ctx, fiscalCode, serviceID, version); err != nil {
		api.Logger.Error("preference cache invalidation failed",
			"service_id", serviceID, "version", version, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "invalidation failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
