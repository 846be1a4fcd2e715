package controllers

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/zeebo/blake3"

	"pasosd/internal/models"
	"pasosd/internal/providers"
	"pasosd/internal/services"
)

const crossingsRepresentation = "crossings"

const (
	errCatalogUnavailable  = "catalog_unavailable"
	errUpstreamUnavailable = "upstream_unavailable"
	errRequestCancelled    = "request_cancelled"
	errInternal            = "internal_error"
)

type ApiController struct {
	logger  providers.Logger
	service services.SnapshotServiceInterface
	cache   providers.CacheProviderInterface
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewApiController(logger providers.Logger, service services.SnapshotServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		cache:   cache,
	}
}

// encode returns the JSON body of the snapshot entries. Bodies are cached
// per snapshot id, so a new snapshot never serves an old body.
func (ac *ApiController) encode(snapshot *models.Snapshot) ([]byte, error) {
	key := providers.ResponseKey(snapshot.ID, crossingsRepresentation)
	if data, ok := ac.cache.Get(key); ok {
		return data, nil
	}

	gson, err := json.Marshal(snapshot.Entries)
	if err != nil {
		return nil, err
	}
	ac.cache.Set(key, gson)
	return gson, nil
}

func (ac *ApiController) GetCrossings(w http.ResponseWriter, r *http.Request) {
	snapshot, err := ac.service.Get(r.Context())
	if err != nil {
		ac.writeError(w, r, err)
		return
	}

	gson, err := ac.encode(snapshot)
	if err != nil {
		ac.logger.Errorf(providers.TypeHttp, "Encoding snapshot %s: %s", snapshot.ID, err)
		ac.writeError(w, r, err)
		return
	}

	etag := entityTag(gson)
	h := w.Header()
	h.Set("ETag", etag)
	h.Set("X-Snapshot-Id", snapshot.ID)
	h.Set("X-Snapshot-Captured-At", snapshot.CapturedAt.UTC().Format(time.RFC3339))

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, errInternal
	switch {
	case errors.Is(err, services.ErrCatalogUnavailable):
		code = errCatalogUnavailable
	case r.Context().Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		status, code = http.StatusServiceUnavailable, errRequestCancelled
	case errors.Is(err, services.ErrNoSnapshot):
		status, code = http.StatusBadGateway, errUpstreamUnavailable
	}

	if status != http.StatusServiceUnavailable {
		ac.logger.Warnf(providers.TypeHttp, "%s %s: %s", r.Method, r.URL.Path, err)
	}

	gson, _ := json.Marshal(errorResponse{Error: code, Message: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func entityTag(body []byte) string {
	sum := blake3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// etagMatches implements the weak comparison of If-None-Match.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
