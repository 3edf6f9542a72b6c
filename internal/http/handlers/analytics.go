package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khushigupta13/patienthub/internal/cache"
	"github.com/khushigupta13/patienthub/internal/config"
	"github.com/khushigupta13/patienthub/internal/domain/patient"
	"github.com/khushigupta13/patienthub/internal/utils"
)

type PatientAnalytics interface {
	Summary(ctx context.Context) (patient.Summary, error)
	Breakdown(ctx context.Context) (patient.Breakdown, error)
}

type AnalyticsHandler struct {
	repo     PatientAnalytics
	cache    cache.Store
	cacheTTL time.Duration
}

func NewAnalyticsHandler(repo PatientAnalytics, cacheStore cache.Store, cacheTTL time.Duration) *AnalyticsHandler {
	return &AnalyticsHandler{
		repo:     repo,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// Summary serves GET /api/patients/analytics: total, gender counts, average age.
func (h *AnalyticsHandler) Summary(ctx *gin.Context) {
	key := utils.PatientsSummaryCacheKey()

	if cached, ok := cacheGet[patient.Summary](ctx, h.cache, key); ok {
		ctx.JSON(http.StatusOK, cached)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	s, err := h.repo.Summary(cctx)

	if err != nil {
		RespondInternal(ctx, "Analytics fetch error")
		return
	}

	cacheSet(ctx, h.cache, key, s, h.cacheTTL)

	ctx.JSON(http.StatusOK, s)
}

// Breakdown serves the admin-only GET /api/analytics: gender, age buckets,
// top medical conditions.
func (h *AnalyticsHandler) Breakdown(ctx *gin.Context) {
	key := utils.PatientsBreakdownCacheKey()

	if cached, ok := cacheGet[patient.Breakdown](ctx, h.cache, key); ok {
		ctx.JSON(http.StatusOK, cached)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	b, err := h.repo.Breakdown(cctx)

	if err != nil {
		RespondInternal(ctx, "Analytics fetch error")
		return
	}

	cacheSet(ctx, h.cache, key, b, h.cacheTTL)

	ctx.JSON(http.StatusOK, b)
}

func cacheGet[T any](ctx *gin.Context, store cache.Store, key string) (T, bool) {
	var out T

	if store == nil {
		return out, false
	}

	raw, ok, err := store.Get(ctx.Request.Context(), key)

	if err != nil || !ok {
		return out, false
	}

	if json.Unmarshal(raw, &out) != nil {
		return out, false
	}

	return out, true
}

func cacheSet(ctx *gin.Context, store cache.Store, key string, val any, ttl time.Duration) {
	if store == nil {
		return
	}

	raw, err := json.Marshal(val)

	if err != nil {
		return
	}

	_ = store.Set(ctx.Request.Context(), key, raw, ttl)
}
