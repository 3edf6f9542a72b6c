package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khushigupta13/patienthub/internal/cache"
	"github.com/khushigupta13/patienthub/internal/config"
	"github.com/khushigupta13/patienthub/internal/domain/patient"
	"github.com/khushigupta13/patienthub/internal/utils"
)

type PatientsStore interface {
	Create(ctx context.Context, req patient.CreatePatientRequest) (patient.Patient, error)
	List(ctx context.Context, filter patient.ListPatientsFilter) ([]patient.Patient, int, error)
	GetByID(ctx context.Context, id string) (patient.Patient, error)
	Update(ctx context.Context, id string, req patient.UpdatePatientRequest) (patient.Patient, error)
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) ([]patient.Patient, error)
}

type PatientsHandler struct {
	repo     PatientsStore
	cache    cache.Store
	cacheTTL time.Duration
}

func NewPatientsHandler(repo PatientsStore, cacheStore cache.Store, cacheTTL time.Duration) *PatientsHandler {
	return &PatientsHandler{
		repo:     repo,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

type listPatientsResponse struct {
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
	Patients []patient.Patient `json:"patients"`
}

func (h *PatientsHandler) CreatePatient(ctx *gin.Context) {
	var req patient.CreatePatientRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create patient")
		return
	}

	h.invalidate(ctx)

	ctx.JSON(http.StatusCreated, p)
}

func (h *PatientsHandler) ListPatients(ctx *gin.Context) {
	page := parsePositiveInt(ctx.Query("page"), 1)
	limit := parsePositiveInt(ctx.Query("limit"), patient.DefaultLimit)

	if limit > patient.MaxLimit {
		limit = patient.MaxLimit
	}

	sortKey := ctx.DefaultQuery("sort", "name")

	if _, ok := patient.Sortable[sortKey]; !ok {
		sortKey = "name"
	}

	filter := patient.ListPatientsFilter{
		Sort:   sortKey,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if s := ctx.Query("search"); s != "" {
		filter.Search = &s
	}

	if c := ctx.Query("condition"); c != "" {
		filter.Condition = &c
	}

	key := utils.BuildPatientsListCacheKey(page, limit, sortKey, filter.Search, filter.Condition)

	if h.cache != nil {
		if raw, ok, err := h.cache.Get(ctx.Request.Context(), key); err == nil && ok {
			var cached listPatientsResponse

			if json.Unmarshal(raw, &cached) == nil {
				RespondJSONWithETag(ctx, http.StatusOK, cached)
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	patients, total, err := h.repo.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list patients")
		return
	}

	resp := listPatientsResponse{
		Total:    total,
		Page:     page,
		Pages:    (total + limit - 1) / limit,
		Patients: patients,
	}

	if h.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			_ = h.cache.Set(ctx.Request.Context(), key, raw, h.cacheTTL)
		}
	}

	RespondJSONWithETag(ctx, http.StatusOK, resp)
}

func (h *PatientsHandler) GetPatientByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "patient id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	p, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			RespondNotFound(ctx, "Patient not found")
			return
		}
		RespondInternal(ctx, "Could not fetch patient")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, p)
}

func (h *PatientsHandler) UpdatePatient(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "patient id must be a valid UUID", nil)
		return
	}

	var req patient.UpdatePatientRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			RespondNotFound(ctx, "Patient not found")
			return
		}
		RespondInternal(ctx, "Could not update patient")
		return
	}

	h.invalidate(ctx)

	ctx.JSON(http.StatusOK, p)
}

func (h *PatientsHandler) DeletePatient(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "patient id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			RespondNotFound(ctx, "Patient not found")
			return
		}
		RespondInternal(ctx, "Could not delete patient")
		return
	}

	h.invalidate(ctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Patient deleted"})
}

// csvHeader is the fixed export column order.
var csvHeader = []string{"name", "age", "gender", "address", "phone", "email", "medicalHistory"}

func (h *PatientsHandler) ExportCSV(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	patients, err := h.repo.All(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not export patients")
		return
	}

	if len(patients) == 0 {
		RespondNotFound(ctx, "No patient records found")
		return
	}

	ctx.Header("Content-Type", "text/csv")
	ctx.Header("Content-Disposition", `attachment; filename="patients.csv"`)
	ctx.Status(http.StatusOK)

	w := csv.NewWriter(ctx.Writer)

	_ = w.Write(csvHeader)

	for _, p := range patients {
		age := ""
		if p.Age != nil {
			age = strconv.Itoa(*p.Age)
		}

		_ = w.Write([]string{p.Name, age, p.Gender, p.Address, p.Phone, p.Email, p.MedicalHistory})
	}

	w.Flush()
}

// invalidate drops cached pages and analytics after any write.
func (h *PatientsHandler) invalidate(ctx *gin.Context) {
	if h.cache == nil {
		return
	}

	_ = h.cache.DeletePrefix(ctx.Request.Context(), utils.PatientsCachePrefix)
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)

	if err != nil || n < 1 {
		return fallback
	}

	return n
}
