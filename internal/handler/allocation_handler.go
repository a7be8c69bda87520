package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-allocation-api/internal/dto"
	"github.com/noah-isme/room-allocation-api/internal/middleware"
	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/internal/service"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
	"github.com/noah-isme/room-allocation-api/pkg/response"
)

type allocationRunner interface {
	Run(ctx context.Context, req dto.RunAllocationRequest) (*dto.RunAllocationResponse, error)
	ListRuns(ctx context.Context, query dto.AllocationRunQuery) ([]models.AllocationRun, int, error)
	GetRun(ctx context.Context, id string) (*models.AllocationRun, error)
	ListDecisions(ctx context.Context, runID string, query dto.DecisionQuery) ([]models.AllocationRecord, error)
	Report(ctx context.Context, runID, disciplineCode string) (*models.DecisionReport, error)
	Export(ctx context.Context, runID string, query dto.ExportQuery) (*dto.ExportFile, error)
	PreviewCandidates(ctx context.Context, demandID string) (*dto.CandidatePreviewResponse, error)
	DecodeSchedule(req dto.DecodeScheduleRequest) (*dto.DecodeScheduleResponse, error)
}

// AllocationHandler exposes room allocation endpoints.
type AllocationHandler struct {
	service allocationRunner
}

// NewAllocationHandler constructs the handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// Run godoc
// @Summary Run room allocation for one or more semesters
// @Description Synchronous requests return the finished runs. Async requests return 202 with RUNNING runs.
// @Tags Allocation
// @Accept json
// @Produce json
// @Param payload body dto.RunAllocationRequest true "Run payload"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /allocations/runs [post]
func (h *AllocationHandler) Run(c *gin.Context) {
	var req dto.RunAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allocation run payload"))
		return
	}
	result, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Async {
		response.Accepted(c, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// ListRuns godoc
// @Summary List allocation runs
// @Tags Allocation
// @Produce json
// @Param semesterId query string false "Semester"
// @Param status query string false "RUNNING, COMPLETED or ABORTED"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /allocations/runs [get]
func (h *AllocationHandler) ListRuns(c *gin.Context) {
	var query dto.AllocationRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid run query"))
		return
	}
	runs, total, err := h.service.ListRuns(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size := query.Page, query.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	response.JSON(c, http.StatusOK, runs, &response.Pagination{Page: page, PageSize: size, TotalCount: total})
}

// GetRun godoc
// @Summary Get an allocation run
// @Tags Allocation
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /allocations/runs/{id} [get]
func (h *AllocationHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Decisions godoc
// @Summary List the decision log of a run
// @Tags Allocation
// @Produce json
// @Param id path string true "Run ID"
// @Param disciplineCode query string false "Discipline code"
// @Param allocated query bool false "Only allocated or unallocated records"
// @Success 200 {object} response.Envelope
// @Router /allocations/runs/{id}/decisions [get]
func (h *AllocationHandler) Decisions(c *gin.Context) {
	var query dto.DecisionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision query"))
		return
	}
	records, err := h.service.ListDecisions(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["count"] = len(records)
	response.JSON(c, http.StatusOK, records, nil, meta)
}

// Report godoc
// @Summary Aggregate report of a run's decision log
// @Tags Allocation
// @Produce json
// @Param id path string true "Run ID"
// @Param disciplineCode query string false "Discipline code"
// @Success 200 {object} response.Envelope
// @Router /allocations/runs/{id}/report [get]
func (h *AllocationHandler) Report(c *gin.Context) {
	report, err := h.service.Report(c.Request.Context(), c.Param("id"), c.Query("disciplineCode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export a run's decision log
// @Tags Allocation
// @Produce application/json,text/csv,application/pdf
// @Param id path string true "Run ID"
// @Param format query string false "json, csv or pdf"
// @Param disciplineCode query string false "Discipline code"
// @Success 200 {file} file
// @Router /allocations/runs/{id}/export [get]
func (h *AllocationHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

// Candidates godoc
// @Summary Score every room for a demand
// @Tags Allocation
// @Produce json
// @Param id path string true "Demand ID"
// @Success 200 {object} response.Envelope
// @Router /allocations/demands/{id}/candidates [get]
func (h *AllocationHandler) Candidates(c *gin.Context) {
	preview, err := h.service.PreviewCandidates(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil, middleware.ExtractMeta(c))
}

// DecodeSchedule godoc
// @Summary Decode a raw schedule string
// @Tags Allocation
// @Accept json
// @Produce json
// @Param payload body dto.DecodeScheduleRequest true "Schedule"
// @Success 200 {object} response.Envelope
// @Router /allocations/schedules/decode [post]
func (h *AllocationHandler) DecodeSchedule(c *gin.Context) {
	var req dto.DecodeScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decode payload"))
		return
	}
	result, err := h.service.DecodeSchedule(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}
