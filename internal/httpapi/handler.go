package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/optctl/opt-orchestrator/internal/httpapi/middleware"
	"github.com/optctl/opt-orchestrator/internal/optdomain"
	"github.com/optctl/opt-orchestrator/internal/orchestrator"
)

// createJobRequest is the wire shape for POST /internal/optimizations.
// estimate is accepted but never trusted: the orchestrator always
// recomputes its own estimate from the normalized param space.
type createJobRequest struct {
	VersionID        string                     `json:"versionId" binding:"required"`
	ParamSpace       map[string]any             `json:"paramSpace" binding:"required"`
	KeyOrder         []string                   `json:"keyOrder"`
	ConcurrencyLimit int                        `json:"concurrencyLimit" binding:"required"`
	EarlyStopPolicy  *optdomain.EarlyStopPolicy `json:"earlyStopPolicy"`
	SourceJobID      *string                    `json:"sourceJobId"`
	Estimate         *int                       `json:"estimate"`
}

type cancelJobRequest struct {
	Reason *string `json:"reason"`
}

// Handler binds HTTP requests to the orchestrator's Go API and shapes
// its responses/errors onto the JSON wire format.
type Handler struct {
	core *orchestrator.Orchestrator
}

// NewHandler builds a Handler over an orchestrator core.
func NewHandler(core *orchestrator.Orchestrator) *Handler {
	return &Handler{core: core}
}

func (h *Handler) CreateOptimization(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": errorEnvelope{
			Code: "E.PARAM_INVALID", Message: err.Error(),
		}})
		return
	}

	result, err := h.core.CreateJob(c.Request.Context(), orchestrator.CreateJobInput{
		OwnerID:          middleware.OwnerID(c),
		VersionID:        req.VersionID,
		ParamSpace:       req.ParamSpace,
		KeyOrder:         req.KeyOrder,
		ConcurrencyLimit: req.ConcurrencyLimit,
		EarlyStopPolicy:  req.EarlyStopPolicy,
		SourceJobID:      req.SourceJobID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListOptimizations(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	jobs, err := h.core.ListJobs(c.Request.Context(), middleware.OwnerID(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *Handler) GetOptimization(c *gin.Context) {
	snapshot, err := h.core.GetJobSnapshot(c.Request.Context(), c.Param("id"), middleware.OwnerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) GetOptimizationStatus(c *gin.Context) {
	status, err := h.core.GetJobStatus(c.Request.Context(), c.Param("id"), middleware.OwnerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) CancelOptimization(c *gin.Context) {
	var req cancelJobRequest
	// Body is optional; ignore a bind error on an empty body.
	_ = c.ShouldBindJSON(&req)

	status, err := h.core.CancelJob(c.Request.Context(), c.Param("id"), middleware.OwnerID(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) ExportOptimization(c *gin.Context) {
	bundle, err := h.core.ExportTopNBundle(c.Request.Context(), c.Param("id"), middleware.OwnerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}
