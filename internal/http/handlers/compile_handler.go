package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jubileesolutions/overlay-backend/internal/services"
)

// CompileRequest triggers a compile pass. A non-empty IDs runs a targeted
// pass over those entries only.
type CompileRequest struct {
	DryRun    bool     `json:"dry_run"`
	Verbose   bool     `json:"verbose"`
	BatchSize int      `json:"batch_size" binding:"omitempty,min=1,max=500" example:"10"`
	IDs       []string `json:"ids"        binding:"omitempty,max=1000,dive,uuid"`
}

// Compile godoc
// @ID          compile
// @Summary     Run a compile pass
// @Description Synchronizes the vector index with the entry store. Per-entry failures are reported in errors and do not fail the request. Passes are serialized.
// @Tags        Compile
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CompileRequest  false  "Options"
//
// @Success     200  {object} services.CompileResult
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     504  {object} handlers.ErrorResponse "Timed out"
// @Router      /compile [post]
func (h *Handlers) Compile(c *gin.Context) {
	var req CompileRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid compile options")
			return
		}
	}
	opts := services.CompileOptions{DryRun: req.DryRun, Verbose: req.Verbose, BatchSize: req.BatchSize}

	var (
		res *services.CompileResult
		err error
	)
	if len(req.IDs) > 0 {
		res, err = h.compiler.CompileEntries(c.Request.Context(), req.IDs, opts)
	} else {
		res, err = h.compiler.Compile(c.Request.Context(), opts)
	}
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// CompileStatus godoc
// @ID          compileStatus
// @Summary     Last compile run
// @Description Reports the last persisted run, whether a pass is in progress, and the active vector count.
// @Tags        Compile
// @Produce     json
//
// @Success     200  {object} services.CompileStatus
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /compile/status [get]
func (h *Handlers) CompileStatus(c *gin.Context) {
	st, err := h.compiler.Status(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}
