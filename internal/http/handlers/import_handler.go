package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jubileesolutions/overlay-backend/internal/ingest"
)

// ImportOverlays godoc
// @ID          importOverlays
// @Summary     Import a Markdown document as draft entries
// @Description Splits the body into sections (headings title the paragraphs under them, table rows become one entry each) and creates a draft per section. Sections that are near copies of draft or active entries in the target scope are skipped and reported.
// @Tags        Overlays
// @Accept      plain
// @Produce     json
//
// @Param       X-Actor     header  string  false "Actor recorded in the audit trail"
// @Param       domain      query   string  true  "Root domain"  example(Abilities)
// @Param       domain_key  query   string  true  "Scope key"    example(pastoral)
// @Param       sub_key     query   string  false "Individual; empty imports into the shared tier"
// @Param       guardrails  query   string  false "Guardrail level for created entries"  Enums(low, medium, high)
// @Param       dry_run     query   bool    false "Report without creating anything"
// @Param       body        body    string  true  "Markdown document"
//
// @Success     200  {object} ingest.Report "Dry run"
// @Success     201  {object} ingest.Report
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     413  {object} handlers.ErrorResponse "Document too large"
// @Router      /overlays/import [post]
func (h *Handlers) ImportOverlays(c *gin.Context) {
	if h.importer == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "import is not enabled")
		return
	}
	t := ingest.Target{
		Domain:     c.Query("domain"),
		DomainKey:  c.Query("domain_key"),
		SubKey:     c.Query("sub_key"),
		Guardrails: strings.ToLower(strings.TrimSpace(c.Query("guardrails"))),
	}
	dry := c.Query("dry_run") == "true" || c.Query("dry_run") == "1"

	rep, err := h.importer.Import(c.Request.Context(), c.Request.Body, t, dry)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "document too large")
		return
	case err != nil:
		serviceError(c, err)
		return
	}
	if dry {
		ok(c, http.StatusOK, rep)
		return
	}
	ok(c, http.StatusCreated, rep)
}
