// Overlay HTTP handlers.
//
// This file exposes the authoring endpoints for content entries:
//   - POST   /overlays                   (create)
//   - POST   /overlays/import            (Markdown import, import_handler.go)
//   - GET    /overlays                   (list, paginated)
//   - GET    /overlays/{id}              (fetch, ETag support)
//   - PATCH  /overlays/{id}/metadata     (metadata update)
//   - PUT    /overlays/{id}/content      (content update)
//   - PUT    /overlays/{id}/status       (lifecycle transition)
//   - DELETE /overlays/{id}              (soft delete)
//   - POST   /overlays/{id}/supersede    (replace with a new entry)
//   - DELETE /overlays/{id}/permanent    (hard delete, admin only)
//   - GET    /overlays/{id}/audit        (audit trail)
//   - GET    /scopes/{domain}/{key}/overlays
//
// Handlers stay transport-thin: bind, call the service, map the result.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
	"github.com/jubileesolutions/overlay-backend/internal/http/middleware"
	"github.com/jubileesolutions/overlay-backend/internal/services"
)

//
// DTOs
//

// ListOverlaysResponse wraps a page of entries and pagination information.
type ListOverlaysResponse struct {
	Entries    []domain.ContentEntry `json:"entries"`
	Pagination Pagination            `json:"pagination"`
}

// EntriesResponse wraps an unpaginated entry list.
type EntriesResponse struct {
	Entries []domain.ContentEntry `json:"entries"`
}

// UpdateContentRequest is the JSON payload for replacing an entry's content.
type UpdateContentRequest struct {
	Content string `json:"content" binding:"required" example:"Speak with warmth and patience."`
}

// UpdateStatusRequest is the JSON payload for a lifecycle transition.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required" enums:"draft,active,deprecated" example:"active"`
}

// AuditResponse lists the audit rows of one entry, oldest first.
type AuditResponse struct {
	EntryID string                 `json:"entry_id"`
	Entries []domain.AuditLogEntry `json:"entries"`
}

// entryETag is a weak validator over everything a client renders.
func entryETag(e *domain.ContentEntry) string {
	return fmt.Sprintf(`W/"%s:%s:%s:%d"`, e.ID, e.ContentHash, e.MetadataHash, e.UpdatedAt.UnixNano())
}

// CreateOverlay godoc
// @ID          createOverlay
// @Summary     Create an overlay entry
// @Description Creates a content entry. Status defaults to draft, guardrails to medium, version to 1.0.
// @Tags        Overlays
// @Accept      json
// @Produce     json
//
// @Param       X-Actor  header  string  false "Actor recorded in the audit trail"  example(editor@jubilee)
// @Param       body     body    services.CreateEntryInput  true  "Entry"
//
// @Success     201  {object}  domain.ContentEntry
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /overlays [post]
func (h *Handlers) CreateOverlay(c *gin.Context) {
	var in services.CreateEntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	e, err := h.overlays.Create(c.Request.Context(), in)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+e.ID)
	ok(c, http.StatusCreated, e)
}

// ListOverlays godoc
// @ID          listOverlays
// @Summary     List overlay entries (paginated)
// @Description Returns entries ordered by creation time. active_only restricts the page to active entries.
// @Tags        Overlays
// @Produce     json
//
// @Param       page         query  int   false "Page number"     minimum(1) default(1)
// @Param       page_size    query  int   false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       active_only  query  bool  false "Only active entries"
//
// @Success     200  {object} handlers.ListOverlaysResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /overlays [get]
func (h *Handlers) ListOverlays(c *gin.Context) {
	p := pageParams(c)
	activeOnly := strings.EqualFold(c.Query("active_only"), "true") || c.Query("active_only") == "1"

	items, total, err := h.overlays.ListPage(c.Request.Context(), activeOnly, p.Page, p.PageSize)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListOverlaysResponse{Entries: items, Pagination: paginate(p, total)})
}

// GetOverlay godoc
// @ID          getOverlay
// @Summary     Fetch an overlay entry
// @Description Returns one entry in any status. Supports weak ETag via If-None-Match.
// @Tags        Overlays
// @Produce     json
//
// @Param       id             path    string  true  "Entry ID (UUID)"  format(uuid)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object} domain.ContentEntry
// @Header      200  {string} ETag "Weak ETag for the entry"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Router      /overlays/{id} [get]
func (h *Handlers) GetOverlay(c *gin.Context) {
	id, good := entryID(c)
	if !good {
		return
	}
	e, err := h.overlays.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	etag := entryETag(e)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}
	ok(c, http.StatusOK, e)
}

// UpdateOverlayMetadata godoc
// @ID          updateOverlayMetadata
// @Summary     Update entry metadata
// @Description Applies the non-null fields. Content and status are untouched; the metadata hash is recomputed.
// @Tags        Overlays
// @Accept      json
// @Produce     json
//
// @Param       X-Actor  header  string  false "Actor recorded in the audit trail"
// @Param       id       path    string  true  "Entry ID (UUID)"  format(uuid)
// @Param       body     body    services.MetadataPatch  true  "Fields to change"
//
// @Success     200  {object} domain.ContentEntry
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Router      /overlays/{id}/metadata [patch]
func (h *Handlers) UpdateOverlayMetadata(c *gin.Context) {
	id, good := entryID(c)
	if !good {
		return
	}
	var patch services.MetadataPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	e, err := h.overlays.UpdateMetadata(c.Request.Context(), id, patch)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// UpdateOverlayContent godoc
// @ID          updateOverlayContent
// @Summary     Replace entry content
// @Description Replaces the content body. Identical content is a no-op.
// @Tags        Overlays
// @Accept      json
// @Produce     json
//
// @Param       X-Actor  header  string  false "Actor recorded in the audit trail"
// @Param       id       path    string  true  "Entry ID (UUID)"  format(uuid)
// @Param       body     body    handlers.UpdateContentRequest  true  "New content"
//
// @Success     200  {object} domain.ContentEntry
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Router      /overlays/{id}/content [put]
func (h *Handlers) UpdateOverlayContent(c *gin.Context) {
	id, good := entryID(c)
	if !good {
		return
	}
	var req UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	e, err := h.overlays.UpdateContent(c.Request.Context(), id, req.Content)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// UpdateOverlayStatus godoc
// @ID          updateOverlayStatus
// @Summary     Change entry status
// @Description Allowed: draft to active, draft to deprecated, active to deprecated. Setting the current status is a no-op.
// @Tags        Overlays
// @Accept      json
// @Produce     json
//
// @Param       X-Actor  header  string  false "Actor recorded in the audit trail"
// @Param       id       path    string  true  "Entry ID (UUID)"  format(uuid)
// @Param       body     body    handlers.UpdateStatusRequest  true  "Target status"
//
// @Success     200  {object} domain.ContentEntry
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Failure     409  {object} handlers.ErrorResponse "Transition not allowed"
// @Router      /overlays/{id}/status [put]
func (h *Handlers) UpdateOverlayStatus(c *gin.Context) {
	id, good := entryID(c)
	if !good {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}
	status := domain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	e, err := h.overlays.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// DeleteOverlay godoc
// @ID          deleteOverlay
// @Summary     Soft-delete an entry
// @Description Deprecates the entry. The row is kept; the next compile marks its vector inactive.
// @Tags        Overlays
//
// @Param       X-Actor  header  string  false "Actor recorded in the audit trail"
// @Param       id       path    string  true  "Entry ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Router      /overlays/{id} [delete]
func (h *Handlers) DeleteOverlay(c *gin.Context) {
	id, good := entryID(c)
	if !good {
		return
	}
	if err := h.overlays.SoftDelete(c.Request.Context(), id); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}

// SupersedeOverlay godoc
// @ID          supersedeOverlay
// @Summary     Supersede an entry
// @Description Creates the replacement, deprecates the old entry and links it to the new one in one transaction.
// @Tags        Overlays
// @Accept      json
// @Produce     json
//
// @Param       X-Actor  header  string  false "Actor recorded in the audit trail"
// @Param       id       path    string  true  "Entry ID being replaced (UUID)"  format(uuid)
// @Param       body     body    services.CreateEntryInput  true  "Replacement entry"
//
// @Success     201  {object} domain.ContentEntry
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Failure     409  {object} handlers.ErrorResponse "Already superseded"
// @Router      /overlays/{id}/supersede [post]
func (h *Handlers) SupersedeOverlay(c *gin.Context) {
	id, good := entryID(c)
	if !good {
		return
	}
	var in services.CreateEntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	e, err := h.overlays.Supersede(c.Request.Context(), id, in)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, e)
}

// PurgeOverlay godoc
// @ID          purgeOverlay
// @Summary     Permanently delete an entry
// @Description Removes the row after a final audit record. Requires an admin bearer token and X-Confirm-Token set to DELETE_PERMANENTLY_{id}.
// @Tags        Overlays
//
// @Security    AdminBearer
// @Param       id               path    string  true  "Entry ID (UUID)"  format(uuid)
// @Param       X-Confirm-Token  header  string  true  "DELETE_PERMANENTLY_{id}"
//
// @Success     204  {string} string "No Content"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     403  {object} handlers.ErrorResponse "Confirmation mismatch"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Router      /overlays/{id}/permanent [delete]
func (h *Handlers) PurgeOverlay(c *gin.Context) {
	id, good := entryID(c)
	if !good {
		return
	}
	token := c.GetHeader(middleware.HeaderConfirmToken)
	if err := h.overlays.HardDelete(c.Request.Context(), id, token); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}

// GetOverlayAudit godoc
// @ID          getOverlayAudit
// @Summary     Entry audit trail
// @Description Returns the audit rows for an entry, oldest first. Rows survive a permanent delete.
// @Tags        Overlays
// @Produce     json
//
// @Param       id  path  string  true  "Entry ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.AuditResponse
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Router      /overlays/{id}/audit [get]
func (h *Handlers) GetOverlayAudit(c *gin.Context) {
	id, good := entryID(c)
	if !good {
		return
	}
	rows, err := h.overlays.AuditLog(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, AuditResponse{EntryID: id, Entries: rows})
}

// ListScope godoc
// @ID          listScope
// @Summary     Active entries in a scope
// @Description Returns the active entries under a domain and domain key. sub_key narrows to one individual; pass an empty sub_key for the shared tier.
// @Tags        Overlays
// @Produce     json
//
// @Param       domain   path   string  true  "Root domain"  example(Abilities)
// @Param       key      path   string  true  "Domain key"   example(pastoral)
// @Param       sub_key  query  string  false "Individual sub-key"
//
// @Success     200  {object} handlers.EntriesResponse
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Router      /scopes/{domain}/{key}/overlays [get]
func (h *Handlers) ListScope(c *gin.Context) {
	var sub *string
	if v, present := c.GetQuery("sub_key"); present {
		v = strings.TrimSpace(v)
		sub = &v
	}
	items, err := h.overlays.ListByScope(c.Request.Context(), domain.Domain(c.Param("domain")), c.Param("key"), sub)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, EntriesResponse{Entries: items})
}
