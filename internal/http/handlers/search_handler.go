package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
	"github.com/jubileesolutions/overlay-backend/internal/vectorindex"
)

// SearchRequest is a similarity query over active entries.
type SearchRequest struct {
	Query      string  `json:"query"       binding:"required" example:"how to comfort someone grieving"`
	Domain     string  `json:"domain"      example:"Abilities"`
	DomainKey  string  `json:"domain_key"  example:"pastoral"`
	ScopeLevel string  `json:"scope_level" enums:"shared,individual"`
	SubKey     *string `json:"sub_key"`
	Limit      int     `json:"limit"       example:"10"`
}

// SearchResponse lists hits, best first.
type SearchResponse struct {
	Matches []vectorindex.Match `json:"matches"`
}

// Resolve godoc
// @ID          resolveScope
// @Summary     Effective entries for an individual
// @Description Walks individual then shared entries under a domain key. An individual entry overrides the shared entry with the same override key. Without individual only the shared tier is returned.
// @Tags        Resolution
// @Produce     json
//
// @Param       domain      path   string  true  "Root domain"  example(Abilities)
// @Param       key         path   string  true  "Domain key"   example(pastoral)
// @Param       individual  query  string  false "Individual sub-key"  example(Jubilee)
//
// @Success     200  {object} services.Resolution
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Router      /scopes/{domain}/{key}/resolve [get]
func (h *Handlers) Resolve(c *gin.Context) {
	res, err := h.resolver.Resolve(c.Request.Context(),
		domain.Domain(c.Param("domain")), c.Param("key"), strings.TrimSpace(c.Query("individual")))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// Search godoc
// @ID          search
// @Summary     Similarity search
// @Description Embeds the query and returns the closest active entries, optionally filtered by scope.
// @Tags        Search
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SearchRequest  true  "Query"
//
// @Success     200  {object} handlers.SearchResponse
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     502  {object} handlers.ErrorResponse "Embedding provider failed"
// @Router      /search [post]
func (h *Handlers) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query required")
		return
	}
	f := vectorindex.Filter{
		Domain:     domain.Domain(strings.TrimSpace(req.Domain)),
		DomainKey:  strings.TrimSpace(req.DomainKey),
		ScopeLevel: domain.ScopeLevel(strings.ToLower(strings.TrimSpace(req.ScopeLevel))),
		SubKey:     req.SubKey,
	}
	hits, err := h.searcher.Search(c.Request.Context(), req.Query, f, req.Limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	if hits == nil {
		hits = []vectorindex.Match{}
	}
	ok(c, http.StatusOK, SearchResponse{Matches: hits})
}
