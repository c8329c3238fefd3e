package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
	"github.com/jubileesolutions/overlay-backend/internal/ingest"
	"github.com/jubileesolutions/overlay-backend/internal/services"
	"github.com/jubileesolutions/overlay-backend/internal/utils"
	"github.com/jubileesolutions/overlay-backend/internal/vectorindex"
)

//
// Service contracts (context-aware)
//

// OverlayService is the authoring surface consumed by the overlay handlers.
// Implementations must honor ctx and read the actor from it for auditing.
type OverlayService interface {
	Create(ctx context.Context, in services.CreateEntryInput) (*domain.ContentEntry, error)
	Get(ctx context.Context, id string) (*domain.ContentEntry, error)
	ListPage(ctx context.Context, activeOnly bool, page, pageSize int) ([]domain.ContentEntry, int64, error)
	ListByScope(ctx context.Context, d domain.Domain, domainKey string, subKey *string) ([]domain.ContentEntry, error)
	UpdateMetadata(ctx context.Context, id string, patch services.MetadataPatch) (*domain.ContentEntry, error)
	UpdateContent(ctx context.Context, id, content string) (*domain.ContentEntry, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.ContentEntry, error)
	SoftDelete(ctx context.Context, id string) error
	Supersede(ctx context.Context, id string, in services.CreateEntryInput) (*domain.ContentEntry, error)
	HardDelete(ctx context.Context, id, token string) error
	AuditLog(ctx context.Context, id string) ([]domain.AuditLogEntry, error)
}

// Resolver computes the effective content set for an individual.
type Resolver interface {
	Resolve(ctx context.Context, d domain.Domain, domainKey, individual string) (*services.Resolution, error)
}

// Compiler synchronizes the vector index with the relational store.
type Compiler interface {
	Compile(ctx context.Context, opts services.CompileOptions) (*services.CompileResult, error)
	CompileEntries(ctx context.Context, ids []string, opts services.CompileOptions) (*services.CompileResult, error)
	Status(ctx context.Context) (*services.CompileStatus, error)
}

// Searcher runs similarity queries over active entries.
type Searcher interface {
	Search(ctx context.Context, query string, f vectorindex.Filter, limit int) ([]vectorindex.Match, error)
}

// Importer creates draft entries from a Markdown document.
type Importer interface {
	Import(ctx context.Context, r io.Reader, t ingest.Target, dryRun bool) (*ingest.Report, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the overlay API.
type Handlers struct {
	overlays OverlayService
	resolver Resolver
	compiler Compiler
	searcher Searcher
	importer Importer
}

// New constructs a Handlers bound to the given services. importer may be
// nil, which disables the import endpoint.
func New(overlays OverlayService, resolver Resolver, compiler Compiler, searcher Searcher, importer Importer) *Handlers {
	return &Handlers{overlays: overlays, resolver: resolver, compiler: compiler, searcher: searcher, importer: importer}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func pageParams(c *gin.Context) utils.Page {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)
}

func paginate(p utils.Page, total int64) Pagination {
	pages := utils.TotalPages(total, p.PageSize)
	return Pagination{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Page < pages,
	}
}

// entryID reads the :id path parameter and rejects anything but a UUID.
func entryID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "entry id must be a UUID")
		return "", false
	}
	return id, true
}
