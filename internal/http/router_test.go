package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jubileesolutions/overlay-backend/internal/config"
	"github.com/jubileesolutions/overlay-backend/internal/domain"
	"github.com/jubileesolutions/overlay-backend/internal/http/middleware"
	"github.com/jubileesolutions/overlay-backend/internal/ingest"
	"github.com/jubileesolutions/overlay-backend/internal/repo"
	"github.com/jubileesolutions/overlay-backend/internal/services"
	"github.com/jubileesolutions/overlay-backend/internal/vectorindex"
)

const testSecret = "router-test-secret"

// flatEmbedder returns the same unit vector for every input.
type flatEmbedder struct{}

func (flatEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (flatEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (flatEmbedder) Dimension() int { return 3 }
func (flatEmbedder) Model() string  { return "flat" }

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "router.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(db) })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newDeps(db *gorm.DB) Deps {
	idx := vectorindex.NewMemory(3)
	overlays := services.NewOverlayService(db)
	return Deps{
		Overlays: overlays,
		Resolver: services.NewInheritanceResolver(db, services.KeyDomainTitle),
		Compiler: services.NewCompiler(db, flatEmbedder{}, idx, 10),
		Searcher: services.NewSearchService(flatEmbedder{}, idx),
		Importer: ingest.NewImporter(overlays),
	}
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   50,
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
		Security:    config.SecurityConfig{AdminJWTSecret: testSecret},
	}
}

func newRouter(t *testing.T, cfg config.Config, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, deps, cfg)
	return r
}

func serve(r *gin.Engine, method, path string, body []byte, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newRouter(t, baseConfig(), newDeps(newTestDB(t)))

	w := serve(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}

	w = serve(r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "overlay_http_requests_total") {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	w = serve(r, http.MethodGet, "/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	w = serve(r, http.MethodPost, "/health", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// no Ready func → no /ready route
	if w := serve(r, http.MethodGet, "/ready", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /ready without check = %d", w.Code)
	}
	// swagger disabled
	if w := serve(r, http.MethodGet, "/swagger/index.html", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /swagger with docs disabled = %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r := newRouter(t, cfg, newDeps(newTestDB(t)))

	w := serve(r, http.MethodGet, "/health", nil, "Origin", "http://example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	w = serve(r, http.MethodGet, "/health", nil, "Origin", "http://evil.test")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin echoed: %q", got)
	}

	// the API moved with the base path
	if w := serve(r, http.MethodGet, "/api/v2/overlays", nil); w.Code != http.StatusOK {
		t.Fatalf("GET /api/v2/overlays = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/api/v1/overlays", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /api/v1/overlays = %d", w.Code)
	}
}

func TestRegisterRoutes_Ready(t *testing.T) {
	deps := newDeps(newTestDB(t))
	healthy := true
	deps.Ready = func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("db down")
	}
	r := newRouter(t, baseConfig(), deps)

	if w := serve(r, http.MethodGet, "/ready", nil); w.Code != http.StatusOK {
		t.Fatalf("GET /ready = %d", w.Code)
	}
	healthy = false
	w := serve(r, http.MethodGet, "/ready", nil)
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "service_unavailable") {
		t.Fatalf("GET /ready unhealthy = %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_OverlayLifecycleThroughStack(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(t, baseConfig(), newDeps(db))

	body, _ := json.Marshal(map[string]any{
		"title":   "Pastoral tone",
		"content": "Speak gently.",
		"domain":  "Abilities",
		"status":  "active",
		"scope":   map[string]any{"level": "shared", "domain_key": "pastoral"},
	})
	w := serve(r, http.MethodPost, "/api/v1/overlays", body, middleware.HeaderActor, "editor@jubilee")
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	var e domain.ContentEntry
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = serve(r, http.MethodPost, "/api/v1/compile", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"new_entries":1`) {
		t.Fatalf("compile = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodGet, "/api/v1/scopes/Abilities/pastoral/resolve?individual=ann", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), e.ID) {
		t.Fatalf("resolve = %d %s", w.Code, w.Body.String())
	}

	path := "/api/v1/overlays/" + e.ID + "/permanent"
	confirm := services.HardDeletePrefix + e.ID

	// no token
	if w := serve(r, http.MethodDelete, path, nil, middleware.HeaderConfirmToken, confirm); w.Code != http.StatusUnauthorized {
		t.Fatalf("purge without bearer = %d", w.Code)
	}

	tok, err := middleware.IssueAdminToken(testSecret, "ops@jubilee", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("IssueAdminToken: %v", err)
	}
	// bearer but wrong confirmation
	w = serve(r, http.MethodDelete, path, nil, "Authorization", "Bearer "+tok, middleware.HeaderConfirmToken, "nope")
	if w.Code != http.StatusForbidden {
		t.Fatalf("purge with bad confirm = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodDelete, path, nil, "Authorization", "Bearer "+tok, middleware.HeaderConfirmToken, confirm)
	if w.Code != http.StatusNoContent {
		t.Fatalf("purge = %d %s", w.Code, w.Body.String())
	}
	if w := serve(r, http.MethodGet, "/api/v1/overlays/"+e.ID, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after purge = %d", w.Code)
	}

	var audits []domain.AuditLogEntry
	if err := db.Where("entry_id = ? AND action = ?", e.ID, domain.AuditHardDeleted).Find(&audits).Error; err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(audits) != 1 || audits[0].Actor == nil || *audits[0].Actor != "ops@jubilee" {
		t.Fatalf("hard delete audit = %+v", audits)
	}
}

func TestRegisterRoutes_PurgeDisabledWithoutSecret(t *testing.T) {
	cfg := baseConfig()
	cfg.Security.AdminJWTSecret = ""
	r := newRouter(t, cfg, newDeps(newTestDB(t)))

	w := serve(r, http.MethodDelete, "/api/v1/overlays/00000000-0000-0000-0000-000000000001/permanent", nil,
		"Authorization", "Bearer whatever")
	if w.Code != http.StatusForbidden {
		t.Fatalf("purge with admin disabled = %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestPipeline_Smoke(t *testing.T) {
	cfg := baseConfig()
	cfg.Security.EnableHSTS = true
	cfg.Security.HSTSMaxAge = time.Hour
	r := newRouter(t, cfg, newDeps(newTestDB(t)))

	w := serve(r, http.MethodGet, "/health", nil, "X-Forwarded-Proto", "https")
	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if got := w.Header().Get("Strict-Transport-Security"); !strings.HasPrefix(got, "max-age=3600") {
		t.Fatalf("HSTS = %q", got)
	}
}
