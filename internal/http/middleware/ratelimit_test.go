package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByActorOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
	c.Request = req

	if key := KeyByActorOrIP()(c); key != "ip:203.0.113.9" {
		t.Fatalf("expected ip-based key; got %q", key)
	}
	c.Set(actorKey, "ed")
	if key := KeyByActorOrIP()(c); key != "actor:ed" {
		t.Fatalf("expected actor-based key; got %q", key)
	}
}

func TestNewRateLimiter_DefaultsAndReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, nil)
	if rl.burst != 1 || rl.keyFn == nil {
		t.Fatalf("defaults not applied: burst=%d", rl.burst)
	}
	lim := rl.getVisitor("k1")
	if rl.getVisitor("k1") != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, nil)
	clock := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return clock }

	old := rl.getVisitor("old")
	clock = clock.Add(rl.ttl)
	rl.cleanupN = 4999

	if rl.getVisitor("old") == old {
		t.Fatalf("idle bucket should be replaced after eviction")
	}
	if rl.cleanupN != 0 {
		t.Fatalf("cleanup counter should reset, got %d", rl.cleanupN)
	}
}

func TestRateLimiter_Handler_429AndExempt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.0001, 1, func(*gin.Context) string { return "same" }, "/health")

	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/work", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	if w := hit("/work"); w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}
	w := hit("/work")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected 429 with Retry-After, got %d %v", w.Code, w.Header())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["code"] != "too_many_requests" {
		t.Fatalf("unexpected 429 body: %s", w.Body.String())
	}
	for i := 0; i < 3; i++ {
		if w := hit("/health"); w.Code != http.StatusOK {
			t.Fatalf("exempt path limited: %d", w.Code)
		}
	}
}
