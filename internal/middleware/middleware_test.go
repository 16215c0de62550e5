package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plsfixthx/annotator/internal/config"
	"github.com/redis/go-redis/v9"
)

func init() { gin.SetMode(gin.TestMode) }

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.Any("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/x", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	cfg := &config.Config{
		Env:            "production",
		AllowedOrigins: []string{"https://app.example/"},
		AllowedMethods: []string{"GET", "POST"},
	}
	r := newRouter(CORS(cfg))

	rec := do(r, http.MethodGet, "https://app.example")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allowed origin header = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Errorf("methods = %q", got)
	}

	rec = do(r, http.MethodGet, "https://evil.example")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}

	rec = do(r, http.MethodOptions, "https://app.example")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}

func TestCORSDevelopmentAllowsAny(t *testing.T) {
	r := newRouter(CORS(&config.Config{Env: "development"}))
	rec := do(r, http.MethodGet, "http://localhost:5173")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("dev origin header = %q", got)
	}
}

// Limits must never turn a Redis outage into failed requests.
func TestLimitersBypassWithoutRedis(t *testing.T) {
	down := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer down.Close()
	cfg := &config.Config{RateLimitRequests: 1, RateLimitDuration: time.Minute, UploadDailyLimit: 1}

	for name, r := range map[string]*gin.Engine{
		"nil client":  newRouter(RateLimiter(nil, cfg), UploadRateLimit(nil, cfg)),
		"unreachable": newRouter(RateLimiter(down, cfg), UploadRateLimit(down, cfg)),
	} {
		for i := 0; i < 3; i++ {
			if rec := do(r, http.MethodPost, ""); rec.Code != http.StatusOK {
				t.Errorf("%s: request %d status = %d, want 200", name, i, rec.Code)
			}
		}
	}
}
