package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limitedEngine(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/users/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/users/login", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(PerMinute(1, 2), nil)
	defer rl.Stop()
	r := limitedEngine(rl)

	for i := 0; i < 2; i++ {
		if rec := hit(r, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, rec.Code)
		}
	}
	rec := hit(r, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}

	if rec := hit(r, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("other client limited: %d", rec.Code)
	}
	if n := rl.ClientCount(); n != 2 {
		t.Errorf("clients = %d, want 2", n)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, CleanupInterval: time.Minute}, nil)
	defer rl.Stop()
	r := limitedEngine(rl)

	hit(r, "10.0.0.1")
	rl.cleanup(time.Now())
	if rl.ClientCount() != 1 {
		t.Fatal("fresh client dropped")
	}
	rl.cleanup(time.Now().Add(3 * time.Minute))
	if rl.ClientCount() != 0 {
		t.Fatal("idle client kept")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(PerMinute(10, 1), nil)
	rl.Stop()
	rl.Stop()
}
