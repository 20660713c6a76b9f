package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestInMemoryRateLimiterAllow(t *testing.T) {
	r := NewInMemoryRateLimiter(2, time.Minute)
	defer r.Stop()

	for i, want := range []bool{true, true, false} {
		if got := r.Allow("a"); got != want {
			t.Errorf("Allow #%d = %v, want %v", i, got, want)
		}
	}
	if !r.Allow("b") {
		t.Error("Allow(b) = false, want true: keys are independent")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewInMemoryRateLimiter(1, time.Minute)
	defer limiter.Stop()

	r := gin.New()
	r.Use(RateLimit(limiter))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := []int{http.StatusOK, http.StatusTooManyRequests}
	for i, want := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != want {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, want)
		}
	}
}
