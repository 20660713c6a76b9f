package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 20},
		{"?page=3&limit=10", 3, 10},
		{"?page=0&limit=0", 1, 20},
		{"?page=-4&limit=500", 1, 20},
		{"?page=abc", 1, 20},
		{"?page=461168601842738792&limit=20", maxPage, 20},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/api/v1/listings"+tt.query, nil)
			page, limit := parsePagination(c)
			if page != tt.wantPage || limit != tt.wantLimit {
				t.Errorf("parsePagination(%q) = %d, %d, want %d, %d", tt.query, page, limit, tt.wantPage, tt.wantLimit)
			}
			if off := offset(page, limit); off < 0 {
				t.Errorf("offset(%d, %d) = %d, want >= 0", page, limit, off)
			}
		})
	}
}
