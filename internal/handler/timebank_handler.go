package handler

import (
	"net/http"

	"hive/internal/middleware"
	"hive/internal/service"

	"github.com/gin-gonic/gin"
)

type TimeBankHandler struct {
	svc *service.TimeBankService
}

func NewTimeBankHandler(svc *service.TimeBankService) *TimeBankHandler {
	return &TimeBankHandler{svc: svc}
}

// Get handles GET /timebank.
func (h *TimeBankHandler) Get(c *gin.Context) {
	tb, err := h.svc.Balance(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tb)
}

// Transactions handles GET /transactions.
func (h *TimeBankHandler) Transactions(c *gin.Context) {
	page, limit := parsePagination(c)
	list, err := h.svc.Transactions(c.Request.Context(), middleware.GetUserID(c), limit, offset(page, limit))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "page": page, "limit": limit})
}
