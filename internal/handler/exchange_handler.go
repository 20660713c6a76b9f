package handler

import (
	"context"
	"net/http"

	"hive/internal/middleware"
	"hive/internal/models"
	"hive/internal/service"

	"github.com/gin-gonic/gin"
)

type ExchangeHandler struct {
	svc     *service.ExchangeService
	ratings *service.RatingService
}

func NewExchangeHandler(svc *service.ExchangeService, ratings *service.RatingService) *ExchangeHandler {
	return &ExchangeHandler{svc: svc, ratings: ratings}
}

// Create handles POST /exchanges.
func (h *ExchangeHandler) Create(c *gin.Context) {
	var req struct {
		ListingID uint `json:"listing_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ex, frozen, err := h.svc.Create(c.Request.Context(), middleware.GetUserID(c), req.ListingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"exchange_id": ex.ID,
		"time_frozen": frozen,
		"exchange":    ex,
	})
}

type exchangeAction func(ctx context.Context, userID, exchangeID uint) (*models.Exchange, error)

func (h *ExchangeHandler) act(c *gin.Context, fn exchangeAction) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ex, err := fn(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": ex, "status": ex.Status})
}

// Accept handles POST /exchanges/:id/accept.
func (h *ExchangeHandler) Accept(c *gin.Context) { h.act(c, h.svc.Accept) }

// Reject handles POST /exchanges/:id/reject.
func (h *ExchangeHandler) Reject(c *gin.Context) { h.act(c, h.svc.Reject) }

// Cancel handles POST /exchanges/:id/cancel.
func (h *ExchangeHandler) Cancel(c *gin.Context) { h.act(c, h.svc.Cancel) }

// Confirm handles POST /exchanges/:id/confirm.
func (h *ExchangeHandler) Confirm(c *gin.Context) { h.act(c, h.svc.Confirm) }

// ProposeDateTime handles POST /exchanges/:id/propose-datetime.
func (h *ExchangeHandler) ProposeDateTime(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Date string `json:"date" binding:"required,isodate"`
		Time string `json:"time" binding:"omitempty,clock"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	ex, err := h.svc.ProposeDateTime(c.Request.Context(), middleware.GetUserID(c), id, date, req.Time)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": ex})
}

// Rate handles POST /exchanges/:id/rate.
func (h *ExchangeHandler) Rate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Communication  int    `json:"communication" binding:"required,min=1,max=5"`
		Punctuality    int    `json:"punctuality" binding:"required,min=1,max=5"`
		WouldRecommend *bool  `json:"would_recommend" binding:"required"`
		Comment        string `json:"comment" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	r, err := h.ratings.Rate(c.Request.Context(), middleware.GetUserID(c), id, service.RatingInput{
		Communication:  req.Communication,
		Punctuality:    req.Punctuality,
		WouldRecommend: *req.WouldRecommend,
		Comment:        req.Comment,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rating": r})
}

// Ratings handles GET /exchanges/:id/ratings.
func (h *ExchangeHandler) Ratings(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.ratings.ListForExchange(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": list})
}

// Get handles GET /exchanges/:id.
func (h *ExchangeHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ex, err := h.svc.Get(c.Request.Context(), middleware.GetUserID(c), id, middleware.IsAdmin(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": ex})
}

// Mine handles GET /my-exchanges?status=.
func (h *ExchangeHandler) Mine(c *gin.Context) {
	page, limit := parsePagination(c)
	list, err := h.svc.ListMine(c.Request.Context(), middleware.GetUserID(c), c.Query("status"), limit, offset(page, limit))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "page": page, "limit": limit})
}

// ForListing handles GET /listings/:id/exchanges.
func (h *ExchangeHandler) ForListing(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListForListing(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// MineForListing handles GET /listings/:id/my-exchange.
func (h *ExchangeHandler) MineForListing(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ex, err := h.svc.MyExchangeForListing(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": ex})
}
