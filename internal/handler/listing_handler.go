package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"hive/internal/domain"
	"hive/internal/middleware"
	"hive/internal/service"

	"github.com/gin-gonic/gin"
)

type ListingHandler struct {
	svc *service.ListingService
}

func NewListingHandler(svc *service.ListingService) *ListingHandler {
	return &ListingHandler{svc: svc}
}

type listingRequest struct {
	Type         string     `json:"type" binding:"required,oneof=offer want"`
	Title        string     `json:"title" binding:"required,max=255"`
	Description  string     `json:"description"`
	TimeRequired int        `json:"time_required" binding:"required,min=1"`
	ActivityType string     `json:"activity_type" binding:"omitempty,oneof=1to1 group"`
	PersonCount  int        `json:"person_count" binding:"omitempty,min=1"`
	OfferType    string     `json:"offer_type" binding:"omitempty,oneof=1time recurring"`
	LocationType string     `json:"location_type" binding:"omitempty,oneof=myLocation remote"`
	Location     string     `json:"location" binding:"max=255"`
	Latitude     *float64   `json:"latitude" binding:"omitempty,latitude"`
	Longitude    *float64   `json:"longitude" binding:"omitempty,longitude"`
	Tags         []string   `json:"tags" binding:"max=20,dive,max=50"`
	Date         string     `json:"date" binding:"omitempty,isodate"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
}

type listingPatchRequest struct {
	Title        *string    `json:"title" binding:"omitempty,max=255"`
	Description  *string    `json:"description"`
	TimeRequired *int       `json:"time_required" binding:"omitempty,min=1"`
	ActivityType *string    `json:"activity_type" binding:"omitempty,oneof=1to1 group"`
	PersonCount  *int       `json:"person_count" binding:"omitempty,min=1"`
	OfferType    *string    `json:"offer_type" binding:"omitempty,oneof=1time recurring"`
	LocationType *string    `json:"location_type" binding:"omitempty,oneof=myLocation remote"`
	Location     *string    `json:"location" binding:"omitempty,max=255"`
	Latitude     *float64   `json:"latitude" binding:"omitempty,latitude"`
	Longitude    *float64   `json:"longitude" binding:"omitempty,longitude"`
	Tags         []string   `json:"tags" binding:"omitempty,max=20,dive,max=50"`
	Date         string     `json:"date" binding:"omitempty,isodate"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
}

// Create handles POST /listings.
func (h *ListingHandler) Create(c *gin.Context) {
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	l, err := h.svc.Create(c.Request.Context(), middleware.GetUserID(c), service.ListingInput{
		Type:         req.Type,
		Title:        req.Title,
		Description:  req.Description,
		TimeRequired: req.TimeRequired,
		ActivityType: req.ActivityType,
		PersonCount:  req.PersonCount,
		OfferType:    req.OfferType,
		LocationType: req.LocationType,
		Location:     req.Location,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Tags:         req.Tags,
		Date:         date,
		ScheduledAt:  req.ScheduledAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":           l.ID,
		l.Type + "_id": l.ID,
		"listing":      l,
	})
}

// Update handles PATCH /listings/:id.
func (h *ListingHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req listingPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	l, err := h.svc.Update(c.Request.Context(), middleware.GetUserID(c), id, service.ListingPatch{
		Title:        req.Title,
		Description:  req.Description,
		TimeRequired: req.TimeRequired,
		ActivityType: req.ActivityType,
		PersonCount:  req.PersonCount,
		OfferType:    req.OfferType,
		LocationType: req.LocationType,
		Location:     req.Location,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Tags:         req.Tags,
		Date:         date,
		ScheduledAt:  req.ScheduledAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l})
}

// Delete handles DELETE /listings/:id.
func (h *ListingHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted successfully"})
}

// Get handles GET /listings/:id.
func (h *ListingHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	l, err := h.svc.Get(c.Request.Context(), middleware.GetUserID(c), id, middleware.IsAdmin(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l, "owner": gin.H{"id": l.User.ID, "name": l.User.DisplayName()}})
}

// Browse handles GET /listings?type=&tag=&search=&lat=&lng=.
func (h *ListingHandler) Browse(c *gin.Context) {
	page, limit := parsePagination(c)
	q := service.BrowseQuery{
		Type:   c.Query("type"),
		Tag:    c.Query("tag"),
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  limit,
		Offset: offset(page, limit),
	}
	if q.Type != "" && q.Type != domain.ListingTypeOffer && q.Type != domain.ListingTypeWant {
		writeError(c, domain.ErrValidation.WithMessage("type must be offer or want"))
		return
	}
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr == nil && lngErr == nil {
		q.Latitude, q.Longitude = &lat, &lng
	}
	items, err := h.svc.Browse(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	data := make([]gin.H, 0, len(items))
	for _, it := range items {
		row := gin.H{"listing": it.Listing, "owner_name": it.Listing.User.DisplayName()}
		if it.DistanceKm != nil {
			row["distance_km"] = *it.DistanceKm
		}
		if it.Proximity != "" {
			row["proximity"] = it.Proximity
		}
		data = append(data, row)
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "page": page, "limit": limit})
}

// Mine handles GET /me/listings.
func (h *ListingHandler) Mine(c *gin.Context) {
	page, limit := parsePagination(c)
	list, err := h.svc.ListMine(c.Request.Context(), middleware.GetUserID(c), limit, offset(page, limit))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "page": page, "limit": limit})
}
