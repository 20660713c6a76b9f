package handler

import (
	"net/http"
	"strconv"
	"strings"

	"hive/internal/middleware"
	"hive/internal/repository"
	"hive/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminRepo  *repository.AdminRepository
	reports    *service.ReportService
	moderation *service.ModerationService
}

func NewAdminHandler(adminRepo *repository.AdminRepository, reports *service.ReportService, moderation *service.ModerationService) *AdminHandler {
	return &AdminHandler{adminRepo: adminRepo, reports: reports, moderation: moderation}
}

// KPI handles GET /admin/kpi: platform counters plus daily completions.
func (h *AdminHandler) KPI(c *gin.Context) {
	stats, err := h.adminRepo.GetKPIStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days < 1 || days > 365 {
		days = 30
	}
	series, err := h.adminRepo.ExchangesCompletedByDay(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "completed_by_day": series})
}

// ListReports handles GET /admin/reports?status=.
func (h *AdminHandler) ListReports(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.reports.List(c.Request.Context(), strings.ToUpper(c.Query("status")), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

// GetReport handles GET /admin/reports/:id.
func (h *AdminHandler) GetReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	r, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": r})
}

// ResolveReport handles POST /admin/reports/:id/resolve.
func (h *AdminHandler) ResolveReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		RemoveContent bool   `json:"remove_content"`
		UserAction    string `json:"user_action"`
		AdminNotes    string `json:"admin_notes" binding:"max=2000"`
		Action        string `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.moderation.ResolveReport(c.Request.Context(), middleware.GetUserID(c), id, service.ResolveInput{
		RemoveContent: req.RemoveContent,
		UserAction:    req.UserAction,
		AdminNotes:    req.AdminNotes,
		Action:        req.Action,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Report " + strings.ToLower(res.Report.Status),
		"report":        res.Report,
		"actions_taken": res.ActionsTaken,
	})
}

// BanUser handles POST /admin/users/:id/ban.
func (h *AdminHandler) BanUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason       string `json:"reason" binding:"max=500"`
		DurationDays int    `json:"duration_days" binding:"min=0"`
		ReportID     *uint  `json:"report_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	u, err := h.moderation.BanUser(c.Request.Context(), middleware.GetUserID(c), id, service.BanInput{
		Reason:       req.Reason,
		DurationDays: req.DurationDays,
		ReportID:     req.ReportID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "User banned",
		"user":          u,
		"duration_days": req.DurationDays,
	})
}

// WarnUser handles POST /admin/users/:id/warn.
func (h *AdminHandler) WarnUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Message  string `json:"message" binding:"required,max=2000"`
		ReportID *uint  `json:"report_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.moderation.WarnUser(c.Request.Context(), middleware.GetUserID(c), id, req.Message, req.ReportID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Warning sent", "user": u})
}

// DeleteListing handles DELETE /admin/listings/:id.
func (h *AdminHandler) DeleteListing(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"max=500"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	l, err := h.moderation.RemoveListing(c.Request.Context(), middleware.GetUserID(c), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	kind := "Offer"
	if l.IsWant() {
		kind = "Want"
	}
	c.JSON(http.StatusOK, gin.H{"message": kind + " deleted successfully", "listing": l})
}

// ExchangeDetail handles GET /admin/exchanges/:id.
func (h *AdminHandler) ExchangeDetail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ex, logs, err := h.moderation.ExchangeDetail(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": ex, "audit_log": logs})
}
