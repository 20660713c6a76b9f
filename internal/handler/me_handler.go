package handler

import (
	"net/http"

	"hive/internal/domain"
	"hive/internal/middleware"
	"hive/internal/repository"
	"hive/internal/service"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	userRepo *repository.UserRepository
	timebank *service.TimeBankService
}

func NewMeHandler(userRepo *repository.UserRepository, timebank *service.TimeBankService) *MeHandler {
	return &MeHandler{userRepo: userRepo, timebank: timebank}
}

// Get handles GET /me.
func (h *MeHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)
	u, err := h.userRepo.GetWithRelations(userID)
	if err != nil {
		writeError(c, domain.NotFoundf("user"))
		return
	}
	if u.TimeBank == nil {
		if u.TimeBank, err = h.timebank.Balance(c.Request.Context(), userID); err != nil {
			writeError(c, err)
			return
		}
	}
	if u.Profile == nil {
		if u.Profile, err = h.userRepo.GetOrCreateProfile(userID); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// UpdateProfile handles PATCH /me/profile.
func (h *MeHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Bio      *string  `json:"bio" binding:"omitempty,max=2000"`
		Location *string  `json:"location" binding:"omitempty,max=255"`
		Skills   []string `json:"skills" binding:"omitempty,max=30,dive,max=50"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.userRepo.GetOrCreateProfile(middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if req.Bio != nil {
		p.Bio = *req.Bio
	}
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.Skills != nil {
		p.Skills = req.Skills
	}
	if err := h.userRepo.SaveProfile(p); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

// RegisterFCMToken handles PUT /me/fcm-token.
func (h *MeHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required,max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.userRepo.UpdateFields(middleware.GetUserID(c), map[string]interface{}{"fcm_token": req.Token}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
