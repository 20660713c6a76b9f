package middleware

import (
	"net/http"
	"time"

	"hive/internal/domain"
	"hive/internal/repository"

	"github.com/gin-gonic/gin"
)

// ActiveUser rejects banned accounts whose ban is still in force. Use after AuthRequired.
func ActiveUser(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		u, err := userRepo.GetByID(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}
		if u.Banned(time.Now()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": domain.ErrUserBanned.Message, "code": domain.ErrUserBanned.Code})
			return
		}
		c.Next()
	}
}
