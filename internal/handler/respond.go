package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"hive/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// statusFor maps a rejection kind to its HTTP status.
func statusFor(k domain.Kind) int {
	switch k {
	case domain.KindInsufficientCredit, domain.KindInvalidTransition, domain.KindDuplicateRequest, domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotAuthorized:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders domain rejections as {"error", "code"}. Anything else is
// an unexpected failure: it is attached to the context for the access log and
// reported as a generic 500.
func writeError(c *gin.Context, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		c.JSON(statusFor(de.Kind), gin.H{"error": de.Message, "code": de.Code})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "INTERNAL"})
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": domain.ErrValidation.Code})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "code": domain.ErrValidation.Code})
		return 0, false
	}
	return uint(id), true
}

const maxPage = 1 << 20

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	// keep (page-1)*limit well inside int range
	if page > maxPage {
		page = maxPage
	}
	return page, limit
}

func offset(page, limit int) int {
	return (page - 1) * limit
}

// parseDate reads a YYYY-MM-DD value in local time; empty means nil.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, domain.ErrValidation.WithMessage("date must be YYYY-MM-DD")
	}
	return &t, nil
}

// RegisterValidators adds the custom binding tags used by request structs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}
	return v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})
}
