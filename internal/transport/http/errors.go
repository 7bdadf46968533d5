package http

import (
	"errors"
	"net/http"

	"culturax-service/internal/domain"
	"github.com/gin-gonic/gin"
)

// statusFor maps use case errors onto HTTP status codes. Anything unknown
// is a failed call to the data backend.
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrInvalidOption),
		errors.Is(err, domain.ErrQuestionIndex),
		errors.Is(err, domain.ErrNoQuestions):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionFinished), errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}
