package handlers

import (
	"errors"
	"net/http"

	"quizdesk/services"

	"github.com/gin-gonic/gin"
)

// writeError maps service errors onto the response taxonomy: field-level
// validation failures are 400 with details, missing resources 404, attempt
// rejections 403, races 409, anything else 500.
func writeError(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": verr.Fields})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuizNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrResponseNotFound),
		errors.Is(err, services.ErrAnswerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrRetakeNotAllowed),
		errors.Is(err, services.ErrAttemptLimitExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
