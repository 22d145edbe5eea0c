package handlers

import (
	"net/http"

	"quizdesk/services"

	"github.com/gin-gonic/gin"
)

// ResponseHandler serves the admin review endpoints, scoped to quizzes owned
// by the requesting admin.
type ResponseHandler struct {
	resultService *services.ResultService
}

func NewResponseHandler(resultService *services.ResultService) *ResponseHandler {
	return &ResponseHandler{
		resultService: resultService,
	}
}

func (h *ResponseHandler) ListResponses(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	responses, err := h.resultService.ListResponses(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, responses)
}

func (h *ResponseHandler) GetResponse(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	responseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	response, err := h.resultService.GetResponse(responseID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ResponseHandler) GradeAnswer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	answerID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.GradeAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.resultService.GradeAnswer(answerID, userID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
