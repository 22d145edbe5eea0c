package handlers

import (
	"net/http"

	"quizdesk/services"

	"github.com/gin-gonic/gin"
)

// PublicHandler serves the participant-facing endpoints: browsing active
// quizzes, submitting answers and fetching results by session identifier.
type PublicHandler struct {
	quizService       *services.QuizService
	submissionService *services.SubmissionService
	resultService     *services.ResultService
	hub               *services.Hub
}

func NewPublicHandler(
	quizService *services.QuizService,
	submissionService *services.SubmissionService,
	resultService *services.ResultService,
	hub *services.Hub,
) *PublicHandler {
	return &PublicHandler{
		quizService:       quizService,
		submissionService: submissionService,
		resultService:     resultService,
		hub:               hub,
	}
}

func (h *PublicHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.quizService.ListActiveQuizzes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, quizzes)
}

func (h *PublicHandler) GetQuiz(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	quiz, err := h.quizService.GetActiveQuiz(c.Request.Context(), quizID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

func (h *PublicHandler) SubmitQuiz(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.submissionService.Submit(quizID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	// Notify admin watchers of this quiz
	if h.hub != nil {
		h.hub.BroadcastToQuiz(quizID, "response_submitted", services.ResponseSummaryView(response))
	}

	c.JSON(http.StatusCreated, services.ParticipantResultView(response))
}

func (h *PublicHandler) GetResult(c *gin.Context) {
	sessionID := c.Param("sessionID")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID required"})
		return
	}

	result, err := h.resultService.GetResultBySession(sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
