package handlers

import (
	"net/http"
	"strconv"

	"quizdesk/services"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	quizService *services.QuizService
}

func NewQuizHandler(quizService *services.QuizService) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
	}
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}
	return uint(id), true
}

func currentUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	return userID.(uint), true
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), userID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) GetUserQuizzes(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	quizzes, err := h.quizService.GetUserQuizzes(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, quizzes)
}

func (h *QuizHandler) GetQuizByID(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	quiz, err := h.quizService.GetQuizByID(quizID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.UpdateQuiz(c.Request.Context(), quizID, userID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.quizService.DeleteQuiz(c.Request.Context(), quizID, userID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quiz deleted successfully"})
}

func (h *QuizHandler) ListQuestions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	questions, err := h.quizService.ListQuestions(quizID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

func (h *QuizHandler) AddQuestion(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.quizService.AddQuestion(c.Request.Context(), quizID, userID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

func (h *QuizHandler) GetQuestion(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	question, err := h.quizService.GetQuestionByID(questionID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

func (h *QuizHandler) UpdateQuestion(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.quizService.UpdateQuestion(c.Request.Context(), questionID, userID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

func (h *QuizHandler) DeleteQuestion(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.quizService.DeleteQuestion(c.Request.Context(), questionID, userID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}
