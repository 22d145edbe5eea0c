package routes

import (
	"log"
	"net/http"
	"strconv"

	"quizdesk/handlers"
	"quizdesk/middleware"
	"quizdesk/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	quizHandler *handlers.QuizHandler,
	publicHandler *handlers.PublicHandler,
	responseHandler *handlers.ResponseHandler,
	hub *services.Hub,
	authService *services.AuthService,
	quizService *services.QuizService,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Participant-facing routes (no auth)
		public := api.Group("/public")
		{
			public.GET("/quizzes", publicHandler.ListQuizzes)
			public.GET("/quizzes/:id", publicHandler.GetQuiz)
			public.POST("/quizzes/:id/submit", publicHandler.SubmitQuiz)
			public.GET("/results/:sessionID", publicHandler.GetResult)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			// User profile
			protected.GET("/auth/profile", authHandler.GetProfile)

			// Quiz authoring routes
			quizzes := protected.Group("/quizzes")
			{
				quizzes.GET("", quizHandler.GetUserQuizzes)
				quizzes.POST("", quizHandler.CreateQuiz)
				quizzes.GET("/:id", quizHandler.GetQuizByID)
				quizzes.PUT("/:id", quizHandler.UpdateQuiz)
				quizzes.DELETE("/:id", quizHandler.DeleteQuiz)
				quizzes.GET("/:id/questions", quizHandler.ListQuestions)
				quizzes.POST("/:id/questions", quizHandler.AddQuestion)
			}

			questions := protected.Group("/questions")
			{
				questions.GET("/:id", quizHandler.GetQuestion)
				questions.PUT("/:id", quizHandler.UpdateQuestion)
				questions.DELETE("/:id", quizHandler.DeleteQuestion)
			}

			// Response review routes
			responses := protected.Group("/responses")
			{
				responses.GET("", responseHandler.ListResponses)
				responses.GET("/:id", responseHandler.GetResponse)
			}

			protected.PATCH("/answers/:id/grade", responseHandler.GradeAnswer)
		}
	}

	// WebSocket endpoint streaming incoming submissions to the quiz owner.
	// Browsers cannot set headers on websocket requests, so the token rides
	// in a query parameter.
	router.GET("/ws/quizzes/:id/responses", func(c *gin.Context) {
		quizID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quiz ID"})
			return
		}

		userID, err := authService.ParseToken(c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// Only the quiz owner may watch its submissions
		if _, err := quizService.GetQuizByID(uint(quizID), userID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quiz not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for quiz %d, user %d: %v", quizID, userID, err)
			return
		}

		hub.RegisterClient(conn, uint(quizID), userID)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
