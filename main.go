package main

import (
	"log"

	"quizdesk/config"
	"quizdesk/handlers"
	"quizdesk/middleware"
	"quizdesk/models"
	"quizdesk/routes"
	"quizdesk/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Response{},
		&models.Answer{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret)
	quizCache := services.NewQuizCache(redisClient)
	quizService := services.NewQuizService(db, quizCache)
	submissionService := services.NewSubmissionService(db)
	resultService := services.NewResultService(db)

	// Initialize WebSocket hub for the admin submission feed
	hub := services.NewHub()
	go hub.Run()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	quizHandler := handlers.NewQuizHandler(quizService)
	publicHandler := handlers.NewPublicHandler(quizService, submissionService, resultService, hub)
	responseHandler := handlers.NewResponseHandler(resultService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, quizHandler, publicHandler, responseHandler, hub, authService, quizService, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
