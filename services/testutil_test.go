package services

import (
	"fmt"
	"testing"

	"quizdesk/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with the full schema. The
// shared cache keeps the database alive across gorm's pooled connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Response{},
		&models.Answer{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := models.User{Name: "Admin", Email: email, Password: "hashed"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return &user
}

func boolPtr(b bool) *bool { return &b }

// mcqQuestion builds a valid multiple-choice question request where the
// option at correctIndex is the right answer.
func mcqQuestion(order, points, optionCount, correctIndex int) CreateQuestionRequest {
	options := make([]CreateOptionRequest, 0, optionCount)
	for i := 0; i < optionCount; i++ {
		options = append(options, CreateOptionRequest{
			Text:      fmt.Sprintf("Option %d", i+1),
			IsCorrect: i == correctIndex,
			Order:     i + 1,
		})
	}
	return CreateQuestionRequest{
		Text:    fmt.Sprintf("Question %d", order),
		Type:    models.MultipleChoice,
		Order:   order,
		Points:  points,
		Options: options,
	}
}

func textQuestion(order, points int, required bool) CreateQuestionRequest {
	return CreateQuestionRequest{
		Text:       fmt.Sprintf("Question %d", order),
		Type:       models.FreeText,
		Order:      order,
		Points:     points,
		IsRequired: boolPtr(required),
	}
}
