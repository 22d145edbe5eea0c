package models

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description"`
	CreatedByID uint   `json:"created_by_id" gorm:"not null"`
	// Time limit in minutes, 0 means unlimited. Advisory, not enforced server-side.
	// Defaults live in the quiz service, not in column tags: gorm drops
	// zero-valued fields on Create when a default tag is present, which
	// would turn is_active=false or passing_score=0 into the default.
	TimeLimit              int            `json:"time_limit" gorm:"not null"`
	IsActive               bool           `json:"is_active" gorm:"not null"`
	PassingScore           int            `json:"passing_score" gorm:"not null"` // percentage 0-100
	ShowResultsImmediately bool           `json:"show_results_immediately" gorm:"not null"`
	AllowRetakes           bool           `json:"allow_retakes" gorm:"not null"`
	MaxAttempts            int            `json:"max_attempts" gorm:"not null"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	DeletedAt              gorm.DeletedAt `json:"-" gorm:"index"`

	// ResponseCount is the number of completed responses, filled in on
	// owner-facing reads. Not a column.
	ResponseCount int64 `json:"total_responses" gorm:"-"`

	// Relationships
	CreatedBy User       `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
	Responses []Response `json:"responses,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
}

// TotalQuestions counts the loaded questions of the quiz.
func (q *Quiz) TotalQuestions() int {
	return len(q.Questions)
}

// TotalPoints sums the points of the loaded questions.
func (q *Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}
