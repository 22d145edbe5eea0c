package models

import (
	"time"

	"gorm.io/gorm"
)

// Answer is a participant's answer to one question within a response.
// IsCorrect and PointsEarned are derived when the answer is created (choice
// questions) or by manual grading (free text), never trusted from input.
type Answer struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	ResponseID       uint           `json:"response_id" gorm:"not null;uniqueIndex:idx_answers_response_question"`
	QuestionID       uint           `json:"question_id" gorm:"not null;uniqueIndex:idx_answers_response_question"`
	SelectedOptionID *uint          `json:"selected_option_id"`
	TextAnswer       string         `json:"text_answer"`
	IsCorrect        bool           `json:"is_correct" gorm:"not null;default:false"`
	PointsEarned     int            `json:"points_earned" gorm:"not null;default:0"`
	AnsweredAt       time.Time      `json:"answered_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Response       Response `json:"response,omitempty"`
	Question       Question `json:"question,omitempty"`
	SelectedOption *Option  `json:"selected_option,omitempty" gorm:"foreignKey:SelectedOptionID"`
}
