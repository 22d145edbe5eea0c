package models

import (
	"time"

	"gorm.io/gorm"
)

// QuestionType is the tagged kind of a question. Choice types carry options,
// text questions never do.
type QuestionType string

const (
	MultipleChoice QuestionType = "MCQ"
	TrueFalse      QuestionType = "TRUE_FALSE"
	FreeText       QuestionType = "TEXT"
)

// IsChoice reports whether the type is answered by selecting an option.
func (t QuestionType) IsChoice() bool {
	return t == MultipleChoice || t == TrueFalse
}

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	return t == MultipleChoice || t == TrueFalse || t == FreeText
}

type Question struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	QuizID      uint           `json:"quiz_id" gorm:"not null;uniqueIndex:idx_questions_quiz_order"`
	Text        string         `json:"text" gorm:"not null"`
	Type        QuestionType   `json:"type" gorm:"not null"`
	Order       int            `json:"order" gorm:"not null;uniqueIndex:idx_questions_quiz_order"`
	// No column defaults here: gorm drops zero-valued fields on Create when
	// a default tag is present, which would turn is_required=false into true.
	Points     int  `json:"points" gorm:"not null"` // 1-100
	IsRequired bool `json:"is_required" gorm:"not null"`
	Explanation string         `json:"explanation"` // shown after answering, optional
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Quiz    Quiz     `json:"quiz,omitempty"`
	Options []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

// CorrectOption returns the option marked correct, or nil for free-text
// questions and questions whose options are not loaded.
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}
