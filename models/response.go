package models

import (
	"time"

	"gorm.io/gorm"
)

// Response is one completed attempt of a quiz by a participant. Score fields
// are always computed server-side, never taken from input. The composite
// unique index on (quiz_id, participant_email, attempt_number) is what closes
// the race between concurrent submissions from the same participant.
type Response struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	QuizID           uint           `json:"quiz_id" gorm:"not null;uniqueIndex:idx_responses_attempt"`
	ParticipantName  string         `json:"participant_name" gorm:"not null"`
	ParticipantEmail string         `json:"participant_email" gorm:"not null;uniqueIndex:idx_responses_attempt"`
	SessionID        string         `json:"session_id" gorm:"uniqueIndex;not null"`
	AttemptNumber    int            `json:"attempt_number" gorm:"not null;uniqueIndex:idx_responses_attempt"`
	Score            int            `json:"score" gorm:"not null;default:0"`
	TotalPoints      int            `json:"total_points" gorm:"not null;default:0"`
	Percentage       float64        `json:"percentage" gorm:"not null;default:0"`
	IsPassed         bool           `json:"is_passed" gorm:"not null;default:false"`
	StartedAt        time.Time      `json:"started_at"`
	SubmittedAt      *time.Time     `json:"submitted_at"`
	IsCompleted      bool           `json:"is_completed" gorm:"not null;default:false"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Quiz    Quiz     `json:"quiz,omitempty"`
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:ResponseID;constraint:OnDelete:CASCADE"`
}

// CorrectAnswers counts the loaded answers marked correct.
func (r *Response) CorrectAnswers() int {
	count := 0
	for _, answer := range r.Answers {
		if answer.IsCorrect {
			count++
		}
	}
	return count
}
