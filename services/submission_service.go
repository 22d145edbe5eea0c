package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"quizdesk/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var validate = validator.New()

// SubmissionService runs the submit pipeline: validate the answer set against
// the quiz, authorize a new attempt, persist response and answers, and score
// them, all inside one serialized transaction.
type SubmissionService struct {
	db *gorm.DB
}

func NewSubmissionService(db *gorm.DB) *SubmissionService {
	return &SubmissionService{db: db}
}

type SubmitQuizRequest struct {
	ParticipantName  string             `json:"participant_name" binding:"required"`
	ParticipantEmail string             `json:"participant_email" binding:"required"`
	Answers          []AnswerSubmission `json:"answers" binding:"required"`
}

type AnswerSubmission struct {
	QuestionID       uint   `json:"question_id" binding:"required"`
	SelectedOptionID *uint  `json:"selected_option_id"`
	TextAnswer       string `json:"text_answer"`
}

// resolvedAnswer is a submission entry with its question and option looked up.
type resolvedAnswer struct {
	question *models.Question
	option   *models.Option
	text     string
}

// validateSubmission checks the answer set against the quiz's question set
// and returns the resolved answers, or every field-level failure at once.
func validateSubmission(quiz *models.Quiz, req *SubmitQuizRequest) ([]resolvedAnswer, error) {
	verr := &ValidationError{}

	if len(strings.TrimSpace(req.ParticipantName)) < 2 {
		verr.add("participant_name", "participant name must be at least 2 characters long")
	}
	if err := validate.Var(strings.TrimSpace(req.ParticipantEmail), "required,email"); err != nil {
		verr.add("participant_email", "a valid email address is required")
	}
	if len(req.Answers) == 0 {
		verr.add("answers", "at least one answer is required")
		return nil, verr
	}

	questions := make(map[uint]*models.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		questions[quiz.Questions[i].ID] = &quiz.Questions[i]
	}

	resolved := make([]resolvedAnswer, 0, len(req.Answers))
	seen := make(map[uint]bool, len(req.Answers))
	for i, submission := range req.Answers {
		field := fmt.Sprintf("answers[%d]", i)

		question, ok := questions[submission.QuestionID]
		if !ok {
			verr.add(field+".question_id", fmt.Sprintf("question %d not found in this quiz", submission.QuestionID))
			continue
		}
		if seen[submission.QuestionID] {
			verr.add(field+".question_id", fmt.Sprintf("duplicate answer for question %d", submission.QuestionID))
			continue
		}
		seen[submission.QuestionID] = true

		answer := resolvedAnswer{question: question}
		switch {
		case question.Type.IsChoice():
			if submission.SelectedOptionID == nil {
				if question.IsRequired {
					verr.add(field+".selected_option_id", fmt.Sprintf("option selection is required for question %d", question.ID))
					continue
				}
			} else {
				var option *models.Option
				for j := range question.Options {
					if question.Options[j].ID == *submission.SelectedOptionID {
						option = &question.Options[j]
						break
					}
				}
				if option == nil {
					verr.add(field+".selected_option_id", fmt.Sprintf("invalid option for question %d", question.ID))
					continue
				}
				answer.option = option
			}
		case question.Type == models.FreeText:
			answer.text = strings.TrimSpace(submission.TextAnswer)
			if question.IsRequired && answer.text == "" {
				verr.add(field+".text_answer", fmt.Sprintf("text answer is required for question %d", question.ID))
				continue
			}
		}
		resolved = append(resolved, answer)
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// scoreAnswer derives correctness and points for an answer at creation time.
// Choice questions score off the selected option's correctness; free-text
// answers default to incorrect until graded manually.
func scoreAnswer(question *models.Question, option *models.Option) (bool, int) {
	if question.Type.IsChoice() && option != nil && option.IsCorrect {
		return true, question.Points
	}
	return false, 0
}

// aggregate sums earned points over correct answers and computes the
// percentage, guarding the zero-total-points case.
func aggregate(totalPoints int, answers []models.Answer) (score int, percentage float64) {
	for _, answer := range answers {
		if answer.IsCorrect {
			score += answer.PointsEarned
		}
	}
	if totalPoints > 0 {
		percentage = float64(score) / float64(totalPoints) * 100
	}
	return score, percentage
}

func (s *SubmissionService) loadActiveQuiz(quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.Where("id = ? AND is_active = ?", quizID, true).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.\"order\"")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.\"order\"")
		}).
		First(&quiz).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// Submit validates, authorizes the attempt, persists response and answers and
// scores them. The attempt count, the response insert and the answer inserts
// share one serializable transaction; the composite unique index on
// (quiz_id, participant_email, attempt_number) rejects the loser of a race,
// which surfaces as ErrConcurrencyConflict. Nothing is persisted on failure.
func (s *SubmissionService) Submit(quizID uint, req *SubmitQuizRequest) (*models.Response, error) {
	quiz, err := s.loadActiveQuiz(quizID)
	if err != nil {
		return nil, err
	}

	resolved, err := validateSubmission(quiz, req)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.ParticipantName)
	email := strings.ToLower(strings.TrimSpace(req.ParticipantEmail))

	tx := s.db.Begin(&sql.TxOptions{Isolation: sql.LevelSerializable})
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var attempts int64
	if err := tx.Model(&models.Response{}).
		Where("quiz_id = ? AND participant_email = ?", quiz.ID, email).
		Count(&attempts).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if !quiz.AllowRetakes && attempts > 0 {
		tx.Rollback()
		return nil, ErrRetakeNotAllowed
	}
	if attempts >= int64(quiz.MaxAttempts) {
		tx.Rollback()
		return nil, ErrAttemptLimitExceeded
	}

	now := time.Now().UTC()
	response := models.Response{
		QuizID:           quiz.ID,
		ParticipantName:  name,
		ParticipantEmail: email,
		SessionID:        uuid.NewString(),
		AttemptNumber:    int(attempts) + 1,
		StartedAt:        now,
		SubmittedAt:      &now,
		IsCompleted:      true,
	}
	if err := tx.Create(&response).Error; err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}

	answers := make([]models.Answer, 0, len(resolved))
	for _, ra := range resolved {
		correct, points := scoreAnswer(ra.question, ra.option)
		answer := models.Answer{
			ResponseID:   response.ID,
			QuestionID:   ra.question.ID,
			TextAnswer:   ra.text,
			IsCorrect:    correct,
			PointsEarned: points,
			AnsweredAt:   now,
		}
		if ra.option != nil {
			optionID := ra.option.ID
			answer.SelectedOptionID = &optionID
		}
		if err := tx.Create(&answer).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		answers = append(answers, answer)
	}

	totalPoints := quiz.TotalPoints()
	score, percentage := aggregate(totalPoints, answers)
	updates := map[string]interface{}{
		"score":        score,
		"total_points": totalPoints,
		"percentage":   percentage,
		"is_passed":    percentage >= float64(quiz.PassingScore),
	}
	if err := tx.Model(&response).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		if isUniqueViolation(err) || isSerializationFailure(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}

	return s.getResponse(response.ID)
}

// isSerializationFailure matches postgres SQLSTATE 40001, raised when the
// serializable transaction lost a race.
func isSerializationFailure(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SQLSTATE 40001")
}

func (s *SubmissionService) getResponse(responseID uint) (*models.Response, error) {
	var response models.Response
	err := s.db.
		Preload("Quiz.Questions").
		Preload("Answers.Question.Options").
		Preload("Answers.SelectedOption").
		First(&response, responseID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrResponseNotFound
		}
		return nil, err
	}
	return &response, nil
}

// rescore recomputes a response's aggregates from its stored answers inside
// tx. Per-answer correctness is not re-derived, so repeated calls yield the
// same result.
func rescore(tx *gorm.DB, responseID uint) error {
	var response models.Response
	if err := tx.Preload("Quiz.Questions").Preload("Answers").First(&response, responseID).Error; err != nil {
		return err
	}
	totalPoints := response.Quiz.TotalPoints()
	score, percentage := aggregate(totalPoints, response.Answers)
	return tx.Model(&response).Updates(map[string]interface{}{
		"score":        score,
		"total_points": totalPoints,
		"percentage":   percentage,
		"is_passed":    percentage >= float64(response.Quiz.PassingScore),
	}).Error
}
