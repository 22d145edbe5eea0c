package services

import (
	"quizdesk/models"

	"gorm.io/gorm"
)

// ResultService serves scored responses: public result lookup by session
// identifier and owner-scoped admin review, plus manual grading of free-text
// answers.
type ResultService struct {
	db *gorm.DB
}

func NewResultService(db *gorm.DB) *ResultService {
	return &ResultService{db: db}
}

// GetResultBySession returns the participant projection of a completed
// response. The session identifier is the only public lookup key; numeric
// ids are never exposed to participants.
func (s *ResultService) GetResultBySession(sessionID string) (*ResultView, error) {
	var response models.Response
	err := s.db.Where("session_id = ? AND is_completed = ?", sessionID, true).
		Preload("Quiz.Questions").
		Preload("Answers.Question.Options").
		Preload("Answers.SelectedOption").
		First(&response).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrResponseNotFound
		}
		return nil, err
	}
	return ParticipantResultView(&response), nil
}

// ListResponses lists completed responses across every quiz owned by userID,
// newest first, without answer detail.
func (s *ResultService) ListResponses(userID uint) ([]ResponseSummary, error) {
	var responses []models.Response
	err := s.db.Joins("JOIN quizzes ON quizzes.id = responses.quiz_id").
		Where("responses.is_completed = ? AND quizzes.created_by_id = ? AND quizzes.deleted_at IS NULL", true, userID).
		Preload("Quiz.Questions").
		Preload("Answers").
		Order("responses.submitted_at DESC").
		Find(&responses).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]ResponseSummary, 0, len(responses))
	for i := range responses {
		summaries = append(summaries, ResponseSummaryView(&responses[i]))
	}
	return summaries, nil
}

// GetResponse returns the full admin projection of one response owned by
// userID.
func (s *ResultService) GetResponse(responseID uint, userID uint) (*ResponseDetail, error) {
	response, err := s.loadOwnedResponse(responseID, userID)
	if err != nil {
		return nil, err
	}
	return AdminResponseView(response), nil
}

func (s *ResultService) loadOwnedResponse(responseID uint, userID uint) (*models.Response, error) {
	var response models.Response
	err := s.db.Joins("JOIN quizzes ON quizzes.id = responses.quiz_id").
		Where("responses.id = ? AND responses.is_completed = ? AND quizzes.created_by_id = ? AND quizzes.deleted_at IS NULL",
			responseID, true, userID).
		Preload("Quiz.Questions").
		Preload("Answers.Question.Options").
		Preload("Answers.SelectedOption").
		First(&response).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrResponseNotFound
		}
		return nil, err
	}
	return &response, nil
}

type GradeAnswerRequest struct {
	IsCorrect bool `json:"is_correct"`
}

// GradeAnswer marks a free-text answer correct or incorrect and re-aggregates
// the owning response. Choice answers are fixed at submission time and cannot
// be regraded.
func (s *ResultService) GradeAnswer(answerID uint, userID uint, req *GradeAnswerRequest) (*ResponseDetail, error) {
	var answer models.Answer
	err := s.db.Joins("JOIN responses ON responses.id = answers.response_id").
		Joins("JOIN quizzes ON quizzes.id = responses.quiz_id").
		Where("answers.id = ? AND quizzes.created_by_id = ? AND quizzes.deleted_at IS NULL", answerID, userID).
		Preload("Question").
		First(&answer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAnswerNotFound
		}
		return nil, err
	}

	if answer.Question.Type != models.FreeText {
		return nil, &ValidationError{Fields: []FieldError{
			{Field: "answer_id", Message: "only free-text answers can be graded manually"},
		}}
	}

	points := 0
	if req.IsCorrect {
		points = answer.Question.Points
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	err = tx.Model(&answer).Updates(map[string]interface{}{
		"is_correct":    req.IsCorrect,
		"points_earned": points,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := rescore(tx, answer.ResponseID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return s.GetResponse(answer.ResponseID, userID)
}
