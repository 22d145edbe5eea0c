package services

import (
	"context"
	"fmt"
	"strings"

	"quizdesk/models"

	"gorm.io/gorm"
)

type QuizService struct {
	db    *gorm.DB
	cache *QuizCache
}

func NewQuizService(db *gorm.DB, cache *QuizCache) *QuizService {
	return &QuizService{db: db, cache: cache}
}

type CreateQuizRequest struct {
	Title                  string                  `json:"title" binding:"required"`
	Description            string                  `json:"description"`
	TimeLimit              int                     `json:"time_limit" binding:"min=0,max=1440"`
	IsActive               *bool                   `json:"is_active"`
	PassingScore           int                     `json:"passing_score" binding:"min=0,max=100"`
	ShowResultsImmediately *bool                   `json:"show_results_immediately"`
	AllowRetakes           bool                    `json:"allow_retakes"`
	MaxAttempts            int                     `json:"max_attempts" binding:"omitempty,min=1"`
	Questions              []CreateQuestionRequest `json:"questions"`
}

type CreateQuestionRequest struct {
	Text        string                `json:"text" binding:"required"`
	Type        models.QuestionType   `json:"type" binding:"required"`
	Order       int                   `json:"order" binding:"required,min=1"`
	Points      int                   `json:"points" binding:"required,min=1,max=100"`
	IsRequired  *bool                 `json:"is_required"`
	Explanation string                `json:"explanation"`
	Options     []CreateOptionRequest `json:"options"`
}

type CreateOptionRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order" binding:"required"`
}

type UpdateQuizRequest struct {
	Title                  *string                 `json:"title"`
	Description            *string                 `json:"description"`
	TimeLimit              *int                    `json:"time_limit"`
	IsActive               *bool                   `json:"is_active"`
	PassingScore           *int                    `json:"passing_score"`
	ShowResultsImmediately *bool                   `json:"show_results_immediately"`
	AllowRetakes           *bool                   `json:"allow_retakes"`
	MaxAttempts            *int                    `json:"max_attempts"`
	Questions              []CreateQuestionRequest `json:"questions"`
}

// validateQuestion enforces the per-type option invariants: multiple choice
// carries 2-6 options with exactly one correct, true/false exactly 2 with
// exactly one correct, free text none.
func validateQuestion(field string, req *CreateQuestionRequest) *ValidationError {
	verr := &ValidationError{}
	if !req.Type.Valid() {
		verr.add(field+".type", fmt.Sprintf("unknown question type %q", req.Type))
		return verr
	}

	correctCount := 0
	for _, option := range req.Options {
		if option.IsCorrect {
			correctCount++
		}
	}

	switch req.Type {
	case models.MultipleChoice:
		if len(req.Options) < 2 {
			verr.add(field+".options", "multiple-choice questions must have at least 2 options")
		}
		if len(req.Options) > 6 {
			verr.add(field+".options", "multiple-choice questions can have at most 6 options")
		}
		if len(req.Options) >= 2 && len(req.Options) <= 6 && correctCount != 1 {
			verr.add(field+".options", "multiple-choice questions must have exactly one correct option")
		}
	case models.TrueFalse:
		if len(req.Options) != 2 {
			verr.add(field+".options", "true/false questions must have exactly 2 options")
		} else if correctCount != 1 {
			verr.add(field+".options", "true/false questions must have exactly one correct option")
		}
	case models.FreeText:
		if len(req.Options) > 0 {
			verr.add(field+".options", "free-text questions cannot have options")
		}
	}
	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func buildQuestion(quizID uint, req *CreateQuestionRequest) models.Question {
	question := models.Question{
		QuizID:      quizID,
		Text:        req.Text,
		Type:        req.Type,
		Order:       req.Order,
		Points:      req.Points,
		IsRequired:  true,
		Explanation: req.Explanation,
	}
	if req.IsRequired != nil {
		question.IsRequired = *req.IsRequired
	}
	return question
}

// createQuestion persists a question and its options inside tx. The invariant
// check must already have passed.
func createQuestion(tx *gorm.DB, quizID uint, req *CreateQuestionRequest) (*models.Question, error) {
	question := buildQuestion(quizID, req)
	if err := tx.Create(&question).Error; err != nil {
		return nil, err
	}
	for _, optReq := range req.Options {
		option := models.Option{
			QuestionID: question.ID,
			Text:       optReq.Text,
			IsCorrect:  optReq.IsCorrect,
			Order:      optReq.Order,
		}
		if err := tx.Create(&option).Error; err != nil {
			return nil, err
		}
	}
	return &question, nil
}

func (s *QuizService) CreateQuiz(ctx context.Context, userID uint, req *CreateQuizRequest) (*models.Quiz, error) {
	verr := &ValidationError{}
	if len(strings.TrimSpace(req.Title)) < 3 {
		verr.add("title", "quiz title must be at least 3 characters long")
	}
	for i := range req.Questions {
		if qerr := validateQuestion(fmt.Sprintf("questions[%d]", i), &req.Questions[i]); qerr != nil {
			verr.Fields = append(verr.Fields, qerr.Fields...)
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	quiz := models.Quiz{
		Title:                  strings.TrimSpace(req.Title),
		Description:            req.Description,
		CreatedByID:            userID,
		TimeLimit:              req.TimeLimit,
		IsActive:               true,
		PassingScore:           req.PassingScore,
		ShowResultsImmediately: true,
		AllowRetakes:           req.AllowRetakes,
		MaxAttempts:            1,
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}
	if req.ShowResultsImmediately != nil {
		quiz.ShowResultsImmediately = *req.ShowResultsImmediately
	}
	if req.MaxAttempts > 0 {
		quiz.MaxAttempts = req.MaxAttempts
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&quiz).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for i := range req.Questions {
		if _, err := createQuestion(tx, quiz.ID, &req.Questions[i]); err != nil {
			tx.Rollback()
			if isUniqueViolation(err) {
				return nil, &ValidationError{Fields: []FieldError{
					{Field: fmt.Sprintf("questions[%d].order", i), Message: "question order already used in this quiz"},
				}}
			}
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, quiz.ID)

	return s.GetQuizByID(quiz.ID, userID)
}

func (s *QuizService) GetUserQuizzes(userID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.Where("created_by_id = ?", userID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.\"order\"")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.\"order\"")
		}).
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	for i := range quizzes {
		s.countResponses(&quizzes[i])
	}
	return quizzes, nil
}

func (s *QuizService) countResponses(quiz *models.Quiz) {
	s.db.Model(&models.Response{}).
		Where("quiz_id = ? AND is_completed = ?", quiz.ID, true).
		Count(&quiz.ResponseCount)
}

func (s *QuizService) GetQuizByID(quizID uint, userID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.Where("id = ? AND created_by_id = ?", quizID, userID).
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
	s.countResponses(&quiz)
	return &quiz, nil
}

func (s *QuizService) UpdateQuiz(ctx context.Context, quizID uint, userID uint, req *UpdateQuizRequest) (*models.Quiz, error) {
	quiz, err := s.GetQuizByID(quizID, userID)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if req.Title != nil && len(strings.TrimSpace(*req.Title)) < 3 {
		verr.add("title", "quiz title must be at least 3 characters long")
	}
	if req.TimeLimit != nil && (*req.TimeLimit < 0 || *req.TimeLimit > 1440) {
		verr.add("time_limit", "time limit must be between 0 and 1440 minutes")
	}
	if req.PassingScore != nil && (*req.PassingScore < 0 || *req.PassingScore > 100) {
		verr.add("passing_score", "passing score must be between 0 and 100")
	}
	if req.MaxAttempts != nil && *req.MaxAttempts < 1 {
		verr.add("max_attempts", "max attempts must be at least 1")
	}
	for i := range req.Questions {
		if qerr := validateQuestion(fmt.Sprintf("questions[%d]", i), &req.Questions[i]); qerr != nil {
			verr.Fields = append(verr.Fields, qerr.Fields...)
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if req.Title != nil {
		quiz.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.TimeLimit != nil {
		quiz.TimeLimit = *req.TimeLimit
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.ShowResultsImmediately != nil {
		quiz.ShowResultsImmediately = *req.ShowResultsImmediately
	}
	if req.AllowRetakes != nil {
		quiz.AllowRetakes = *req.AllowRetakes
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Save(quiz).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// If questions are provided, replace all questions
	if req.Questions != nil {
		if err := deleteQuizQuestions(tx, quiz.ID); err != nil {
			tx.Rollback()
			return nil, err
		}
		for i := range req.Questions {
			if _, err := createQuestion(tx, quiz.ID, &req.Questions[i]); err != nil {
				tx.Rollback()
				if isUniqueViolation(err) {
					return nil, &ValidationError{Fields: []FieldError{
						{Field: fmt.Sprintf("questions[%d].order", i), Message: "question order already used in this quiz"},
					}}
				}
				return nil, err
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, quiz.ID)

	return s.GetQuizByID(quiz.ID, userID)
}

func (s *QuizService) DeleteQuiz(ctx context.Context, quizID uint, userID uint) error {
	if _, err := s.GetQuizByID(quizID, userID); err != nil {
		return err
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := deleteQuizQuestions(tx, quizID); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Delete(&models.Quiz{}, quizID).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	s.cache.Invalidate(ctx, quizID)
	return nil
}

// deleteQuizQuestions hard-deletes a quiz's questions with their options and
// recorded answers. Hard, so the (quiz, order) unique index does not trip
// over soft-deleted rows; answers go with the question so no response ever
// renders an answer whose question no longer exists. Stored response
// aggregates are historical and stay as scored.
func deleteQuizQuestions(tx *gorm.DB, quizID uint) error {
	var questionIDs []uint
	if err := tx.Model(&models.Question{}).Where("quiz_id = ?", quizID).Pluck("id", &questionIDs).Error; err != nil {
		return err
	}
	if len(questionIDs) == 0 {
		return nil
	}
	if err := tx.Unscoped().Where("question_id IN ?", questionIDs).Delete(&models.Answer{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("question_id IN ?", questionIDs).Delete(&models.Option{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where("quiz_id = ?", quizID).Delete(&models.Question{}).Error
}

func (s *QuizService) AddQuestion(ctx context.Context, quizID uint, userID uint, req *CreateQuestionRequest) (*models.Question, error) {
	quiz, err := s.GetQuizByID(quizID, userID)
	if err != nil {
		return nil, err
	}
	if verr := validateQuestion("question", req); verr != nil {
		return nil, verr
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	question, err := createQuestion(tx, quiz.ID, req)
	if err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return nil, &ValidationError{Fields: []FieldError{
				{Field: "question.order", Message: "question order already used in this quiz"},
			}}
		}
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, quiz.ID)
	return s.GetQuestionByID(question.ID, userID)
}

func (s *QuizService) GetQuestionByID(questionID uint, userID uint) (*models.Question, error) {
	var question models.Question
	err := s.db.Joins("JOIN quizzes ON quizzes.id = questions.quiz_id").
		Where("questions.id = ? AND quizzes.created_by_id = ? AND quizzes.deleted_at IS NULL", questionID, userID).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.\"order\"")
		}).
		First(&question).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return &question, nil
}

func (s *QuizService) ListQuestions(quizID uint, userID uint) ([]models.Question, error) {
	quiz, err := s.GetQuizByID(quizID, userID)
	if err != nil {
		return nil, err
	}
	return quiz.Questions, nil
}

// UpdateQuestion replaces a question's fields and options in one transaction.
func (s *QuizService) UpdateQuestion(ctx context.Context, questionID uint, userID uint, req *CreateQuestionRequest) (*models.Question, error) {
	question, err := s.GetQuestionByID(questionID, userID)
	if err != nil {
		return nil, err
	}
	if verr := validateQuestion("question", req); verr != nil {
		return nil, verr
	}

	question.Text = req.Text
	question.Type = req.Type
	question.Order = req.Order
	question.Points = req.Points
	question.Explanation = req.Explanation
	if req.IsRequired != nil {
		question.IsRequired = *req.IsRequired
	}
	question.Options = nil

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Save(question).Error; err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return nil, &ValidationError{Fields: []FieldError{
				{Field: "question.order", Message: "question order already used in this quiz"},
			}}
		}
		return nil, err
	}
	if err := tx.Unscoped().Where("question_id = ?", question.ID).Delete(&models.Option{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, optReq := range req.Options {
		option := models.Option{
			QuestionID: question.ID,
			Text:       optReq.Text,
			IsCorrect:  optReq.IsCorrect,
			Order:      optReq.Order,
		}
		if err := tx.Create(&option).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, question.QuizID)
	return s.GetQuestionByID(question.ID, userID)
}

func (s *QuizService) DeleteQuestion(ctx context.Context, questionID uint, userID uint) error {
	question, err := s.GetQuestionByID(questionID, userID)
	if err != nil {
		return err
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Answers cascade with the question, as with whole-quiz replacement
	if err := tx.Unscoped().Where("question_id = ?", question.ID).Delete(&models.Answer{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Unscoped().Where("question_id = ?", question.ID).Delete(&models.Option{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Unscoped().Delete(&models.Question{}, question.ID).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	s.cache.Invalidate(ctx, question.QuizID)
	return nil
}

// ListActiveQuizzes returns the public list of active quizzes, served from
// the cache when warm.
func (s *QuizService) ListActiveQuizzes(ctx context.Context) ([]PublicQuizSummary, error) {
	if views, ok := s.cache.GetList(ctx); ok {
		return views, nil
	}

	var quizzes []models.Quiz
	err := s.db.Where("is_active = ?", true).
		Preload("Questions").
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}

	views := make([]PublicQuizSummary, 0, len(quizzes))
	for i := range quizzes {
		views = append(views, PublicQuizSummaryView(&quizzes[i]))
	}
	s.cache.SetList(ctx, views)
	return views, nil
}

// GetActiveQuiz returns the public projection of one active quiz, questions
// and options included, correctness never.
func (s *QuizService) GetActiveQuiz(ctx context.Context, quizID uint) (*PublicQuiz, error) {
	if view, ok := s.cache.GetQuiz(ctx, quizID); ok {
		return view, nil
	}

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

	view := PublicQuizView(&quiz)
	s.cache.SetQuiz(ctx, view)
	return view, nil
}
