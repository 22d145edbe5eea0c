package services

import (
	"time"

	"quizdesk/models"
)

// Projections shape persisted rows for a given audience. The public quiz
// shapes never carry option correctness or explanations; the participant
// result shape hides answer detail unless the quiz opts in.

type PublicOption struct {
	ID    uint   `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type PublicQuestion struct {
	ID         uint                `json:"id"`
	Text       string              `json:"text"`
	Type       models.QuestionType `json:"type"`
	Order      int                 `json:"order"`
	Points     int                 `json:"points"`
	IsRequired bool                `json:"is_required"`
	Options    []PublicOption      `json:"options"`
}

type PublicQuiz struct {
	ID                     uint             `json:"id"`
	Title                  string           `json:"title"`
	Description            string           `json:"description"`
	TimeLimit              int              `json:"time_limit"`
	PassingScore           int              `json:"passing_score"`
	ShowResultsImmediately bool             `json:"show_results_immediately"`
	AllowRetakes           bool             `json:"allow_retakes"`
	MaxAttempts            int              `json:"max_attempts"`
	TotalQuestions         int              `json:"total_questions"`
	TotalPoints            int              `json:"total_points"`
	Questions              []PublicQuestion `json:"questions"`
}

type PublicQuizSummary struct {
	ID             uint   `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	TimeLimit      int    `json:"time_limit"`
	TotalQuestions int    `json:"total_questions"`
}

// PublicQuizView projects a quiz for a participant taking it. Correct-answer
// flags and explanations are stripped here and nowhere else relied upon.
func PublicQuizView(quiz *models.Quiz) *PublicQuiz {
	view := &PublicQuiz{
		ID:                     quiz.ID,
		Title:                  quiz.Title,
		Description:            quiz.Description,
		TimeLimit:              quiz.TimeLimit,
		PassingScore:           quiz.PassingScore,
		ShowResultsImmediately: quiz.ShowResultsImmediately,
		AllowRetakes:           quiz.AllowRetakes,
		MaxAttempts:            quiz.MaxAttempts,
		TotalQuestions:         quiz.TotalQuestions(),
		TotalPoints:            quiz.TotalPoints(),
		Questions:              make([]PublicQuestion, 0, len(quiz.Questions)),
	}
	for _, question := range quiz.Questions {
		pq := PublicQuestion{
			ID:         question.ID,
			Text:       question.Text,
			Type:       question.Type,
			Order:      question.Order,
			Points:     question.Points,
			IsRequired: question.IsRequired,
			Options:    make([]PublicOption, 0, len(question.Options)),
		}
		for _, option := range question.Options {
			pq.Options = append(pq.Options, PublicOption{
				ID:    option.ID,
				Text:  option.Text,
				Order: option.Order,
			})
		}
		view.Questions = append(view.Questions, pq)
	}
	return view
}

func PublicQuizSummaryView(quiz *models.Quiz) PublicQuizSummary {
	return PublicQuizSummary{
		ID:             quiz.ID,
		Title:          quiz.Title,
		Description:    quiz.Description,
		TimeLimit:      quiz.TimeLimit,
		TotalQuestions: quiz.TotalQuestions(),
	}
}

type AnswerView struct {
	ID                 uint                `json:"id"`
	QuestionText       string              `json:"question_text"`
	QuestionType       models.QuestionType `json:"question_type"`
	SelectedOptionText string              `json:"selected_option_text,omitempty"`
	TextAnswer         string              `json:"text_answer,omitempty"`
	CorrectOptionText  string              `json:"correct_option_text,omitempty"`
	Explanation        string              `json:"explanation,omitempty"`
	IsCorrect          bool                `json:"is_correct"`
	PointsEarned       int                 `json:"points_earned"`
}

// ResultView is the participant-facing result of a completed response.
// Answers are present only when the quiz shows results immediately.
type ResultView struct {
	QuizTitle       string       `json:"quiz_title"`
	ParticipantName string       `json:"participant_name"`
	SessionID       string       `json:"session_id"`
	Score           int          `json:"score"`
	TotalPoints     int          `json:"total_points"`
	Percentage      float64      `json:"percentage"`
	IsPassed        bool         `json:"is_passed"`
	SubmittedAt     *time.Time   `json:"submitted_at"`
	AttemptNumber   int          `json:"attempt_number"`
	CorrectAnswers  int          `json:"correct_answers_count"`
	TotalQuestions  int          `json:"total_questions_count"`
	Answers         []AnswerView `json:"answers"`
}

// ResponseSummary is the admin list row without answer detail.
type ResponseSummary struct {
	ID               uint       `json:"id"`
	QuizID           uint       `json:"quiz_id"`
	QuizTitle        string     `json:"quiz_title"`
	ParticipantName  string     `json:"participant_name"`
	ParticipantEmail string     `json:"participant_email"`
	Score            int        `json:"score"`
	TotalPoints      int        `json:"total_points"`
	Percentage       float64    `json:"percentage"`
	IsPassed         bool       `json:"is_passed"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	AttemptNumber    int        `json:"attempt_number"`
	CorrectAnswers   int        `json:"correct_answers_count"`
	TotalQuestions   int        `json:"total_questions_count"`
}

// ResponseDetail is the admin view of a response with full answer detail,
// including correct options and explanations. No redaction.
type ResponseDetail struct {
	ResponseSummary
	SessionID string       `json:"session_id"`
	StartedAt time.Time    `json:"started_at"`
	Answers   []AnswerView `json:"answers"`
}

func answerView(answer models.Answer) AnswerView {
	view := AnswerView{
		ID:           answer.ID,
		QuestionText: answer.Question.Text,
		QuestionType: answer.Question.Type,
		TextAnswer:   answer.TextAnswer,
		Explanation:  answer.Question.Explanation,
		IsCorrect:    answer.IsCorrect,
		PointsEarned: answer.PointsEarned,
	}
	if answer.SelectedOption != nil {
		view.SelectedOptionText = answer.SelectedOption.Text
	}
	if answer.Question.Type.IsChoice() {
		if correct := answer.Question.CorrectOption(); correct != nil {
			view.CorrectOptionText = correct.Text
		}
	}
	return view
}

func answerViews(answers []models.Answer) []AnswerView {
	views := make([]AnswerView, 0, len(answers))
	for _, answer := range answers {
		views = append(views, answerView(answer))
	}
	return views
}

// ParticipantResultView projects a scored response for its participant.
// Requires response.Quiz (with questions) and answers to be loaded.
func ParticipantResultView(response *models.Response) *ResultView {
	view := &ResultView{
		QuizTitle:       response.Quiz.Title,
		ParticipantName: response.ParticipantName,
		SessionID:       response.SessionID,
		Score:           response.Score,
		TotalPoints:     response.TotalPoints,
		Percentage:      response.Percentage,
		IsPassed:        response.IsPassed,
		SubmittedAt:     response.SubmittedAt,
		AttemptNumber:   response.AttemptNumber,
		CorrectAnswers:  response.CorrectAnswers(),
		TotalQuestions:  response.Quiz.TotalQuestions(),
		Answers:         []AnswerView{},
	}
	if response.Quiz.ShowResultsImmediately {
		view.Answers = answerViews(response.Answers)
	}
	return view
}

func ResponseSummaryView(response *models.Response) ResponseSummary {
	return ResponseSummary{
		ID:               response.ID,
		QuizID:           response.QuizID,
		QuizTitle:        response.Quiz.Title,
		ParticipantName:  response.ParticipantName,
		ParticipantEmail: response.ParticipantEmail,
		Score:            response.Score,
		TotalPoints:      response.TotalPoints,
		Percentage:       response.Percentage,
		IsPassed:         response.IsPassed,
		SubmittedAt:      response.SubmittedAt,
		AttemptNumber:    response.AttemptNumber,
		CorrectAnswers:   response.CorrectAnswers(),
		TotalQuestions:   response.Quiz.TotalQuestions(),
	}
}

// AdminResponseView projects a response for the quiz owner, answers included
// regardless of the quiz's show_results_immediately setting.
func AdminResponseView(response *models.Response) *ResponseDetail {
	return &ResponseDetail{
		ResponseSummary: ResponseSummaryView(response),
		SessionID:       response.SessionID,
		StartedAt:       response.StartedAt,
		Answers:         answerViews(response.Answers),
	}
}
