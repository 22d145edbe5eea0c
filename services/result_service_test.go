package services

import (
	"context"
	"testing"

	"quizdesk/models"

	"gorm.io/gorm"
)

type resultFixture struct {
	db         *gorm.DB
	submission *SubmissionService
	results    *ResultService
	owner      *models.User
	quiz       *models.Quiz
}

// newResultFixture seeds a quiz with one MCQ (10 points, first option correct)
// and one required free-text question (10 points), then submits one response
// answering the MCQ correctly.
func newResultFixture(t *testing.T, mutate func(*CreateQuizRequest)) (*resultFixture, *models.Response) {
	t.Helper()

	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com")

	req := &CreateQuizRequest{
		Title:        "Review Quiz",
		PassingScore: 60,
		Questions: []CreateQuestionRequest{
			mcqQuestion(1, 10, 3, 0),
			textQuestion(2, 10, true),
		},
	}
	if mutate != nil {
		mutate(req)
	}
	quiz, err := NewQuizService(db, nil).CreateQuiz(context.Background(), owner.ID, req)
	if err != nil {
		t.Fatalf("failed to seed quiz: %v", err)
	}

	f := &resultFixture{
		db:         db,
		submission: NewSubmissionService(db),
		results:    NewResultService(db),
		owner:      owner,
		quiz:       quiz,
	}

	correctID := quiz.Questions[0].Options[0].ID
	response, err := f.submission.Submit(quiz.ID, &SubmitQuizRequest{
		ParticipantName:  "Alice",
		ParticipantEmail: "alice@example.com",
		Answers: []AnswerSubmission{
			{QuestionID: quiz.Questions[0].ID, SelectedOptionID: &correctID},
			{QuestionID: quiz.Questions[1].ID, TextAnswer: "forty-two"},
		},
	})
	if err != nil {
		t.Fatalf("failed to seed response: %v", err)
	}
	return f, response
}

func TestGetResultBySession(t *testing.T) {
	f, response := newResultFixture(t, nil)

	view, err := f.results.GetResultBySession(response.SessionID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if view.QuizTitle != "Review Quiz" || view.ParticipantName != "Alice" {
		t.Fatalf("unexpected result header: %+v", view)
	}
	if view.Score != 10 || view.TotalPoints != 20 || view.Percentage != 50 || view.IsPassed {
		t.Fatalf("unexpected aggregates: %+v", view)
	}
	if view.CorrectAnswers != 1 || view.TotalQuestions != 2 {
		t.Fatalf("expected 1/2 correct, got %d/%d", view.CorrectAnswers, view.TotalQuestions)
	}
	if len(view.Answers) != 2 {
		t.Fatalf("expected answer detail with results shown immediately, got %d answers", len(view.Answers))
	}
	var mcq *AnswerView
	for i := range view.Answers {
		if view.Answers[i].QuestionType == models.MultipleChoice {
			mcq = &view.Answers[i]
		}
	}
	if mcq == nil || mcq.SelectedOptionText == "" || mcq.CorrectOptionText == "" || !mcq.IsCorrect {
		t.Fatalf("unexpected choice answer views: %+v", view.Answers)
	}
}

func TestGetResultBySessionNotFound(t *testing.T) {
	f, _ := newResultFixture(t, nil)

	if _, err := f.results.GetResultBySession("no-such-session"); err != ErrResponseNotFound {
		t.Fatalf("expected ErrResponseNotFound, got %v", err)
	}
}

func TestResultHiddenUntilReviewed(t *testing.T) {
	f, response := newResultFixture(t, func(req *CreateQuizRequest) {
		req.ShowResultsImmediately = boolPtr(false)
	})

	view, err := f.results.GetResultBySession(response.SessionID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if len(view.Answers) != 0 {
		t.Fatalf("expected answer detail withheld, got %d answers", len(view.Answers))
	}
	// Aggregates stay visible either way
	if view.Score != 10 || view.TotalPoints != 20 {
		t.Fatalf("expected aggregates in hidden-results view, got %+v", view)
	}
}

func TestListResponsesScopedToOwner(t *testing.T) {
	f, response := newResultFixture(t, nil)

	summaries, err := f.results.ListResponses(f.owner.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != response.ID {
		t.Fatalf("expected the seeded response, got %+v", summaries)
	}
	if summaries[0].ParticipantEmail != "alice@example.com" || summaries[0].QuizTitle != "Review Quiz" {
		t.Fatalf("unexpected summary row: %+v", summaries[0])
	}

	other := seedUser(t, f.db, "other@example.com")
	summaries, err = f.results.ListResponses(other.ID)
	if err != nil {
		t.Fatalf("list for other owner failed: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected no responses for a different owner, got %d", len(summaries))
	}
}

func TestGetResponseScopedToOwner(t *testing.T) {
	f, response := newResultFixture(t, nil)

	detail, err := f.results.GetResponse(response.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if detail.SessionID != response.SessionID || len(detail.Answers) != 2 {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	other := seedUser(t, f.db, "other@example.com")
	if _, err := f.results.GetResponse(response.ID, other.ID); err != ErrResponseNotFound {
		t.Fatalf("expected ErrResponseNotFound for a different owner, got %v", err)
	}
}

func TestGradeFreeTextAnswer(t *testing.T) {
	f, response := newResultFixture(t, nil)

	var textAnswer models.Answer
	err := f.db.Joins("JOIN questions ON questions.id = answers.question_id").
		Where("answers.response_id = ? AND questions.type = ?", response.ID, models.FreeText).
		First(&textAnswer).Error
	if err != nil {
		t.Fatalf("failed to load free-text answer: %v", err)
	}

	detail, err := f.results.GradeAnswer(textAnswer.ID, f.owner.ID, &GradeAnswerRequest{IsCorrect: true})
	if err != nil {
		t.Fatalf("grading failed: %v", err)
	}
	if detail.Score != 20 || detail.Percentage != 100 || !detail.IsPassed {
		t.Fatalf("expected regraded aggregates 20/100%%/passed, got %+v", detail.ResponseSummary)
	}

	// Revoking the grade re-aggregates back down
	detail, err = f.results.GradeAnswer(textAnswer.ID, f.owner.ID, &GradeAnswerRequest{IsCorrect: false})
	if err != nil {
		t.Fatalf("revoking grade failed: %v", err)
	}
	if detail.Score != 10 || detail.IsPassed {
		t.Fatalf("expected aggregates back to 10/failed, got %+v", detail.ResponseSummary)
	}
}

func TestGradeRejectsChoiceAnswer(t *testing.T) {
	f, response := newResultFixture(t, nil)

	var choiceAnswer models.Answer
	err := f.db.Joins("JOIN questions ON questions.id = answers.question_id").
		Where("answers.response_id = ? AND questions.type = ?", response.ID, models.MultipleChoice).
		First(&choiceAnswer).Error
	if err != nil {
		t.Fatalf("failed to load choice answer: %v", err)
	}

	_, err = f.results.GradeAnswer(choiceAnswer.ID, f.owner.ID, &GradeAnswerRequest{IsCorrect: false})
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected validation error for choice grading, got %v", err)
	}
}

func TestGradeAnswerScopedToOwner(t *testing.T) {
	f, response := newResultFixture(t, nil)

	var textAnswer models.Answer
	if err := f.db.Where("response_id = ?", response.ID).First(&textAnswer).Error; err != nil {
		t.Fatalf("failed to load answer: %v", err)
	}

	other := seedUser(t, f.db, "other@example.com")
	if _, err := f.results.GradeAnswer(textAnswer.ID, other.ID, &GradeAnswerRequest{IsCorrect: true}); err != ErrAnswerNotFound {
		t.Fatalf("expected ErrAnswerNotFound for a different owner, got %v", err)
	}
}

// Deleting a question removes its recorded answers with it, so no view ever
// renders an answer against a question that no longer exists. The response's
// stored aggregates are history and stay as scored.
func TestDeleteQuestionRemovesItsAnswers(t *testing.T) {
	f, response := newResultFixture(t, nil)

	quizService := NewQuizService(f.db, nil)
	mcqID := f.quiz.Questions[0].ID
	if err := quizService.DeleteQuestion(context.Background(), mcqID, f.owner.ID); err != nil {
		t.Fatalf("delete question failed: %v", err)
	}

	detail, err := f.results.GetResponse(response.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if len(detail.Answers) != 1 {
		t.Fatalf("expected only the surviving answer, got %d", len(detail.Answers))
	}
	if detail.Answers[0].QuestionType != models.FreeText || detail.Answers[0].QuestionText == "" {
		t.Fatalf("surviving answer lost its question detail: %+v", detail.Answers[0])
	}
	if detail.Score != response.Score {
		t.Fatalf("stored aggregates changed on question delete: %d vs %d", detail.Score, response.Score)
	}

	view, err := f.results.GetResultBySession(response.SessionID)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if len(view.Answers) != 1 {
		t.Fatalf("expected participant view pruned too, got %d answers", len(view.Answers))
	}
}
