package services

import (
	"context"
	"testing"

	"quizdesk/models"

	"gorm.io/gorm"
)

type submissionFixture struct {
	db      *gorm.DB
	service *SubmissionService
	quiz    *models.Quiz
}

// newSubmissionFixture seeds a quiz with one MCQ question worth 10 points
// (first option correct) and a passing score of 50.
func newSubmissionFixture(t *testing.T, mutate func(*CreateQuizRequest)) *submissionFixture {
	t.Helper()

	db := newTestDB(t)
	admin := seedUser(t, db, "admin@example.com")
	quizService := NewQuizService(db, nil)

	req := &CreateQuizRequest{
		Title:        "Scored Quiz",
		PassingScore: 50,
		Questions:    []CreateQuestionRequest{mcqQuestion(1, 10, 3, 0)},
	}
	if mutate != nil {
		mutate(req)
	}

	quiz, err := quizService.CreateQuiz(context.Background(), admin.ID, req)
	if err != nil {
		t.Fatalf("failed to seed quiz: %v", err)
	}
	return &submissionFixture{
		db:      db,
		service: NewSubmissionService(db),
		quiz:    quiz,
	}
}

func (f *submissionFixture) submitOption(t *testing.T, email string, optionIndex int) (*models.Response, error) {
	t.Helper()

	question := f.quiz.Questions[0]
	optionID := question.Options[optionIndex].ID
	return f.service.Submit(f.quiz.ID, &SubmitQuizRequest{
		ParticipantName:  "Alice",
		ParticipantEmail: email,
		Answers: []AnswerSubmission{
			{QuestionID: question.ID, SelectedOptionID: &optionID},
		},
	})
}

func TestSubmitCorrectAnswerPasses(t *testing.T) {
	f := newSubmissionFixture(t, nil)

	response, err := f.submitOption(t, "alice@example.com", 0)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if response.Score != 10 || response.TotalPoints != 10 {
		t.Fatalf("expected score 10/10, got %d/%d", response.Score, response.TotalPoints)
	}
	if response.Percentage != 100 {
		t.Fatalf("expected 100%%, got %v", response.Percentage)
	}
	if !response.IsPassed {
		t.Fatalf("expected response to pass")
	}
	if response.AttemptNumber != 1 {
		t.Fatalf("expected attempt 1, got %d", response.AttemptNumber)
	}
	if response.SessionID == "" {
		t.Fatalf("expected a session identifier")
	}
	if !response.IsCompleted || response.SubmittedAt == nil {
		t.Fatalf("expected a completed response")
	}
}

func TestSubmitWrongAnswerFails(t *testing.T) {
	f := newSubmissionFixture(t, nil)

	response, err := f.submitOption(t, "alice@example.com", 1)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if response.Score != 0 || response.Percentage != 0 || response.IsPassed {
		t.Fatalf("expected failing zero score, got %d (%v%%, passed=%v)",
			response.Score, response.Percentage, response.IsPassed)
	}
	if len(response.Answers) != 1 || response.Answers[0].IsCorrect {
		t.Fatalf("expected one incorrect answer, got %+v", response.Answers)
	}
}

func TestSubmitValidationFailures(t *testing.T) {
	f := newSubmissionFixture(t, func(req *CreateQuizRequest) {
		req.Questions = append(req.Questions, textQuestion(2, 5, true))
	})
	question := f.quiz.Questions[0]
	textQ := f.quiz.Questions[1]
	correctID := question.Options[0].ID
	foreignID := correctID + 1000

	cases := []struct {
		name  string
		req   SubmitQuizRequest
		field string
	}{
		{
			"short name",
			SubmitQuizRequest{ParticipantName: " a ", ParticipantEmail: "a@example.com", Answers: []AnswerSubmission{{QuestionID: question.ID, SelectedOptionID: &correctID}}},
			"participant_name",
		},
		{
			"bad email",
			SubmitQuizRequest{ParticipantName: "Alice", ParticipantEmail: "not-an-email", Answers: []AnswerSubmission{{QuestionID: question.ID, SelectedOptionID: &correctID}}},
			"participant_email",
		},
		{
			"no answers",
			SubmitQuizRequest{ParticipantName: "Alice", ParticipantEmail: "a@example.com"},
			"answers",
		},
		{
			"unknown question",
			SubmitQuizRequest{ParticipantName: "Alice", ParticipantEmail: "a@example.com", Answers: []AnswerSubmission{{QuestionID: 9999, SelectedOptionID: &correctID}}},
			"answers[0].question_id",
		},
		{
			"duplicate question",
			SubmitQuizRequest{ParticipantName: "Alice", ParticipantEmail: "a@example.com", Answers: []AnswerSubmission{
				{QuestionID: question.ID, SelectedOptionID: &correctID},
				{QuestionID: question.ID, SelectedOptionID: &correctID},
			}},
			"answers[1].question_id",
		},
		{
			"option from another question",
			SubmitQuizRequest{ParticipantName: "Alice", ParticipantEmail: "a@example.com", Answers: []AnswerSubmission{{QuestionID: question.ID, SelectedOptionID: &foreignID}}},
			"answers[0].selected_option_id",
		},
		{
			"required choice missing",
			SubmitQuizRequest{ParticipantName: "Alice", ParticipantEmail: "a@example.com", Answers: []AnswerSubmission{{QuestionID: question.ID}}},
			"answers[0].selected_option_id",
		},
		{
			"required text blank",
			SubmitQuizRequest{ParticipantName: "Alice", ParticipantEmail: "a@example.com", Answers: []AnswerSubmission{
				{QuestionID: question.ID, SelectedOptionID: &correctID},
				{QuestionID: textQ.ID, TextAnswer: "   "},
			}},
			"answers[1].text_answer",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Submit(f.quiz.ID, &tc.req)
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			found := false
			for _, fe := range verr.Fields {
				if fe.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected failure on field %q, got %+v", tc.field, verr.Fields)
			}

			// No partial rows on failure
			var responses int64
			f.db.Model(&models.Response{}).Count(&responses)
			if responses != 0 {
				t.Fatalf("validation failure persisted %d responses", responses)
			}
		})
	}
}

func TestSubmitUnknownOrInactiveQuiz(t *testing.T) {
	f := newSubmissionFixture(t, nil)

	if _, err := f.service.Submit(9999, &SubmitQuizRequest{}); err != ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound for unknown quiz, got %v", err)
	}

	if err := f.db.Model(&models.Quiz{}).Where("id = ?", f.quiz.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate quiz: %v", err)
	}
	if _, err := f.submitOption(t, "alice@example.com", 0); err != ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound for inactive quiz, got %v", err)
	}
}

func TestRetakeNotAllowed(t *testing.T) {
	f := newSubmissionFixture(t, func(req *CreateQuizRequest) {
		req.AllowRetakes = false
		req.MaxAttempts = 5
	})

	if _, err := f.submitOption(t, "alice@example.com", 0); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := f.submitOption(t, "alice@example.com", 0); err != ErrRetakeNotAllowed {
		t.Fatalf("expected ErrRetakeNotAllowed, got %v", err)
	}

	// A different participant is unaffected
	if _, err := f.submitOption(t, "bob@example.com", 0); err != nil {
		t.Fatalf("second participant submit failed: %v", err)
	}
}

func TestAttemptLimitExceeded(t *testing.T) {
	f := newSubmissionFixture(t, func(req *CreateQuizRequest) {
		req.AllowRetakes = true
		req.MaxAttempts = 2
	})

	for attempt := 1; attempt <= 2; attempt++ {
		response, err := f.submitOption(t, "alice@example.com", 0)
		if err != nil {
			t.Fatalf("attempt %d failed: %v", attempt, err)
		}
		if response.AttemptNumber != attempt {
			t.Fatalf("expected attempt number %d, got %d", attempt, response.AttemptNumber)
		}
	}

	if _, err := f.submitOption(t, "alice@example.com", 0); err != ErrAttemptLimitExceeded {
		t.Fatalf("expected ErrAttemptLimitExceeded, got %v", err)
	}
}

func TestAttemptEmailNormalization(t *testing.T) {
	f := newSubmissionFixture(t, nil)

	if _, err := f.submitOption(t, "Alice@Example.com", 0); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := f.submitOption(t, "alice@example.com ", 0); err != ErrRetakeNotAllowed {
		t.Fatalf("expected case-insensitive email to hit the retake gate, got %v", err)
	}
}

func TestRacedAttemptSlotMapsToConflict(t *testing.T) {
	f := newSubmissionFixture(t, func(req *CreateQuizRequest) {
		req.AllowRetakes = true
		req.MaxAttempts = 5
	})

	first, err := f.submitOption(t, "alice@example.com", 0)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	// A racing writer took attempt slot 3 after this submission's count ran.
	// With slot 2 missing, the next submit counts two rows, computes attempt
	// number 3, and collides on the (quiz, email, attempt) index — exactly
	// the interleaving the pipeline must surface as ErrConcurrencyConflict.
	racer := models.Response{
		QuizID:           f.quiz.ID,
		ParticipantName:  first.ParticipantName,
		ParticipantEmail: first.ParticipantEmail,
		SessionID:        "racer-session",
		AttemptNumber:    3,
		StartedAt:        first.StartedAt,
		IsCompleted:      true,
	}
	if err := f.db.Create(&racer).Error; err != nil {
		t.Fatalf("failed to seed racing row: %v", err)
	}

	if _, err := f.submitOption(t, "alice@example.com", 0); err != ErrConcurrencyConflict {
		t.Fatalf("expected ErrConcurrencyConflict from the submit pipeline, got %v", err)
	}

	// The losing submission leaves no partial rows behind
	var answers int64
	f.db.Model(&models.Answer{}).
		Joins("JOIN responses ON responses.id = answers.response_id").
		Where("responses.attempt_number = ?", 3).
		Count(&answers)
	if answers != 0 {
		t.Fatalf("losing submission persisted %d answers", answers)
	}
}

func TestFreeTextDefaultsUnscored(t *testing.T) {
	f := newSubmissionFixture(t, func(req *CreateQuizRequest) {
		req.Questions = []CreateQuestionRequest{textQuestion(1, 10, true)}
	})

	response, err := f.service.Submit(f.quiz.ID, &SubmitQuizRequest{
		ParticipantName:  "Alice",
		ParticipantEmail: "alice@example.com",
		Answers: []AnswerSubmission{
			{QuestionID: f.quiz.Questions[0].ID, TextAnswer: "forty-two"},
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if response.Score != 0 || response.IsPassed {
		t.Fatalf("expected ungraded free text to score 0, got %d (passed=%v)", response.Score, response.IsPassed)
	}
	if response.Answers[0].IsCorrect || response.Answers[0].PointsEarned != 0 {
		t.Fatalf("expected free-text answer to default incorrect, got %+v", response.Answers[0])
	}
	if response.Answers[0].TextAnswer != "forty-two" {
		t.Fatalf("expected trimmed text answer, got %q", response.Answers[0].TextAnswer)
	}
}

func TestAggregateZeroTotalPoints(t *testing.T) {
	score, percentage := aggregate(0, nil)
	if score != 0 || percentage != 0 {
		t.Fatalf("expected 0/0 for empty quiz, got %d/%v", score, percentage)
	}
}

func TestScoreAnswerDerivation(t *testing.T) {
	question := &models.Question{Type: models.MultipleChoice, Points: 10}
	correct := &models.Option{IsCorrect: true}
	wrong := &models.Option{IsCorrect: false}

	if ok, points := scoreAnswer(question, correct); !ok || points != 10 {
		t.Fatalf("expected correct option to earn 10, got %v/%d", ok, points)
	}
	if ok, points := scoreAnswer(question, wrong); ok || points != 0 {
		t.Fatalf("expected wrong option to earn 0, got %v/%d", ok, points)
	}
	if ok, points := scoreAnswer(question, nil); ok || points != 0 {
		t.Fatalf("expected missing option to earn 0, got %v/%d", ok, points)
	}

	textQ := &models.Question{Type: models.FreeText, Points: 10}
	if ok, points := scoreAnswer(textQ, nil); ok || points != 0 {
		t.Fatalf("expected free text to default to 0, got %v/%d", ok, points)
	}
}

func TestRescoreIsIdempotent(t *testing.T) {
	f := newSubmissionFixture(t, nil)

	response, err := f.submitOption(t, "alice@example.com", 0)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := rescore(f.db, response.ID); err != nil {
			t.Fatalf("rescore %d failed: %v", i, err)
		}
		var reloaded models.Response
		if err := f.db.First(&reloaded, response.ID).Error; err != nil {
			t.Fatalf("reload failed: %v", err)
		}
		if reloaded.Score != response.Score ||
			reloaded.Percentage != response.Percentage ||
			reloaded.IsPassed != response.IsPassed {
			t.Fatalf("rescore changed aggregates: %+v vs %+v", reloaded, response)
		}
	}
}
