package model

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is one instance of a user taking a timed test for one subject.
// submitted_at is null while in progress; once set it is terminal and the
// attempt becomes immutable.
type Attempt struct {
	ID                   uuid.UUID  `json:"id"`
	UserID               uuid.UUID  `json:"user_id"`
	SubjectID            uuid.UUID  `json:"subject_id"`
	TotalQuestions       int        `json:"total_questions"`
	TimeRemainingSeconds int        `json:"time_remaining_seconds"`
	SubmittedAt          *time.Time `json:"submitted_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Submitted reports whether the attempt has been finalized.
func (a *Attempt) Submitted() bool {
	return a.SubmittedAt != nil
}

// AttemptQuestion is the immutable snapshot row fixing which question sits at
// which 1-based position in one attempt. The indirection decouples an attempt's
// content from later edits to the question bank.
type AttemptQuestion struct {
	ID            uuid.UUID `json:"id"`
	AttemptID     uuid.UUID `json:"attempt_id"`
	QuestionID    uuid.UUID `json:"question_id"`
	QuestionOrder int       `json:"question_order"`
}

// Answer holds the student's currently selected option for one snapshot
// question. At most one row per (attempt, question); last write wins.
type Answer struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedOption Option    `json:"selected_option"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// StartAttemptRequest is the payload for starting a new attempt.
type StartAttemptRequest struct {
	SubjectID uuid.UUID `json:"subject_id" binding:"required"`
}

// SaveAnswerRequest is the payload for saving one answer selection.
type SaveAnswerRequest struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedOption string    `json:"selected_option" binding:"required"`
}

// PaperQuestion is a snapshot question as served to the student mid-exam:
// full question text and options, the student's saved selection, and no
// correct option or explanation.
type PaperQuestion struct {
	ID             uuid.UUID `json:"id"`
	QuestionOrder  int       `json:"question_order"`
	QuestionText   string    `json:"question_text"`
	OptionA        string    `json:"option_a"`
	OptionB        string    `json:"option_b"`
	OptionC        string    `json:"option_c"`
	OptionD        string    `json:"option_d"`
	SelectedOption *Option   `json:"selected_option,omitempty"`
}

// AttemptPaper is the full exam-taking view of an in-progress attempt.
type AttemptPaper struct {
	Attempt     *Attempt        `json:"attempt"`
	SubjectName string          `json:"subject_name"`
	Questions   []PaperQuestion `json:"questions"`
}

// ResultQuestion is a snapshot question as shown on the review screen, with
// correctness and explanation revealed.
type ResultQuestion struct {
	ID             uuid.UUID `json:"id"`
	QuestionOrder  int       `json:"question_order"`
	QuestionText   string    `json:"question_text"`
	OptionA        string    `json:"option_a"`
	OptionB        string    `json:"option_b"`
	OptionC        string    `json:"option_c"`
	OptionD        string    `json:"option_d"`
	CorrectOption  Option    `json:"correct_option"`
	Explanation    *string   `json:"explanation,omitempty"`
	SelectedOption *Option   `json:"selected_option,omitempty"`
	IsCorrect      bool      `json:"is_correct"`
}

// AttemptResult is the scored view of an attempt. Score is recomputed from
// persisted state on every read; it is never stored.
type AttemptResult struct {
	Attempt      *Attempt         `json:"attempt"`
	SubjectName  string           `json:"subject_name"`
	CorrectCount int              `json:"correct_count"`
	Score        int              `json:"score"`
	Questions    []ResultQuestion `json:"questions"`
}
