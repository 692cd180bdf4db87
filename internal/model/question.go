package model

import (
	"time"

	"github.com/google/uuid"
)

// Option is one of the four answer letters.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// Valid reports whether the option is one of A, B, C, D.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Question is a single multiple-choice question in a subject's bank.
// Never mutated by the exam-taking flow; only by admin edits.
type Question struct {
	ID            uuid.UUID `json:"id"`
	SubjectID     uuid.UUID `json:"subject_id"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectOption Option    `json:"correct_option"`
	Explanation   *string   `json:"explanation,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QuestionInput is one question in a bulk-create or update payload.
type QuestionInput struct {
	QuestionText  string  `json:"question_text" binding:"required,min=1,max=4000"`
	OptionA       string  `json:"option_a" binding:"required,max=2000"`
	OptionB       string  `json:"option_b" binding:"required,max=2000"`
	OptionC       string  `json:"option_c" binding:"required,max=2000"`
	OptionD       string  `json:"option_d" binding:"required,max=2000"`
	CorrectOption string  `json:"correct_option" binding:"required,oneof=A B C D"`
	Explanation   *string `json:"explanation" binding:"omitempty,max=4000"`
}

// CreateQuestionsRequest is the payload for bulk-adding questions to a subject.
type CreateQuestionsRequest struct {
	Questions []QuestionInput `json:"questions" binding:"required,min=1,dive"`
}
