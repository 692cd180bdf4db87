package model

import (
	"time"

	"github.com/google/uuid"
)

// Subject belongs to one exam and carries the time limit for its attempts.
type Subject struct {
	ID               uuid.UUID `json:"id"`
	ExamID           uuid.UUID `json:"exam_id"`
	Name             string    `json:"name"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SubjectWithStatus is a subject as shown to a student picking what to take:
// the pool size decides whether an attempt can be generated at all, and the
// attempted flag marks subjects already finished by this student.
type SubjectWithStatus struct {
	Subject
	QuestionCount int  `json:"question_count"`
	Attempted     bool `json:"attempted"`
}

// CreateSubjectRequest is the payload for creating a subject under an exam.
type CreateSubjectRequest struct {
	ExamID           uuid.UUID `json:"exam_id" binding:"required"`
	Name             string    `json:"name" binding:"required,min=2,max=255"`
	TimeLimitMinutes int       `json:"time_limit_minutes" binding:"required,min=1,max=480"`
}

// UpdateSubjectRequest is the payload for editing a subject.
type UpdateSubjectRequest struct {
	Name             string `json:"name" binding:"required,min=2,max=255"`
	TimeLimitMinutes int    `json:"time_limit_minutes" binding:"required,min=1,max=480"`
}
