package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opencbt/practice-backend/internal/model"
	"github.com/opencbt/practice-backend/internal/repository"
)

// SubjectService handles admin subject management.
type SubjectService struct {
	subjects *repository.SubjectRepository
	exams    *repository.ExamRepository
}

// NewSubjectService creates a new SubjectService.
func NewSubjectService(subjects *repository.SubjectRepository, exams *repository.ExamRepository) *SubjectService {
	return &SubjectService{subjects: subjects, exams: exams}
}

// ListByExam returns all subjects of an exam.
func (s *SubjectService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Subject, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}
	return s.subjects.ListByExam(ctx, examID)
}

// Create adds a subject under an exam.
func (s *SubjectService) Create(ctx context.Context, req *model.CreateSubjectRequest) (*model.Subject, error) {
	if _, err := s.exams.GetByID(ctx, req.ExamID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}

	subject := &model.Subject{
		ExamID:           req.ExamID,
		Name:             req.Name,
		TimeLimitMinutes: req.TimeLimitMinutes,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	return subject, nil
}

// Update edits a subject's name and time limit. The new time limit applies to
// future attempts only; running countdowns keep their initial allotment.
func (s *SubjectService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateSubjectRequest) (*model.Subject, error) {
	subject, err := s.subjects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load subject: %w", err)
	}

	subject.Name = req.Name
	subject.TimeLimitMinutes = req.TimeLimitMinutes
	if err := s.subjects.Update(ctx, subject); err != nil {
		return nil, fmt.Errorf("update subject: %w", err)
	}
	return subject, nil
}

// Delete removes a subject.
func (s *SubjectService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.subjects.GetByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load subject: %w", err)
	}
	return s.subjects.Delete(ctx, id)
}
