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

// CatalogService serves the student-facing browse flow: the exam list and an
// exam's subjects decorated with pool size and per-user attempted status.
type CatalogService struct {
	exams    *repository.ExamRepository
	subjects *repository.SubjectRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(exams *repository.ExamRepository, subjects *repository.SubjectRepository) *CatalogService {
	return &CatalogService{exams: exams, subjects: subjects}
}

// ListExams returns all exams.
func (s *CatalogService) ListExams(ctx context.Context) ([]model.Exam, error) {
	return s.exams.List(ctx)
}

// ListSubjects returns one exam's subjects with question counts and the
// caller's attempted flags.
func (s *CatalogService) ListSubjects(ctx context.Context, examID, userID uuid.UUID) (*model.Exam, []model.SubjectWithStatus, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("load exam: %w", err)
	}

	subjects, err := s.subjects.ListByExamWithStatus(ctx, examID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list subjects: %w", err)
	}
	return exam, subjects, nil
}
