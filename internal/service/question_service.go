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

// QuestionService handles admin question bank management. Edits here never
// touch attempt snapshots; an edited question simply reads differently (and
// may score differently) on later result views.
type QuestionService struct {
	questions *repository.QuestionRepository
	subjects  *repository.SubjectRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions *repository.QuestionRepository, subjects *repository.SubjectRepository) *QuestionService {
	return &QuestionService{questions: questions, subjects: subjects}
}

// ListBySubject returns a subject's full question bank.
func (s *QuestionService) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]model.Question, error) {
	if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load subject: %w", err)
	}
	return s.questions.ListBySubject(ctx, subjectID)
}

// CreateBatch bulk-adds questions to a subject.
func (s *QuestionService) CreateBatch(ctx context.Context, subjectID uuid.UUID, req *model.CreateQuestionsRequest) error {
	if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load subject: %w", err)
	}
	if err := s.questions.CreateBatch(ctx, subjectID, req.Questions); err != nil {
		return fmt.Errorf("create questions: %w", err)
	}
	return nil
}

// Update rewrites one question.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, input *model.QuestionInput) error {
	if err := s.questions.Update(ctx, id, input); err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return nil
}

// Delete removes a question from the bank.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.questions.Delete(ctx, id)
}
