package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencbt/practice-backend/internal/model"
)

// SubjectRepository handles subject data access.
type SubjectRepository struct {
	pool *pgxpool.Pool
}

// NewSubjectRepository creates a new SubjectRepository.
func NewSubjectRepository(pool *pgxpool.Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

// GetByID retrieves one subject.
func (r *SubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Subject, error) {
	s := &model.Subject{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, name, time_limit_minutes, created_at, updated_at
		 FROM subjects WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamID, &s.Name, &s.TimeLimitMinutes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByExam retrieves all subjects of an exam.
func (r *SubjectRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Subject, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, name, time_limit_minutes, created_at, updated_at
		 FROM subjects
		 WHERE exam_id = $1
		 ORDER BY name`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		var s model.Subject
		if err := rows.Scan(&s.ID, &s.ExamID, &s.Name, &s.TimeLimitMinutes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// ListByExamWithStatus retrieves an exam's subjects decorated with the question
// pool size and whether the given user has a submitted attempt for each one.
// Feeds the subject-select screen in one round trip.
func (r *SubjectRepository) ListByExamWithStatus(ctx context.Context, examID, userID uuid.UUID) ([]model.SubjectWithStatus, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.exam_id, s.name, s.time_limit_minutes, s.created_at, s.updated_at,
		        COUNT(DISTINCT q.id) AS question_count,
		        COUNT(a.id) FILTER (WHERE a.submitted_at IS NOT NULL) > 0 AS attempted
		 FROM subjects s
		 LEFT JOIN questions q ON q.subject_id = s.id
		 LEFT JOIN attempts a ON a.subject_id = s.id AND a.user_id = $2
		 WHERE s.exam_id = $1
		 GROUP BY s.id
		 ORDER BY s.name`, examID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []model.SubjectWithStatus
	for rows.Next() {
		var s model.SubjectWithStatus
		if err := rows.Scan(
			&s.ID, &s.ExamID, &s.Name, &s.TimeLimitMinutes, &s.CreatedAt, &s.UpdatedAt,
			&s.QuestionCount, &s.Attempted,
		); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// Create inserts a new subject.
func (r *SubjectRepository) Create(ctx context.Context, s *model.Subject) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO subjects (exam_id, name, time_limit_minutes)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		s.ExamID, s.Name, s.TimeLimitMinutes,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// Update modifies a subject's name and time limit.
func (r *SubjectRepository) Update(ctx context.Context, s *model.Subject) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE subjects SET name = $1, time_limit_minutes = $2, updated_at = NOW()
		 WHERE id = $3`,
		s.Name, s.TimeLimitMinutes, s.ID)
	return err
}

// Delete removes a subject. Fails while questions or attempts reference it.
func (r *SubjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	return err
}
