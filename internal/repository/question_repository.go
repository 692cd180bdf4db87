package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencbt/practice-backend/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListIDsBySubject retrieves all question IDs in a subject's pool. This is the
// sampling input for attempt generation — IDs only, the full rows are never
// needed at that point.
func (r *QuestionRepository) ListIDsBySubject(ctx context.Context, subjectID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM questions WHERE subject_id = $1`, subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListBySubject retrieves all questions in a subject (admin view).
func (r *QuestionRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, subject_id, question_text, option_a, option_b, option_c, option_d,
		        correct_option, explanation, created_at, updated_at
		 FROM questions
		 WHERE subject_id = $1
		 ORDER BY created_at`, subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.SubjectID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectOption, &q.Explanation, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateBatch inserts a set of questions for one subject in a single
// transaction via pgx batching.
func (r *QuestionRepository) CreateBatch(ctx context.Context, subjectID uuid.UUID, questions []model.QuestionInput) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(
			`INSERT INTO questions
			   (subject_id, question_text, option_a, option_b, option_c, option_d, correct_option, explanation)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			subjectID, q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectOption, q.Explanation,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range questions {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Update rewrites a question's text, options, correct option, and explanation.
func (r *QuestionRepository) Update(ctx context.Context, id uuid.UUID, q *model.QuestionInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET question_text = $1, option_a = $2, option_b = $3, option_c = $4, option_d = $5,
		     correct_option = $6, explanation = $7, updated_at = NOW()
		 WHERE id = $8`,
		q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectOption, q.Explanation, id)
	return err
}

// Delete removes a question from the bank. Fails while an attempt snapshot
// still references it.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}
