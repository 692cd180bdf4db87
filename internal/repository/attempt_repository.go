package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencbt/practice-backend/internal/model"
)

// AttemptQuestionRow joins one snapshot row with its full question and the
// student's saved answer (if any), in ordinal order.
type AttemptQuestionRow struct {
	Question       model.Question
	QuestionOrder  int
	SelectedOption *model.Option
}

// AttemptSummary is one row of the admin results listing.
type AttemptSummary struct {
	model.Attempt
	UserEmail     string `json:"user_email"`
	UserName      string `json:"user_name"`
	SubjectName   string `json:"subject_name"`
	AnsweredCount int    `json:"answered_count"`
	CorrectCount  int    `json:"correct_count"`
}

// AttemptRepository handles attempt, snapshot, and answer data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// GetByID retrieves one attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, subject_id, total_questions, time_remaining_seconds, submitted_at, created_at
		 FROM attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.UserID, &a.SubjectID, &a.TotalQuestions, &a.TimeRemainingSeconds, &a.SubmittedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// HasSubmittedAttempt reports whether the user already has a finalized attempt
// for the subject. Unsubmitted attempts do not count.
func (r *AttemptRepository) HasSubmittedAttempt(ctx context.Context, userID, subjectID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM attempts
		   WHERE user_id = $1 AND subject_id = $2 AND submitted_at IS NOT NULL
		 )`, userID, subjectID,
	).Scan(&exists)
	return exists, err
}

// GetInProgress retrieves the newest unsubmitted attempt for (user, subject),
// or pgx.ErrNoRows if none exists.
func (r *AttemptRepository) GetInProgress(ctx context.Context, userID, subjectID uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, subject_id, total_questions, time_remaining_seconds, submitted_at, created_at
		 FROM attempts
		 WHERE user_id = $1 AND subject_id = $2 AND submitted_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT 1`, userID, subjectID,
	).Scan(&a.ID, &a.UserID, &a.SubjectID, &a.TotalQuestions, &a.TimeRemainingSeconds, &a.SubmittedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListInProgress retrieves every unsubmitted attempt. Used on startup to
// re-arm countdowns that were running when the process died.
func (r *AttemptRepository) ListInProgress(ctx context.Context) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, subject_id, total_questions, time_remaining_seconds, submitted_at, created_at
		 FROM attempts
		 WHERE submitted_at IS NULL`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.SubjectID, &a.TotalQuestions, &a.TimeRemainingSeconds, &a.SubmittedAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// CreateWithQuestions inserts the attempt row and its full question snapshot
// in one transaction. questionIDs carries the sampled questions in
// presentation order; ordinals are assigned 1..len(questionIDs). A failure
// anywhere rolls the whole attempt back, so a half-snapshotted attempt is
// never visible to the exam-taking flow.
func (r *AttemptRepository) CreateWithQuestions(ctx context.Context, a *model.Attempt, questionIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO attempts (user_id, subject_id, total_questions, time_remaining_seconds)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		a.UserID, a.SubjectID, a.TotalQuestions, a.TimeRemainingSeconds,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return err
	}

	snapshot := make([][]any, len(questionIDs))
	for i, qid := range questionIDs {
		snapshot[i] = []any{a.ID, qid, i + 1}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"attempt_questions"},
		[]string{"attempt_id", "question_id", "question_order"},
		pgx.CopyFromRows(snapshot),
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpsertAnswer stores the selected option for one snapshot question. A single
// ON CONFLICT statement keeps the write atomic: no read-then-write window for
// rapid re-selections to race through.
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, attemptID, questionID uuid.UUID, option model.Option) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO answers (attempt_id, question_id, selected_option)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET selected_option = EXCLUDED.selected_option, updated_at = NOW()`,
		attemptID, questionID, option,
	)
	return err
}

// HasSnapshotQuestion reports whether the question belongs to the attempt's
// snapshot.
func (r *AttemptRepository) HasSnapshotQuestion(ctx context.Context, attemptID, questionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM attempt_questions WHERE attempt_id = $1 AND question_id = $2
		 )`, attemptID, questionID,
	).Scan(&exists)
	return exists, err
}

// UpdateRemainingTime persists the countdown value. Guards keep the stored
// value monotonically non-increasing and leave submitted attempts untouched.
func (r *AttemptRepository) UpdateRemainingTime(ctx context.Context, attemptID uuid.UUID, seconds int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET time_remaining_seconds = $1
		 WHERE id = $2
		   AND submitted_at IS NULL
		   AND time_remaining_seconds >= $1`,
		seconds, attemptID,
	)
	return err
}

// MarkSubmitted finalizes the attempt. Returns whether this call won: false
// means the attempt was already submitted and nothing changed (the stored
// timestamp is never recomputed).
func (r *AttemptRepository) MarkSubmitted(ctx context.Context, attemptID uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET submitted_at = $1, time_remaining_seconds = 0
		 WHERE id = $2 AND submitted_at IS NULL`,
		at, attemptID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListQuestionsWithAnswers retrieves the attempt's snapshot in ordinal order,
// each row joined with the full question and the saved answer if present.
// This is the single read path behind both exam resume and scoring.
func (r *AttemptRepository) ListQuestionsWithAnswers(ctx context.Context, attemptID uuid.UUID) ([]AttemptQuestionRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.subject_id, q.question_text, q.option_a, q.option_b, q.option_c, q.option_d,
		        q.correct_option, q.explanation, q.created_at, q.updated_at,
		        aq.question_order, ans.selected_option
		 FROM attempt_questions aq
		 JOIN questions q ON q.id = aq.question_id
		 LEFT JOIN answers ans ON ans.attempt_id = aq.attempt_id AND ans.question_id = aq.question_id
		 WHERE aq.attempt_id = $1
		 ORDER BY aq.question_order`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AttemptQuestionRow
	for rows.Next() {
		var row AttemptQuestionRow
		if err := rows.Scan(
			&row.Question.ID, &row.Question.SubjectID, &row.Question.QuestionText,
			&row.Question.OptionA, &row.Question.OptionB, &row.Question.OptionC, &row.Question.OptionD,
			&row.Question.CorrectOption, &row.Question.Explanation,
			&row.Question.CreatedAt, &row.Question.UpdatedAt,
			&row.QuestionOrder, &row.SelectedOption,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// ListSummaries retrieves paginated attempts for the admin results view,
// joined with user and subject names and SQL-aggregated correctness counts.
// Scores here reflect the current question bank, same as GetResult.
func (r *AttemptRepository) ListSummaries(ctx context.Context, page, perPage int) ([]AttemptSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attempts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.user_id, a.subject_id, a.total_questions, a.time_remaining_seconds,
		        a.submitted_at, a.created_at,
		        u.email, u.full_name, s.name,
		        COUNT(ans.question_id) AS answered_count,
		        COUNT(ans.question_id) FILTER (WHERE ans.selected_option = q.correct_option) AS correct_count
		 FROM attempts a
		 JOIN users u ON u.id = a.user_id
		 JOIN subjects s ON s.id = a.subject_id
		 LEFT JOIN answers ans ON ans.attempt_id = a.id
		 LEFT JOIN questions q ON q.id = ans.question_id
		 GROUP BY a.id, u.email, u.full_name, s.name
		 ORDER BY a.created_at DESC
		 LIMIT $1 OFFSET $2`, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []AttemptSummary
	for rows.Next() {
		var s AttemptSummary
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.SubjectID, &s.TotalQuestions, &s.TimeRemainingSeconds,
			&s.SubmittedAt, &s.CreatedAt,
			&s.UserEmail, &s.UserName, &s.SubjectName,
			&s.AnsweredCount, &s.CorrectCount,
		); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}
