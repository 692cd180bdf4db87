package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/opencbt/practice-backend/internal/config"
	"github.com/opencbt/practice-backend/internal/model"
	"github.com/opencbt/practice-backend/internal/repository"
	"github.com/opencbt/practice-backend/internal/timer"
)

// AttemptStore is the attempt persistence surface the service needs.
// *repository.AttemptRepository satisfies it.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	HasSubmittedAttempt(ctx context.Context, userID, subjectID uuid.UUID) (bool, error)
	GetInProgress(ctx context.Context, userID, subjectID uuid.UUID) (*model.Attempt, error)
	ListInProgress(ctx context.Context) ([]model.Attempt, error)
	CreateWithQuestions(ctx context.Context, a *model.Attempt, questionIDs []uuid.UUID) error
	UpsertAnswer(ctx context.Context, attemptID, questionID uuid.UUID, option model.Option) error
	HasSnapshotQuestion(ctx context.Context, attemptID, questionID uuid.UUID) (bool, error)
	MarkSubmitted(ctx context.Context, attemptID uuid.UUID, at time.Time) (bool, error)
	ListQuestionsWithAnswers(ctx context.Context, attemptID uuid.UUID) ([]repository.AttemptQuestionRow, error)
	ListSummaries(ctx context.Context, page, perPage int) ([]repository.AttemptSummary, int, error)
}

// QuestionPool is the question-bank surface the service needs for sampling.
type QuestionPool interface {
	ListIDsBySubject(ctx context.Context, subjectID uuid.UUID) ([]uuid.UUID, error)
}

// SubjectStore resolves subjects for eligibility checks and display names.
type SubjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Subject, error)
}

// FlushFunc enqueues one remaining-time persistence. Wired to the redis
// worker queue in production and to an in-memory recorder in tests.
type FlushFunc func(ctx context.Context, attemptID uuid.UUID, seconds int) error

// AttemptEvent is pushed to watchers of a live attempt.
type AttemptEvent string

const (
	// EventSubmitted fires once when the attempt is finalized, whether by
	// the student or by timer expiry.
	EventSubmitted AttemptEvent = "submitted"
)

// AttemptService implements the exam attempt lifecycle: eligibility, question
// sampling, the answer ledger, the authoritative countdown, submission, and
// scoring. It owns an in-memory registry of running countdowns; the database
// holds the durable remaining time and the registry holds the live one.
type AttemptService struct {
	attempts AttemptStore
	pool     QuestionPool
	subjects SubjectStore
	cfg      *config.Config
	flush    FlushFunc
	log      zerolog.Logger

	mu         sync.Mutex
	countdowns map[uuid.UUID]*timer.Countdown
	watchers   map[uuid.UUID]map[chan AttemptEvent]struct{}
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	pool QuestionPool,
	subjects SubjectStore,
	cfg *config.Config,
	flush FlushFunc,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:   attempts,
		pool:       pool,
		subjects:   subjects,
		cfg:        cfg,
		flush:      flush,
		log:        log.With().Str("component", "attempt_service").Logger(),
		countdowns: make(map[uuid.UUID]*timer.Countdown),
		watchers:   make(map[uuid.UUID]map[chan AttemptEvent]struct{}),
	}
}

// StartAttempt creates a new attempt for (user, subject): checks eligibility,
// samples the question quota, snapshots it, and arms the countdown. A user
// with a submitted attempt for the subject is blocked; unsubmitted attempts
// do not block unless single-active mode is on, in which case the existing
// one is resumed instead of erroring.
func (s *AttemptService) StartAttempt(ctx context.Context, userID, subjectID uuid.UUID) (*model.Attempt, error) {
	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load subject: %w", err)
	}

	attempted, err := s.attempts.HasSubmittedAttempt(ctx, userID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("check eligibility: %w", err)
	}
	if attempted {
		return nil, ErrAlreadyAttempted
	}

	if s.cfg.SingleActiveAttempt {
		existing, err := s.attempts.GetInProgress(ctx, userID, subjectID)
		switch {
		case err == nil:
			s.ensureCountdown(existing)
			return existing, nil
		case errors.Is(err, pgx.ErrNoRows):
			// No attempt in flight; fall through and create one.
		default:
			return nil, fmt.Errorf("check in-progress attempt: %w", err)
		}
	}

	ids, err := s.pool.ListIDsBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load question pool: %w", err)
	}
	quota := s.cfg.AttemptQuestionCount
	if len(ids) < quota {
		return nil, ErrInsufficientQuestions
	}

	attempt := &model.Attempt{
		UserID:               userID,
		SubjectID:            subjectID,
		TotalQuestions:       quota,
		TimeRemainingSeconds: subject.TimeLimitMinutes * 60,
	}
	if err := s.attempts.CreateWithQuestions(ctx, attempt, sampleIDs(ids, quota)); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("user_id", userID.String()).
		Str("subject_id", subjectID.String()).
		Int("questions", quota).
		Msg("attempt started")

	s.ensureCountdown(attempt)
	return attempt, nil
}

// sampleIDs picks n distinct IDs uniformly at random. Partial Fisher-Yates:
// only the first n positions are shuffled, the rest of the pool is left
// untouched. The order of the result is the attempt's presentation order.
func sampleIDs(ids []uuid.UUID, n int) []uuid.UUID {
	pool := make([]uuid.UUID, len(ids))
	copy(pool, ids)

	for i := 0; i < n; i++ {
		j := i + rand.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// GetPaper returns the exam-taking view of an attempt: the snapshot in ordinal
// order with saved answers and live remaining time, without correct options.
// Only the owner may load it. A submitted attempt is still returned (the
// client redirects on submitted_at) but its countdown is never re-armed.
func (s *AttemptService) GetPaper(ctx context.Context, attemptID, userID uuid.UUID) (*model.AttemptPaper, error) {
	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	subject, err := s.subjects.GetByID(ctx, attempt.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("load subject: %w", err)
	}

	rows, err := s.attempts.ListQuestionsWithAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load attempt questions: %w", err)
	}

	questions := make([]model.PaperQuestion, len(rows))
	for i, row := range rows {
		questions[i] = model.PaperQuestion{
			ID:             row.Question.ID,
			QuestionOrder:  row.QuestionOrder,
			QuestionText:   row.Question.QuestionText,
			OptionA:        row.Question.OptionA,
			OptionB:        row.Question.OptionB,
			OptionC:        row.Question.OptionC,
			OptionD:        row.Question.OptionD,
			SelectedOption: row.SelectedOption,
		}
	}

	if !attempt.Submitted() {
		s.ensureCountdown(attempt)
		if remaining, ok := s.RemainingTime(attemptID); ok {
			attempt.TimeRemainingSeconds = remaining
		}
	}

	return &model.AttemptPaper{
		Attempt:     attempt,
		SubjectName: subject.Name,
		Questions:   questions,
	}, nil
}

// SaveAnswer upserts the student's selection for one snapshot question.
// Idempotent: re-selecting the same option is a no-op rewrite, selecting a
// different one overwrites. Rejected once the attempt is submitted.
func (s *AttemptService) SaveAnswer(ctx context.Context, attemptID, userID, questionID uuid.UUID, selected string) error {
	option := model.Option(selected)
	if !option.Valid() {
		return ErrInvalidOption
	}

	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return err
	}
	if attempt.Submitted() {
		return ErrAttemptSubmitted
	}

	ok, err := s.attempts.HasSnapshotQuestion(ctx, attemptID, questionID)
	if err != nil {
		return fmt.Errorf("check snapshot membership: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	if err := s.attempts.UpsertAnswer(ctx, attemptID, questionID, option); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

// SubmitAttempt finalizes the attempt on behalf of its owner. Submitting an
// already-submitted attempt is a successful no-op and never moves the stored
// timestamp.
func (s *AttemptService) SubmitAttempt(ctx context.Context, attemptID, userID uuid.UUID) error {
	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return err
	}
	if attempt.Submitted() {
		return nil
	}
	return s.finalize(ctx, attemptID, "student")
}

// finalize marks the attempt submitted, stops its countdown, and notifies
// watchers. The SQL guard decides the race: whichever caller flips
// submitted_at wins, everyone else is a no-op. The countdown is released on
// every outcome so a failed finalize never leaves a dead timer armed.
func (s *AttemptService) finalize(ctx context.Context, attemptID uuid.UUID, cause string) error {
	won, err := s.attempts.MarkSubmitted(ctx, attemptID, time.Now())
	s.dropCountdown(attemptID)
	if err != nil {
		// uq_attempts_submitted_once allows one submitted attempt per
		// (user, subject). A unique violation here means a sibling attempt
		// already took the slot; this one can never be finalized.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyAttempted
		}
		return fmt.Errorf("mark submitted: %w", err)
	}

	if won {
		s.log.Info().
			Str("attempt_id", attemptID.String()).
			Str("cause", cause).
			Msg("attempt submitted")
		s.broadcast(attemptID, EventSubmitted)
	}
	return nil
}

// GetResult scores the attempt and returns the full review view. The owner
// may always read it; admins may read any attempt.
func (s *AttemptService) GetResult(ctx context.Context, attemptID, userID uuid.UUID, isAdmin bool) (*model.AttemptResult, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt.UserID != userID && !isAdmin {
		return nil, ErrForbidden
	}

	subject, err := s.subjects.GetByID(ctx, attempt.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("load subject: %w", err)
	}

	rows, err := s.attempts.ListQuestionsWithAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load attempt questions: %w", err)
	}

	return BuildResult(attempt, subject.Name, rows), nil
}

// ListSummaries returns the paginated admin results view. Page and per-page
// are clamped here once; the returned values are the ones actually queried,
// so pagination metadata always matches the query.
func (s *AttemptService) ListSummaries(ctx context.Context, page, perPage int) ([]repository.AttemptSummary, int, int, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	summaries, total, err := s.attempts.ListSummaries(ctx, page, perPage)
	return summaries, total, page, perPage, err
}

// ResumeInFlight re-arms countdowns for every unsubmitted attempt. Called once
// at startup so attempts that were live when the process died keep counting
// from their last persisted remaining time.
func (s *AttemptService) ResumeInFlight(ctx context.Context) error {
	attempts, err := s.attempts.ListInProgress(ctx)
	if err != nil {
		return fmt.Errorf("list in-progress attempts: %w", err)
	}
	for i := range attempts {
		s.ensureCountdown(&attempts[i])
	}
	if len(attempts) > 0 {
		s.log.Info().Int("count", len(attempts)).Msg("resumed in-flight attempt countdowns")
	}
	return nil
}

// Shutdown stops every running countdown. Remaining time already persisted
// stays; the next boot resumes from it via ResumeInFlight.
func (s *AttemptService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cd := range s.countdowns {
		cd.Stop()
		delete(s.countdowns, id)
	}
}

// RemainingTime returns the live remaining seconds for an attempt whose
// countdown is armed in this process.
func (s *AttemptService) RemainingTime(attemptID uuid.UUID) (int, bool) {
	s.mu.Lock()
	cd, ok := s.countdowns[attemptID]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	return cd.Remaining(), true
}

// Watch subscribes to attempt events (currently only submission). The
// returned cancel func must be called to release the channel.
func (s *AttemptService) Watch(attemptID uuid.UUID) (<-chan AttemptEvent, func()) {
	ch := make(chan AttemptEvent, 1)

	s.mu.Lock()
	set, ok := s.watchers[attemptID]
	if !ok {
		set = make(map[chan AttemptEvent]struct{})
		s.watchers[attemptID] = set
	}
	set[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if set, ok := s.watchers[attemptID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(s.watchers, attemptID)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *AttemptService) broadcast(attemptID uuid.UUID, ev AttemptEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers[attemptID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// ensureCountdown arms the countdown for an unsubmitted attempt if this
// process is not already running one. Expiry auto-submits; flushes go through
// the configured FlushFunc, and flush failures only log.
func (s *AttemptService) ensureCountdown(attempt *model.Attempt) {
	if attempt.Submitted() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.countdowns[attempt.ID]; ok {
		return
	}

	attemptID := attempt.ID
	cd := timer.New(timer.Config{
		InitialSeconds: attempt.TimeRemainingSeconds,
		FlushInterval:  s.cfg.TimerFlushInterval,
		FlushThreshold: s.cfg.TimerFlushThreshold,
		OnExpire: func() {
			if err := s.finalize(context.Background(), attemptID, "timer"); err != nil {
				s.log.Error().Err(err).
					Str("attempt_id", attemptID.String()).
					Msg("auto-submit on expiry failed")
			}
		},
		Flush: func(seconds int) error {
			if s.flush == nil {
				return nil
			}
			return s.flush(context.Background(), attemptID, seconds)
		},
		OnFlushError: func(err error) {
			s.log.Warn().Err(err).
				Str("attempt_id", attemptID.String()).
				Msg("remaining-time flush failed")
		},
	})
	s.countdowns[attemptID] = cd
	cd.Start()
}

func (s *AttemptService) dropCountdown(attemptID uuid.UUID) {
	s.mu.Lock()
	cd, ok := s.countdowns[attemptID]
	if ok {
		delete(s.countdowns, attemptID)
	}
	s.mu.Unlock()
	if ok {
		cd.Stop()
	}
}

// getOwned loads an attempt and enforces ownership.
func (s *AttemptService) getOwned(ctx context.Context, attemptID, userID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, ErrForbidden
	}
	return attempt, nil
}
