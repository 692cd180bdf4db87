package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/opencbt/practice-backend/internal/config"
	"github.com/opencbt/practice-backend/internal/model"
	"github.com/opencbt/practice-backend/internal/repository"
)

// fakeBackend is an in-memory AttemptStore + QuestionPool + SubjectStore.
type fakeBackend struct {
	mu        sync.Mutex
	subjects  map[uuid.UUID]*model.Subject
	questions map[uuid.UUID]model.Question
	poolOrder []uuid.UUID
	attempts  map[uuid.UUID]*model.Attempt
	snapshots map[uuid.UUID][]uuid.UUID
	answers   map[uuid.UUID]map[uuid.UUID]model.Option

	lastListPage    int
	lastListPerPage int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		subjects:  make(map[uuid.UUID]*model.Subject),
		questions: make(map[uuid.UUID]model.Question),
		attempts:  make(map[uuid.UUID]*model.Attempt),
		snapshots: make(map[uuid.UUID][]uuid.UUID),
		answers:   make(map[uuid.UUID]map[uuid.UUID]model.Option),
	}
}

func (f *fakeBackend) addSubject(timeLimitMinutes int) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.subjects[id] = &model.Subject{ID: id, ExamID: uuid.New(), Name: "Mathematics", TimeLimitMinutes: timeLimitMinutes}
	return id
}

// addQuestions fills the subject's pool; every question's correct option is A.
func (f *fakeBackend) addQuestions(subjectID uuid.UUID, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		id := uuid.New()
		f.questions[id] = model.Question{
			ID: id, SubjectID: subjectID,
			QuestionText: "q", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectOption: model.OptionA,
		}
		f.poolOrder = append(f.poolOrder, id)
	}
}

func (f *fakeBackend) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeBackend) HasSubmittedAttempt(_ context.Context, userID, subjectID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.UserID == userID && a.SubjectID == subjectID && a.SubmittedAt != nil {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBackend) GetInProgress(_ context.Context, userID, subjectID uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *model.Attempt
	for _, a := range f.attempts {
		if a.UserID == userID && a.SubjectID == subjectID && a.SubmittedAt == nil {
			if newest == nil || a.CreatedAt.After(newest.CreatedAt) {
				newest = a
			}
		}
	}
	if newest == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *newest
	return &cp, nil
}

func (f *fakeBackend) ListInProgress(_ context.Context) ([]model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attempt
	for _, a := range f.attempts {
		if a.SubmittedAt == nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateWithQuestions(_ context.Context, a *model.Attempt, questionIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	f.attempts[a.ID] = &cp
	f.snapshots[a.ID] = append([]uuid.UUID(nil), questionIDs...)
	return nil
}

func (f *fakeBackend) UpsertAnswer(_ context.Context, attemptID, questionID uuid.UUID, option model.Option) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.answers[attemptID]
	if !ok {
		m = make(map[uuid.UUID]model.Option)
		f.answers[attemptID] = m
	}
	m[questionID] = option
	return nil
}

func (f *fakeBackend) HasSnapshotQuestion(_ context.Context, attemptID, questionID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.snapshots[attemptID] {
		if id == questionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBackend) MarkSubmitted(_ context.Context, attemptID uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[attemptID]
	if !ok || a.SubmittedAt != nil {
		return false, nil
	}
	// Mirrors uq_attempts_submitted_once: a second submitted attempt for the
	// same (user, subject) is rejected with a unique violation.
	for _, other := range f.attempts {
		if other.ID != attemptID && other.UserID == a.UserID &&
			other.SubjectID == a.SubjectID && other.SubmittedAt != nil {
			return false, &pgconn.PgError{Code: "23505", ConstraintName: "uq_attempts_submitted_once"}
		}
	}
	a.SubmittedAt = &at
	a.TimeRemainingSeconds = 0
	return true, nil
}

func (f *fakeBackend) ListQuestionsWithAnswers(_ context.Context, attemptID uuid.UUID) ([]repository.AttemptQuestionRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []repository.AttemptQuestionRow
	for i, qid := range f.snapshots[attemptID] {
		row := repository.AttemptQuestionRow{Question: f.questions[qid], QuestionOrder: i + 1}
		if opt, ok := f.answers[attemptID][qid]; ok {
			o := opt
			row.SelectedOption = &o
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *fakeBackend) ListSummaries(_ context.Context, page, perPage int) ([]repository.AttemptSummary, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastListPage, f.lastListPerPage = page, perPage
	return nil, 0, nil
}

func (f *fakeBackend) ListIDsBySubject(_ context.Context, subjectID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for _, id := range f.poolOrder {
		if f.questions[id].SubjectID == subjectID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeBackend) GetSubjectByID(ctx context.Context, id uuid.UUID) (*model.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subjects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

// subjectStoreAdapter exposes the fake through the SubjectStore method name.
type subjectStoreAdapter struct{ *fakeBackend }

func (a subjectStoreAdapter) GetByID(ctx context.Context, id uuid.UUID) (*model.Subject, error) {
	return a.GetSubjectByID(ctx, id)
}

func newTestService(t *testing.T, backend *fakeBackend, cfg *config.Config) *AttemptService {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{
			AttemptQuestionCount: 5,
			TimerFlushInterval:   time.Hour,
			TimerFlushThreshold:  5,
		}
	}
	svc := NewAttemptService(backend, backend, subjectStoreAdapter{backend}, cfg, nil, zerolog.Nop())
	t.Cleanup(svc.Shutdown)
	return svc
}

func TestStartAttemptSamplesQuotaFromPool(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 12)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	attempt, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	if attempt.TotalQuestions != 5 {
		t.Fatalf("total_questions = %d, want 5", attempt.TotalQuestions)
	}
	if attempt.TimeRemainingSeconds != 30*60 {
		t.Fatalf("time_remaining = %d, want %d", attempt.TimeRemainingSeconds, 30*60)
	}

	snapshot := backend.snapshots[attempt.ID]
	if len(snapshot) != 5 {
		t.Fatalf("snapshot size = %d, want 5", len(snapshot))
	}
	seen := make(map[uuid.UUID]bool)
	for _, qid := range snapshot {
		if seen[qid] {
			t.Fatalf("question %s sampled twice", qid)
		}
		seen[qid] = true
		if q, ok := backend.questions[qid]; !ok || q.SubjectID != subjectID {
			t.Fatalf("sampled question %s is not in the subject pool", qid)
		}
	}
}

func TestStartAttemptRejectsThinPool(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 4)
	svc := newTestService(t, backend, nil)

	_, err := svc.StartAttempt(context.Background(), uuid.New(), subjectID)
	if !errors.Is(err, ErrInsufficientQuestions) {
		t.Fatalf("err = %v, want ErrInsufficientQuestions", err)
	}
	if len(backend.attempts) != 0 {
		t.Fatalf("attempt was persisted despite thin pool")
	}
}

func TestStartAttemptBlockedAfterSubmission(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	attempt, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if err := svc.SubmitAttempt(context.Background(), attempt.ID, userID); err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}

	_, err = svc.StartAttempt(context.Background(), userID, subjectID)
	if !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("err = %v, want ErrAlreadyAttempted", err)
	}
}

func TestStartAttemptUnsubmittedDoesNotBlock(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	first, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("first StartAttempt: %v", err)
	}
	second, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("second StartAttempt: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected a fresh attempt, got the same one back")
	}
}

func TestStartAttemptSingleActiveResumes(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	cfg := &config.Config{
		AttemptQuestionCount: 5,
		TimerFlushInterval:   time.Hour,
		TimerFlushThreshold:  5,
		SingleActiveAttempt:  true,
	}
	svc := newTestService(t, backend, cfg)

	userID := uuid.New()
	first, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("first StartAttempt: %v", err)
	}
	second, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("second StartAttempt: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the in-flight attempt back, got a new one")
	}
	if len(backend.attempts) != 1 {
		t.Fatalf("attempts persisted = %d, want 1", len(backend.attempts))
	}
}

func TestSaveAnswerOverwrites(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	attempt, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	qid := backend.snapshots[attempt.ID][0]

	if err := svc.SaveAnswer(context.Background(), attempt.ID, userID, qid, "B"); err != nil {
		t.Fatalf("first SaveAnswer: %v", err)
	}
	if err := svc.SaveAnswer(context.Background(), attempt.ID, userID, qid, "C"); err != nil {
		t.Fatalf("second SaveAnswer: %v", err)
	}
	// Same selection again is an accepted no-op.
	if err := svc.SaveAnswer(context.Background(), attempt.ID, userID, qid, "C"); err != nil {
		t.Fatalf("repeat SaveAnswer: %v", err)
	}

	if got := backend.answers[attempt.ID][qid]; got != model.OptionC {
		t.Fatalf("stored option = %s, want C", got)
	}
	if n := len(backend.answers[attempt.ID]); n != 1 {
		t.Fatalf("answer rows = %d, want 1 (last write wins, no duplicates)", n)
	}
}

func TestSaveAnswerValidation(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	attempt, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	qid := backend.snapshots[attempt.ID][0]

	if err := svc.SaveAnswer(context.Background(), attempt.ID, userID, qid, "E"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("err = %v, want ErrInvalidOption", err)
	}
	if len(backend.answers[attempt.ID]) != 0 {
		t.Fatalf("invalid option was persisted")
	}

	if err := svc.SaveAnswer(context.Background(), attempt.ID, userID, uuid.New(), "A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for question outside the snapshot", err)
	}

	if err := svc.SaveAnswer(context.Background(), attempt.ID, uuid.New(), qid, "A"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden for non-owner", err)
	}
}

func TestSaveAnswerRejectedAfterSubmit(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	attempt, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	qid := backend.snapshots[attempt.ID][0]
	if err := svc.SaveAnswer(context.Background(), attempt.ID, userID, qid, "A"); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}
	if err := svc.SubmitAttempt(context.Background(), attempt.ID, userID); err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}

	if err := svc.SaveAnswer(context.Background(), attempt.ID, userID, qid, "B"); !errors.Is(err, ErrAttemptSubmitted) {
		t.Fatalf("err = %v, want ErrAttemptSubmitted", err)
	}
	if got := backend.answers[attempt.ID][qid]; got != model.OptionA {
		t.Fatalf("answer changed after submission: %s", got)
	}
}

func TestSubmitAttemptIdempotent(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	attempt, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	if err := svc.SubmitAttempt(context.Background(), attempt.ID, userID); err != nil {
		t.Fatalf("first SubmitAttempt: %v", err)
	}
	first := *backend.attempts[attempt.ID].SubmittedAt

	time.Sleep(10 * time.Millisecond)
	if err := svc.SubmitAttempt(context.Background(), attempt.ID, userID); err != nil {
		t.Fatalf("second SubmitAttempt: %v", err)
	}
	if got := *backend.attempts[attempt.ID].SubmittedAt; !got.Equal(first) {
		t.Fatalf("submitted_at moved from %v to %v on repeat submit", first, got)
	}
	if backend.attempts[attempt.ID].TimeRemainingSeconds != 0 {
		t.Fatalf("time_remaining_seconds not zeroed on submit")
	}
}

func TestSubmitSecondInFlightAttempt(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	first, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("first StartAttempt: %v", err)
	}
	second, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("second StartAttempt: %v", err)
	}

	if err := svc.SubmitAttempt(context.Background(), first.ID, userID); err != nil {
		t.Fatalf("submit first: %v", err)
	}

	// The submitted slot for (user, subject) is taken by the first attempt.
	// The leftover attempt loses as a domain error, not a raw unique
	// violation, and its countdown is released.
	if err := svc.SubmitAttempt(context.Background(), second.ID, userID); !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("err = %v, want ErrAlreadyAttempted", err)
	}
	if backend.attempts[second.ID].SubmittedAt != nil {
		t.Fatalf("losing attempt was marked submitted")
	}
	if _, ok := svc.RemainingTime(second.ID); ok {
		t.Fatalf("countdown still armed for attempt that can never finalize")
	}
}

func TestSubmitNotifiesWatchers(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	attempt, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	events, cancel := svc.Watch(attempt.ID)
	defer cancel()

	if err := svc.SubmitAttempt(context.Background(), attempt.ID, userID); err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}

	select {
	case ev := <-events:
		if ev != EventSubmitted {
			t.Fatalf("event = %s, want %s", ev, EventSubmitted)
		}
	case <-time.After(time.Second):
		t.Fatal("no submitted event delivered")
	}
}

func TestGetPaperOrderedAndOwnerOnly(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	attempt, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	qid := backend.snapshots[attempt.ID][2]
	if err := svc.SaveAnswer(context.Background(), attempt.ID, userID, qid, "D"); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	paper, err := svc.GetPaper(context.Background(), attempt.ID, userID)
	if err != nil {
		t.Fatalf("GetPaper: %v", err)
	}
	if paper.SubjectName != "Mathematics" {
		t.Fatalf("subject name = %q", paper.SubjectName)
	}
	if len(paper.Questions) != 5 {
		t.Fatalf("paper questions = %d, want 5", len(paper.Questions))
	}
	for i, q := range paper.Questions {
		if q.QuestionOrder != i+1 {
			t.Fatalf("question %d has ordinal %d", i, q.QuestionOrder)
		}
	}
	if got := paper.Questions[2].SelectedOption; got == nil || *got != model.OptionD {
		t.Fatalf("saved selection missing from paper: %v", got)
	}
	if paper.Questions[0].SelectedOption != nil {
		t.Fatalf("unanswered question carries a selection")
	}

	if _, err := svc.GetPaper(context.Background(), attempt.ID, uuid.New()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden for non-owner", err)
	}
	if _, err := svc.GetPaper(context.Background(), uuid.New(), userID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for unknown attempt", err)
	}
}

func TestGetResultScoresDeterministically(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	attempt, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	snapshot := backend.snapshots[attempt.ID]

	// Correct option is always A: three right, one wrong, one blank.
	for _, qid := range snapshot[:3] {
		if err := svc.SaveAnswer(context.Background(), attempt.ID, userID, qid, "A"); err != nil {
			t.Fatalf("SaveAnswer: %v", err)
		}
	}
	if err := svc.SaveAnswer(context.Background(), attempt.ID, userID, snapshot[3], "B"); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}
	if err := svc.SubmitAttempt(context.Background(), attempt.ID, userID); err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}

	result, err := svc.GetResult(context.Background(), attempt.ID, userID, false)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result.CorrectCount != 3 {
		t.Fatalf("correct = %d, want 3", result.CorrectCount)
	}
	if result.Score != 60 {
		t.Fatalf("score = %d, want 60", result.Score)
	}
	if result.Questions[3].IsCorrect {
		t.Fatalf("wrong answer marked correct")
	}
	if result.Questions[4].SelectedOption != nil || result.Questions[4].IsCorrect {
		t.Fatalf("blank answer counted as correct")
	}

	again, err := svc.GetResult(context.Background(), attempt.ID, userID, false)
	if err != nil {
		t.Fatalf("second GetResult: %v", err)
	}
	if again.Score != result.Score || again.CorrectCount != result.CorrectCount {
		t.Fatalf("score changed between reads: %d/%d vs %d/%d",
			result.CorrectCount, result.Score, again.CorrectCount, again.Score)
	}
}

func TestGetResultAccess(t *testing.T) {
	backend := newFakeBackend()
	subjectID := backend.addSubject(30)
	backend.addQuestions(subjectID, 10)
	svc := newTestService(t, backend, nil)

	userID := uuid.New()
	attempt, err := svc.StartAttempt(context.Background(), userID, subjectID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	if _, err := svc.GetResult(context.Background(), attempt.ID, uuid.New(), false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden for another student", err)
	}
	if _, err := svc.GetResult(context.Background(), attempt.ID, uuid.New(), true); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}
}

func TestListSummariesClampsPaging(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend, nil)

	_, _, page, perPage, err := svc.ListSummaries(context.Background(), -3, 1000)
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if page != 1 || perPage != 20 {
		t.Fatalf("effective paging = %d/%d, want 1/20", page, perPage)
	}
	if backend.lastListPage != 1 || backend.lastListPerPage != 20 {
		t.Fatalf("store queried with %d/%d, want the clamped values", backend.lastListPage, backend.lastListPerPage)
	}
}

func TestSampleIDs(t *testing.T) {
	ids := make([]uuid.UUID, 50)
	for i := range ids {
		ids[i] = uuid.New()
	}
	pool := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		pool[id] = true
	}
	orig := append([]uuid.UUID(nil), ids...)

	sample := sampleIDs(ids, 40)
	if len(sample) != 40 {
		t.Fatalf("sample size = %d, want 40", len(sample))
	}
	seen := make(map[uuid.UUID]bool)
	for _, id := range sample {
		if !pool[id] {
			t.Fatalf("sampled id not from pool")
		}
		if seen[id] {
			t.Fatalf("duplicate id in sample")
		}
		seen[id] = true
	}

	// The input slice is never reordered in place.
	for i := range ids {
		if ids[i] != orig[i] {
			t.Fatalf("input slice mutated at %d", i)
		}
	}
}
