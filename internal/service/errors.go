package service

import "errors"

// Domain errors surfaced by the exam-taking flow. Handlers map these onto
// response codes; anything else is an internal error.
var (
	// ErrAlreadyAttempted: the user already has a submitted attempt for
	// this subject. Blocking; the exam does not start.
	ErrAlreadyAttempted = errors.New("subject already attempted")
	// ErrInsufficientQuestions: the subject's question pool is smaller than
	// the per-attempt quota. Blocking; never retried automatically.
	ErrInsufficientQuestions = errors.New("not enough questions in subject")
	// ErrInvalidOption: a selected option outside A-D. Input error; nothing
	// is persisted.
	ErrInvalidOption = errors.New("invalid answer option")
	// ErrAttemptSubmitted: a write against a finalized attempt.
	ErrAttemptSubmitted = errors.New("attempt already submitted")
	// ErrNotFound: attempt/subject/question id did not resolve, or the
	// question is not part of the attempt's snapshot.
	ErrNotFound = errors.New("not found")
	// ErrForbidden: the caller does not own the attempt.
	ErrForbidden = errors.New("forbidden")
)
