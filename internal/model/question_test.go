package model

import (
	"testing"
	"time"
)

func TestOptionValid(t *testing.T) {
	for _, o := range []Option{OptionA, OptionB, OptionC, OptionD} {
		if !o.Valid() {
			t.Errorf("Option %q should be valid", o)
		}
	}
	for _, o := range []Option{"", "E", "a", "AB"} {
		if o.Valid() {
			t.Errorf("Option %q should be invalid", o)
		}
	}
}

func TestAttemptSubmitted(t *testing.T) {
	a := &Attempt{}
	if a.Submitted() {
		t.Error("attempt without submitted_at should not be submitted")
	}
	now := time.Now()
	a.SubmittedAt = &now
	if !a.Submitted() {
		t.Error("attempt with submitted_at should be submitted")
	}
}
