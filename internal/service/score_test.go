package service

import (
	"testing"

	"github.com/google/uuid"

	"github.com/opencbt/practice-backend/internal/model"
	"github.com/opencbt/practice-backend/internal/repository"
)

func TestPercentageRoundsHalfUp(t *testing.T) {
	// 35/40 is 87.5 and rounds up; 1/3 rounds down, 2/3 up. A zero-question
	// attempt never divides by zero.
	cases := []struct {
		correct, total, want int
	}{
		{0, 40, 0},
		{20, 40, 50},
		{35, 40, 88},
		{40, 40, 100},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{0, 0, 0},
	}
	for _, c := range cases {
		if got := percentage(c.correct, c.total); got != c.want {
			t.Errorf("percentage(%d, %d) = %d, want %d", c.correct, c.total, got, c.want)
		}
	}
}

func TestBuildResultCountsAndReveals(t *testing.T) {
	selB := model.OptionB
	selC := model.OptionC
	expl := "because"

	rows := []repository.AttemptQuestionRow{
		{Question: model.Question{ID: uuid.New(), CorrectOption: model.OptionB, Explanation: &expl}, QuestionOrder: 1, SelectedOption: &selB},
		{Question: model.Question{ID: uuid.New(), CorrectOption: model.OptionA}, QuestionOrder: 2, SelectedOption: &selC},
		{Question: model.Question{ID: uuid.New(), CorrectOption: model.OptionD}, QuestionOrder: 3},
	}
	attempt := &model.Attempt{ID: uuid.New(), TotalQuestions: 3}

	result := BuildResult(attempt, "Physics", rows)

	if result.CorrectCount != 1 {
		t.Fatalf("correct = %d, want 1", result.CorrectCount)
	}
	if result.Score != 33 {
		t.Fatalf("score = %d, want 33", result.Score)
	}
	if result.SubjectName != "Physics" {
		t.Fatalf("subject = %q", result.SubjectName)
	}

	if !result.Questions[0].IsCorrect {
		t.Fatalf("matching selection not marked correct")
	}
	if result.Questions[0].Explanation == nil || *result.Questions[0].Explanation != "because" {
		t.Fatalf("explanation not revealed on review")
	}
	if result.Questions[1].IsCorrect {
		t.Fatalf("mismatched selection marked correct")
	}
	if result.Questions[2].IsCorrect {
		t.Fatalf("blank marked correct")
	}
	if result.Questions[2].CorrectOption != model.OptionD {
		t.Fatalf("correct option not revealed for blank question")
	}
}

func TestBuildResultStableAcrossReads(t *testing.T) {
	sel := model.OptionA
	rows := []repository.AttemptQuestionRow{
		{Question: model.Question{ID: uuid.New(), CorrectOption: model.OptionA}, QuestionOrder: 1, SelectedOption: &sel},
		{Question: model.Question{ID: uuid.New(), CorrectOption: model.OptionB}, QuestionOrder: 2},
	}
	attempt := &model.Attempt{ID: uuid.New(), TotalQuestions: 2}

	first := BuildResult(attempt, "Chemistry", rows)
	second := BuildResult(attempt, "Chemistry", rows)

	if first.Score != second.Score || first.CorrectCount != second.CorrectCount {
		t.Fatalf("same inputs scored differently: %d/%d vs %d/%d",
			first.CorrectCount, first.Score, second.CorrectCount, second.Score)
	}
}
