package service

import (
	"github.com/opencbt/practice-backend/internal/model"
	"github.com/opencbt/practice-backend/internal/repository"
)

// BuildResult scores an attempt from its persisted snapshot and answers.
// Pure function of its inputs: the same rows always produce the same counts,
// so repeated result/review reads are stable. Correctness is judged against
// the question rows as loaded — an admin edit to correct_option after the
// attempt changes historical scores, which is accepted behavior (there is no
// correctness snapshot at submission time).
func BuildResult(attempt *model.Attempt, subjectName string, rows []repository.AttemptQuestionRow) *model.AttemptResult {
	questions := make([]model.ResultQuestion, len(rows))
	correct := 0

	for i, row := range rows {
		q := row.Question
		isCorrect := row.SelectedOption != nil && *row.SelectedOption == q.CorrectOption
		if isCorrect {
			correct++
		}

		questions[i] = model.ResultQuestion{
			ID:             q.ID,
			QuestionOrder:  row.QuestionOrder,
			QuestionText:   q.QuestionText,
			OptionA:        q.OptionA,
			OptionB:        q.OptionB,
			OptionC:        q.OptionC,
			OptionD:        q.OptionD,
			CorrectOption:  q.CorrectOption,
			Explanation:    q.Explanation,
			SelectedOption: row.SelectedOption,
			IsCorrect:      isCorrect,
		}
	}

	return &model.AttemptResult{
		Attempt:      attempt,
		SubjectName:  subjectName,
		CorrectCount: correct,
		Score:        percentage(correct, attempt.TotalQuestions),
		Questions:    questions,
	}
}

// percentage computes round-half-up percent. Half-up matches the original
// result screen, so 50% stays 50% and 87.5% becomes 88%.
func percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*100*2 + total) / (total * 2)
}
