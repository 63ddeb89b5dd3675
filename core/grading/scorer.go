package grading

import "strings"

type (
	ScoreInput struct {
		Questions  []Question        // in assessment order
		Answers    map[string]string // question ID -> answer
		TotalMarks float64
		// Auto marks a time-expiry submission: unanswered questions score zero instead of failing.
		Auto bool
	}

	QuestionResult struct {
		QuestionID string  `json:"question_id"`
		Answered   bool    `json:"answered"`
		Correct    bool    `json:"correct"`
		Earned     float64 `json:"earned"`
		MaxMarks   float64 `json:"max_marks"`
	}

	Result struct {
		RawScore      float64
		TotalPossible float64
		Questions     []QuestionResult
		Outcomes      map[string]Delta // outcome ID -> accumulated delta
		// Skipped holds questions whose marks counted towards RawScore but not towards any outcome.
		Skipped []*AllocationError
	}
)

// Answered reports whether `answers` holds a non-blank answer for `questionID`.
func Answered(answers map[string]string, questionID string) bool {
	a, ok := answers[questionID]
	return ok && strings.TrimSpace(a) != ""
}

// Missing returns the IDs of the questions without an answer.
func Missing(questions []Question, answers map[string]string) []string {
	var missing []string
	for _, q := range questions {
		if !Answered(answers, q.ID) {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// Score marks every question and accumulates the per-outcome deltas.
// Unless in.Auto is set, an unanswered question fails the whole submission with *IncompleteSubmissionError.
func Score(in ScoreInput) (Result, error) {
	if !in.Auto {
		if missing := Missing(in.Questions, in.Answers); len(missing) > 0 {
			return Result{}, newIncompleteSubmissionError(missing)
		}
	}

	res := Result{
		TotalPossible: in.TotalMarks,
		Questions:     make([]QuestionResult, 0, len(in.Questions)),
		Outcomes:      make(map[string]Delta),
	}
	for _, q := range in.Questions {
		answer := in.Answers[q.ID]
		qr := QuestionResult{QuestionID: q.ID, Answered: Answered(in.Answers, q.ID), MaxMarks: q.MaxMarks}

		alloc, err := Allocate(q, answer)
		if err != nil {
			aErr, _ := err.(*AllocationError)
			res.Skipped = append(res.Skipped, aErr)
			// the answer still counts towards the raw score when the marks themselves are sane
			if q.MaxMarks > 0 && IsCorrect(answer, q.CorrectAnswer) {
				qr.Correct = true
				qr.Earned = q.MaxMarks
			}
		} else {
			qr.Correct = alloc.Correct
			qr.Earned = alloc.Earned
			for _, s := range alloc.Shares {
				res.Outcomes[s.OutcomeID] = res.Outcomes[s.OutcomeID].Add(Delta{Earned: s.Earned, Possible: s.Possible})
			}
		}
		if !qr.Answered {
			qr.Correct = false
			qr.Earned = 0
		}

		res.RawScore += qr.Earned
		res.Questions = append(res.Questions, qr)
	}
	return res, nil
}
