package grading

import (
	"math"
	"strings"
)

// IsCorrect compares answers exactly, ignoring case and surrounding whitespace.
func IsCorrect(answer, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(correct))
}

// Allocate marks `answer` against `q` and splits the earned marks across the question's outcomes
// in proportion to each mapping's contribution. Correctness is all-or-nothing.
//
// A question whose max marks is not positive, or whose contributions are negative or do not add up
// to its max marks, yields an *AllocationError.
func Allocate(q Question, answer string) (Allocation, error) {
	alloc := Allocation{QuestionID: q.ID}
	if q.MaxMarks <= 0 || math.IsNaN(q.MaxMarks) || math.IsInf(q.MaxMarks, 0) {
		return alloc, &AllocationError{QuestionID: q.ID, Reason: "max marks must be positive"}
	}

	if len(q.Mappings) > 0 {
		var sum float64
		for _, m := range q.Mappings {
			if m.Contribution < 0 {
				return alloc, &AllocationError{QuestionID: q.ID, Reason: "negative contribution for outcome " + m.OutcomeID}
			}
			sum += m.Contribution
		}
		if math.Abs(sum-q.MaxMarks) > contributionTolerance {
			return alloc, &AllocationError{QuestionID: q.ID, Reason: "contributions do not add up to max marks"}
		}
	}

	alloc.Correct = IsCorrect(answer, q.CorrectAnswer)
	if alloc.Correct {
		alloc.Earned = q.MaxMarks
	}

	alloc.Shares = make([]OutcomeShare, 0, len(q.Mappings))
	for _, m := range q.Mappings {
		alloc.Shares = append(alloc.Shares, OutcomeShare{
			OutcomeID: m.OutcomeID,
			// multiply first: earned*c/M is exact for whole marks
			Earned:   alloc.Earned * m.Contribution / q.MaxMarks,
			Possible: m.Contribution,
		})
	}
	return alloc, nil
}
