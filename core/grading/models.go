// Package grading turns submitted answers into marks and per-outcome deltas.
// Everything here is pure: no I/O, no clock.
package grading

import (
	"fmt"
	"sort"
	"strings"
)

// contributionTolerance absorbs float noise when comparing mapping sums to max marks.
const contributionTolerance = 1e-9

type (
	// Question is the scoring view of an assessment question.
	Question struct {
		ID            string
		CorrectAnswer string
		MaxMarks      float64
		Mappings      []Mapping
	}

	// Mapping assigns part of a question's marks to an outcome.
	Mapping struct {
		OutcomeID    string
		Contribution float64
	}

	// OutcomeShare is the part of a question's result attributed to one outcome.
	OutcomeShare struct {
		OutcomeID string
		Earned    float64
		Possible  float64
	}

	// Allocation is the result of marking one answer.
	Allocation struct {
		QuestionID string
		Correct    bool
		Earned     float64
		Shares     []OutcomeShare
	}

	// Delta is an additive change to a student's standing on one outcome.
	Delta struct {
		Earned   float64 `json:"earned"`
		Possible float64 `json:"possible"`
	}
)

func (d Delta) Add(o Delta) Delta {
	return Delta{Earned: d.Earned + o.Earned, Possible: d.Possible + o.Possible}
}

func (d Delta) IsZero() bool { return d.Earned == 0 && d.Possible == 0 }

// AllocationError reports a question whose marks cannot be split across its outcomes.
type AllocationError struct {
	QuestionID string
	Reason     string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocating marks for question %s: %s", e.QuestionID, e.Reason)
}

// IncompleteSubmissionError lists the questions left unanswered on a manual submission.
type IncompleteSubmissionError struct {
	Missing []string
}

func (e *IncompleteSubmissionError) Error() string {
	return fmt.Sprintf("incomplete submission: %d unanswered question(s): %s", len(e.Missing), strings.Join(e.Missing, ", "))
}

func newIncompleteSubmissionError(missing []string) *IncompleteSubmissionError {
	sort.Strings(missing)
	return &IncompleteSubmissionError{Missing: missing}
}
