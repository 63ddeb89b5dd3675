package proficiency

import (
	"errors"
	"time"

	"github.com/trezcool/kipimo/core/grading"
)

// Levels
const (
	LevelMastery       = "mastery"
	LevelSatisfactory  = "satisfactory"
	LevelDevelopmental = "developmental"

	MasteryThreshold      = 85.0
	SatisfactoryThreshold = 60.0
)

var Levels = []string{LevelMastery, LevelSatisfactory, LevelDevelopmental}

var (
	ErrNotFound         = errors.New("proficiency record not found")
	ErrNoMarksAttempted = errors.New("no marks attempted")
	ErrAlreadyApplied   = errors.New("pending update already applied")
)

// Classify maps a percentage to its mastery level. Lower bounds are inclusive.
func Classify(percentage float64) string {
	switch {
	case percentage >= MasteryThreshold:
		return LevelMastery
	case percentage >= SatisfactoryThreshold:
		return LevelSatisfactory
	default:
		return LevelDevelopmental
	}
}

type (
	Delta = grading.Delta

	Key struct {
		StudentID string `json:"student_id" db:"student_id"`
		OutcomeID string `json:"outcome_id" db:"outcome_id"`
	}

	// Record is a student's running total on one outcome.
	Record struct {
		Key
		MarksEarned    float64   `json:"marks_earned" db:"marks_earned"`
		MarksAttempted float64   `json:"marks_attempted" db:"marks_attempted"`
		Percentage     float64   `json:"percentage" db:"percentage"`
		Level          string    `json:"level" db:"level"`
		UpdatedAt      time.Time `json:"updated_at" db:"updated_at"` // UTC
	}

	// PendingUpdate is a delta waiting to be merged into a Record.
	// It is written together with its attempt and applied at most once.
	PendingUpdate struct {
		ID        string     `json:"id" db:"id"`
		AttemptID string     `json:"attempt_id" db:"attempt_id"`
		Key
		Earned    float64    `json:"earned" db:"earned"`
		Possible  float64    `json:"possible" db:"possible"`
		Tries     int        `json:"tries" db:"tries"`
		LastError string     `json:"last_error" db:"last_error"`
		CreatedAt time.Time  `json:"created_at" db:"created_at"`
		TriedAt   *time.Time `json:"tried_at" db:"tried_at"`
		AppliedAt *time.Time `json:"applied_at" db:"applied_at"`
	}

	// Change is the outcome of applying a PendingUpdate.
	Change struct {
		Before *Record
		After  Record
	}

	QueryFilter struct {
		StudentID string `query:"student_id"`
		OutcomeID string `query:"outcome_id"`
		Level     string `query:"level"`
	}

	// MergeFunc computes the next state of a record from its previous state (nil when absent).
	MergeFunc func(prev *Record) (Record, error)
)

func (u PendingUpdate) Delta() Delta {
	return Delta{Earned: u.Earned, Possible: u.Possible}
}

// Reached reports whether the change moved the record into `level`.
func (c Change) Reached(level string) bool {
	return c.After.Level == level && (c.Before == nil || c.Before.Level != level)
}

// Merge adds `d` to `prev` (nil when the student has no record for the outcome yet) and recomputes
// the derived fields. A zero delta leaves an existing record untouched.
func Merge(prev *Record, key Key, d Delta, now time.Time) (Record, error) {
	if prev != nil && d.IsZero() {
		return *prev, nil
	}

	rec := Record{Key: key}
	if prev != nil {
		rec.MarksEarned = prev.MarksEarned
		rec.MarksAttempted = prev.MarksAttempted
	}
	rec.MarksEarned += d.Earned
	rec.MarksAttempted += d.Possible
	if rec.MarksAttempted <= 0 {
		return Record{}, ErrNoMarksAttempted
	}

	rec.Percentage = 100 * rec.MarksEarned / rec.MarksAttempted
	rec.Level = Classify(rec.Percentage)
	rec.UpdatedAt = now.UTC()
	return rec, nil
}
