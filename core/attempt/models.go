package attempt

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core/grading"
	"github.com/trezcool/kipimo/core/proficiency"
)

// Attempt statuses
const (
	StatusSubmitted  = "submitted"  // scored and stored; some outcome updates may still be pending
	StatusAggregated = "aggregated" // every outcome update applied
)

// Submission reasons
const (
	ReasonManual  = "manual"
	ReasonExpired = "expired"
)

type (
	// Answers maps question IDs to submitted answers.
	Answers map[string]string

	// Breakdown maps outcome IDs to what this single attempt earned on them.
	Breakdown map[string]grading.Delta

	Attempt struct {
		ID            string     `json:"id" db:"id"`
		SessionID     string     `json:"session_id" db:"session_id"`
		StudentID     string     `json:"student_id" db:"student_id"`
		AssessmentID  string     `json:"assessment_id" db:"assessment_id"`
		Answers       Answers    `json:"answers" db:"answers"`
		RawScore      float64    `json:"raw_score" db:"raw_score"`
		TotalPossible float64    `json:"total_possible" db:"total_possible"`
		Breakdown     Breakdown  `json:"breakdown" db:"breakdown"`
		AutoSubmitted bool       `json:"auto_submitted" db:"auto_submitted"`
		Status        string     `json:"status" db:"status"`
		SubmittedAt   time.Time  `json:"submitted_at" db:"submitted_at"`     // UTC
		AggregatedAt  *time.Time `json:"aggregated_at" db:"aggregated_at"` // UTC
	}

	// Session is an attempt in progress (the draft state).
	Session struct {
		ID           string     `json:"id" db:"id"`
		AssessmentID string     `json:"assessment_id" db:"assessment_id"`
		StudentID    string     `json:"student_id" db:"student_id"`
		Answers      Answers    `json:"answers" db:"answers"`
		StartedAt    time.Time  `json:"started_at" db:"started_at"`
		UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
		Deadline     *time.Time `json:"deadline" db:"deadline"`
		SubmittedAt  *time.Time `json:"submitted_at" db:"submitted_at"`
		AttemptID    *string    `json:"attempt_id" db:"attempt_id"`
	}

	SubmitRequest struct {
		SessionID string
		StudentID string
		Answers   Answers
		Reason    string
	}

	// Submission is what a successful Submit returns.
	Submission struct {
		Attempt   Attempt                  `json:"attempt"`
		Questions []grading.QuestionResult `json:"questions"`
		Records   []proficiency.Record     `json:"records"`
		// Pending counts outcome updates left for the reconciler.
		Pending int `json:"pending"`
	}

	QueryFilter struct {
		StudentID    string    `query:"student_id"`
		AssessmentID string    `query:"assessment_id"`
		Status       string    `query:"status"`
		From         time.Time `query:"-"` // bound by hand: RFC 3339
		To           time.Time `query:"-"`
	}

	ReconcileResult struct {
		Applied    int `json:"applied"`
		Failed     int `json:"failed"`
		Aggregated int `json:"aggregated"`
	}

	ExpiryResult struct {
		Submitted int `json:"submitted"`
		Failed    int `json:"failed"`
	}
)

// IsDraft reports whether answers can still be saved.
func (s Session) IsDraft() bool { return s.SubmittedAt == nil }

// Expired reports whether the session deadline has passed at `now`.
func (s Session) Expired(now time.Time) bool {
	return s.Deadline != nil && now.After(*s.Deadline)
}

// Merge returns a copy of `a` overlaid with the non-blank answers of `b`.
func (a Answers) Merge(b Answers) Answers {
	out := make(Answers, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func (a Answers) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a)
}

func (a *Answers) Scan(src interface{}) error {
	return scanJSON(src, a)
}

func (b Breakdown) Value() (driver.Value, error) {
	if b == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(b)
}

func (b *Breakdown) Scan(src interface{}) error {
	return scanJSON(src, b)
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return errors.Errorf("cannot scan %T into %T", src, dest)
	}
}
