// Package report builds and archives student progress reports.
package report

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/proficiency"
	"github.com/trezcool/kipimo/core/profile"
)

type (
	// Report is an archived snapshot of a student's progress.
	Report struct {
		ID          string    `json:"id" db:"id"`
		StudentID   string    `json:"student_id" db:"student_id"`
		GeneratedBy string    `json:"generated_by" db:"generated_by"`
		Path        string    `json:"report_path" db:"report_path"`
		Data        Data      `json:"report_data" db:"report_data"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	}

	Data struct {
		Student     profile.Profile  `json:"student"`
		Attempts    []AttemptRow     `json:"attempts"`
		Performance []PerformanceRow `json:"sloPerformance"`
		Statistics  Statistics       `json:"statistics"`
		GeneratedAt time.Time        `json:"generatedAt"`
	}

	AttemptRow struct {
		attempt.Attempt
		AssessmentTitle string `json:"assessment_title"`
		SubjectName     string `json:"subject_name"`
	}

	PerformanceRow struct {
		proficiency.Record
		OutcomeDescription string  `json:"outcome_description"`
		TargetProficiency  float64 `json:"target_proficiency"`
		SubjectName        string  `json:"subject_name"`
	}

	Statistics struct {
		TotalAttempts      int            `json:"totalAttempts"`
		TotalMarksEarned   float64        `json:"totalMarksEarned"`
		TotalMarksPossible float64        `json:"totalMarksPossible"`
		AveragePercentage  string         `json:"averagePercentage"` // one decimal
		ProficiencyCounts  map[string]int `json:"proficiencyCounts"`
	}
)

// ReportPath is where a report generated at `at` is archived.
func ReportPath(studentID string, at time.Time) string {
	return fmt.Sprintf("%s/report_%d.json", studentID, at.UnixMilli())
}

func computeStatistics(attempts []AttemptRow, perf []PerformanceRow) Statistics {
	stats := Statistics{
		TotalAttempts:     len(attempts),
		AveragePercentage: "0.0",
		ProficiencyCounts: make(map[string]int),
	}
	for _, a := range attempts {
		stats.TotalMarksEarned += a.RawScore
		stats.TotalMarksPossible += a.TotalPossible
	}
	if stats.TotalMarksPossible > 0 {
		stats.AveragePercentage = fmt.Sprintf("%.1f", stats.TotalMarksEarned/stats.TotalMarksPossible*100)
	}
	for _, p := range perf {
		stats.ProficiencyCounts[p.Level]++
	}
	return stats
}

func (d Data) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *Data) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return errors.Errorf("cannot scan %T into report data", src)
	}
}
