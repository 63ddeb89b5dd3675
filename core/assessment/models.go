package assessment

import (
	"time"

	"github.com/trezcool/kipimo/core/grading"
)

// Question types
const (
	TypeMultipleChoice = "multiple_choice"
	TypeShortAnswer    = "short_answer"
	TypeTrueFalse      = "true_false"
)

var QuestionTypes = []string{TypeMultipleChoice, TypeShortAnswer, TypeTrueFalse}

type (
	Assessment struct {
		ID              string     `json:"id" db:"id"`
		SubjectID       string     `json:"subject_id" db:"subject_id"`
		TeacherID       string     `json:"teacher_id" db:"teacher_id"`
		Title           string     `json:"title" db:"title"`
		TotalMarks      float64    `json:"total_marks" db:"total_marks"`
		IsPublished     bool       `json:"is_published" db:"is_published"`
		StartsAt        *time.Time `json:"starts_at" db:"starts_at"`
		EndsAt          *time.Time `json:"ends_at" db:"ends_at"`
		DurationMinutes *int       `json:"duration_minutes" db:"duration_minutes"`
		CreatedAt       time.Time  `json:"created_at" db:"created_at"` // UTC

		Questions []Question `json:"questions,omitempty" db:"-"`
	}

	Question struct {
		ID            string    `json:"id" db:"id"`
		AssessmentID  string    `json:"assessment_id" db:"assessment_id"`
		Text          string    `json:"text" db:"text"`
		Type          string    `json:"type" db:"type"`
		Options       []string  `json:"options" db:"-"`
		CorrectAnswer string    `json:"correct_answer,omitempty" db:"correct_answer"`
		MaxMarks      float64   `json:"max_marks" db:"max_marks"`
		Position      int       `json:"position" db:"position"`
		Mappings      []Mapping `json:"mappings,omitempty" db:"-"`
	}

	Mapping struct {
		QuestionID   string  `json:"question_id" db:"question_id"`
		OutcomeID    string  `json:"outcome_id" db:"outcome_id"`
		Contribution float64 `json:"contribution" db:"contribution"`
	}

	QueryFilter struct {
		SubjectID   string   `query:"subject_id"`
		TeacherID   string   `query:"teacher_id"`
		IsPublished *bool    `query:"-"`
		IDs         []string `query:"-"`
	}
)

// IsLive reports whether the assessment is time-boxed.
func (a Assessment) IsLive() bool {
	return a.StartsAt != nil || a.EndsAt != nil || a.DurationMinutes != nil
}

// Deadline returns when a session started at `startedAt` must be submitted, or nil when untimed.
func (a Assessment) Deadline(startedAt time.Time) *time.Time {
	var deadline *time.Time
	if a.DurationMinutes != nil {
		d := startedAt.Add(time.Duration(*a.DurationMinutes) * time.Minute)
		deadline = &d
	}
	if a.EndsAt != nil && (deadline == nil || a.EndsAt.Before(*deadline)) {
		end := *a.EndsAt
		deadline = &end
	}
	return deadline
}

// CheckOpen returns an error if a new session cannot start at `now`.
func (a Assessment) CheckOpen(now time.Time) error {
	switch {
	case !a.IsPublished:
		return ErrNotPublished
	case a.StartsAt != nil && now.Before(*a.StartsAt):
		return ErrNotStarted
	case a.EndsAt != nil && !now.Before(*a.EndsAt):
		return ErrEnded
	}
	return nil
}

// WithoutAnswers strips correct answers and outcome mappings, for students.
func (a Assessment) WithoutAnswers() Assessment {
	qs := make([]Question, len(a.Questions))
	for i, q := range a.Questions {
		q.CorrectAnswer = ""
		q.Mappings = nil
		qs[i] = q
	}
	a.Questions = qs
	return a
}

// ScoringQuestions converts questions into the grading view.
func ScoringQuestions(qs []Question) []grading.Question {
	out := make([]grading.Question, 0, len(qs))
	for _, q := range qs {
		gq := grading.Question{
			ID:            q.ID,
			CorrectAnswer: q.CorrectAnswer,
			MaxMarks:      q.MaxMarks,
			Mappings:      make([]grading.Mapping, 0, len(q.Mappings)),
		}
		for _, m := range q.Mappings {
			gq.Mappings = append(gq.Mappings, grading.Mapping{OutcomeID: m.OutcomeID, Contribution: m.Contribution})
		}
		out = append(out, gq)
	}
	return out
}
