// Package outcome holds subjects and their student learning outcomes.
package outcome

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kipimo/core"
)

const DefaultTargetProficiency = 80.0

type (
	Subject struct {
		ID          string    `json:"id" db:"id"`
		TeacherID   string    `json:"teacher_id" db:"teacher_id"`
		Name        string    `json:"name" db:"name"`
		Description string    `json:"description" db:"description"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	}

	Outcome struct {
		ID                string    `json:"id" db:"id"`
		SubjectID         string    `json:"subject_id" db:"subject_id"`
		Description       string    `json:"description" db:"description"`
		TargetProficiency float64   `json:"target_proficiency" db:"target_proficiency"`
		CreatedAt         time.Time `json:"created_at" db:"created_at"` // UTC
	}

	NewSubject struct {
		Name        string `json:"name" validate:"required,max=200"`
		Description string `json:"description"`
	}

	NewOutcome struct {
		Description       string   `json:"description" validate:"required"`
		TargetProficiency *float64 `json:"target_proficiency" validate:"omitempty,min=0,max=100"`
	}

	SubjectFilter struct {
		TeacherID string   `query:"teacher_id"`
		IDs       []string `query:"id"`
	}

	OutcomeFilter struct {
		SubjectID string   `query:"subject_id"`
		IDs       []string `query:"id"`
	}
)

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}

func (no *NewOutcome) Validate(validate *validator.Validate) error {
	no.Description = core.CleanString(no.Description)
	return validate.Struct(no)
}
