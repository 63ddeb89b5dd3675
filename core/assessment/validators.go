package assessment

import (
	"fmt"
	"math"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kipimo/core"
)

var (
	qtypeTag  = "qtype"
	qtypeText = "invalid question type"

	contributionTolerance = 1e-9
)

// RegisterValidators registers the assessment validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(qtypeTag, func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		for _, qt := range QuestionTypes {
			if t == qt {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, qtypeTag, qtypeText)
}

type (
	// NewAssessment contains information needed to author a new Assessment.
	NewAssessment struct {
		SubjectID       string        `json:"subject_id" validate:"required"`
		Title           string        `json:"title" validate:"required,max=200"`
		IsPublished     *bool         `json:"is_published"`
		StartsAt        *time.Time    `json:"starts_at"`
		EndsAt          *time.Time    `json:"ends_at"`
		DurationMinutes *int          `json:"duration_minutes" validate:"omitempty,min=1"`
		Questions       []NewQuestion `json:"questions" validate:"required,min=1,dive"`
	}

	NewQuestion struct {
		Text          string       `json:"text" validate:"required"`
		Type          string       `json:"type" validate:"required,qtype"`
		Options       []string     `json:"options"`
		CorrectAnswer string       `json:"correct_answer" validate:"required"`
		MaxMarks      float64      `json:"max_marks" validate:"gt=0"`
		Mappings      []NewMapping `json:"mappings" validate:"dive"`
	}

	NewMapping struct {
		OutcomeID    string  `json:"outcome_id" validate:"required"`
		Contribution float64 `json:"contribution" validate:"gt=0"`
	}
)

// Validate cleans `na`, then checks its fields and the marks of every question.
// Outcome ownership is checked by the Service.
func (na *NewAssessment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	for i := range na.Questions {
		q := &na.Questions[i]
		q.Text = core.CleanString(q.Text)
		q.Type = core.CleanString(q.Type, true /* lower */)
		q.CorrectAnswer = core.CleanString(q.CorrectAnswer)
		for j := range q.Options {
			q.Options[j] = core.CleanString(q.Options[j])
		}
	}

	if err := validate.Struct(na); err != nil {
		return err
	}

	var fldErrs []core.FieldError
	if na.StartsAt != nil && na.EndsAt != nil && !na.EndsAt.After(*na.StartsAt) {
		fldErrs = append(fldErrs, core.FieldError{Field: "ends_at", Error: "must be after starts_at"})
	}
	for i, q := range na.Questions {
		prefix := fmt.Sprintf("questions[%d]", i)
		switch q.Type {
		case TypeMultipleChoice:
			if len(q.Options) < 2 {
				fldErrs = append(fldErrs, core.FieldError{Field: prefix + ".options", Error: "at least 2 options are required"})
			} else if !hasOption(q.Options, q.CorrectAnswer) {
				fldErrs = append(fldErrs, core.FieldError{Field: prefix + ".correct_answer", Error: "must be one of the options"})
			}
		case TypeTrueFalse:
			if a := core.CleanString(q.CorrectAnswer, true /* lower */); a != "true" && a != "false" {
				fldErrs = append(fldErrs, core.FieldError{Field: prefix + ".correct_answer", Error: "must be true or false"})
			}
		}

		if len(q.Mappings) > 0 {
			seen := make(map[string]bool, len(q.Mappings))
			var sum float64
			for _, m := range q.Mappings {
				if seen[m.OutcomeID] {
					fldErrs = append(fldErrs, core.FieldError{Field: prefix + ".mappings", Error: "outcome " + m.OutcomeID + " is mapped twice"})
				}
				seen[m.OutcomeID] = true
				sum += m.Contribution
			}
			if math.Abs(sum-q.MaxMarks) > contributionTolerance {
				fldErrs = append(fldErrs, core.FieldError{
					Field: prefix + ".mappings",
					Error: fmt.Sprintf("mark contributions (%g) must add up to max marks (%g)", sum, q.MaxMarks),
				})
			}
		}
	}

	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// OutcomeIDs returns the distinct outcomes referenced by the mappings.
func (na NewAssessment) OutcomeIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, q := range na.Questions {
		for _, m := range q.Mappings {
			if !seen[m.OutcomeID] {
				seen[m.OutcomeID] = true
				ids = append(ids, m.OutcomeID)
			}
		}
	}
	return ids
}

func hasOption(options []string, answer string) bool {
	for _, o := range options {
		if core.CleanString(o, true /* lower */) == core.CleanString(answer, true /* lower */) {
			return true
		}
	}
	return false
}
