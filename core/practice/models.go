// Package practice generates AI practice questions for an outcome, pitched at the student's mastery.
package practice

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kipimo/core"
)

const (
	DefaultQuestionCount = 5
	MaxQuestionCount     = 10
)

// Difficulties
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

type (
	Request struct {
		OutcomeName       string   `json:"outcomeName" validate:"required,max=500"`
		MasteryPercentage *float64 `json:"masteryPercentage" validate:"required,min=0,max=100"`
		QuestionCount     int      `json:"questionCount" validate:"omitempty,min=1,max=10"`
	}

	Question struct {
		ID                  int               `json:"id"`
		Question            string            `json:"question"`
		Options             []string          `json:"options"`
		CorrectAnswer       string            `json:"correctAnswer"`
		Explanation         string            `json:"explanation"`
		WrongAnswerFeedback map[string]string `json:"wrongAnswerFeedback"`
		Difficulty          string            `json:"difficulty"`
		EstimatedTime       string            `json:"estimatedTime"`
	}

	Set struct {
		Questions          []Question `json:"questions"`
		ContentType        string     `json:"contentType"`
		TotalEstimatedTime string     `json:"totalEstimatedTime"`
	}

	// level is the pitch of a practice set.
	level struct {
		difficulty  string
		contentType string
	}
)

func (r *Request) Validate(validate *validator.Validate) error {
	r.OutcomeName = core.CleanString(r.OutcomeName)
	if r.QuestionCount == 0 {
		r.QuestionCount = DefaultQuestionCount
	}
	return validate.Struct(r)
}

func levelFor(mastery float64) level {
	switch {
	case mastery >= 85:
		return level{DifficultyAdvanced, "Challenge Mode - critical thinking and application questions"}
	case mastery >= 60:
		return level{DifficultyIntermediate, "Reinforcement - standard practice questions"}
	default:
		return level{DifficultyBeginner, "Foundational - step-by-step guided questions with detailed explanations"}
	}
}
