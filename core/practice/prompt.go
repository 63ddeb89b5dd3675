package practice

import (
	"fmt"
	"strconv"

	"github.com/trezcool/kipimo/services/llm"
)

const systemPrompt = `You are an educational AI tutor specializing in creating personalized practice materials.
Your responses must be in valid JSON format only, with no additional text.
Create questions that are age-appropriate for school students and aligned with learning outcomes.`

func userPrompt(req Request, lvl level) string {
	return fmt.Sprintf(`The student has a %s%% mastery in %q.
Generate %d %s-level multiple-choice questions with immediate explanatory feedback for wrong answers.

Return ONLY a valid JSON object in this exact format:
{
  "questions": [
    {
      "id": 1,
      "question": "Question text here",
      "options": ["A) Option 1", "B) Option 2", "C) Option 3", "D) Option 4"],
      "correctAnswer": "A",
      "explanation": "Explanation for the correct answer",
      "wrongAnswerFeedback": {
        "B": "Why B is wrong and hint to correct answer",
        "C": "Why C is wrong and hint to correct answer",
        "D": "Why D is wrong and hint to correct answer"
      },
      "difficulty": "%s",
      "estimatedTime": "2 min"
    }
  ],
  "contentType": "%s",
  "totalEstimatedTime": "10 min"
}`,
		strconv.FormatFloat(*req.MasteryPercentage, 'f', -1, 64),
		req.OutcomeName,
		req.QuestionCount,
		lvl.difficulty,
		lvl.difficulty,
		lvl.contentType,
	)
}

var letters = []any{"A", "B", "C", "D"}

var setSchema = &llm.Schema{
	Name:        "practice-set",
	Description: "A set of multiple-choice practice questions with feedback",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"questions", "contentType", "totalEstimatedTime"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"required": []any{
						"id", "question", "options", "correctAnswer", "explanation",
						"wrongAnswerFeedback", "difficulty", "estimatedTime",
					},
					"properties": map[string]any{
						"id":       map[string]any{"type": "integer"},
						"question": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":     "array",
							"minItems": 4,
							"maxItems": 4,
							"items":    map[string]any{"type": "string"},
						},
						"correctAnswer": map[string]any{"type": "string", "enum": letters},
						"explanation":   map[string]any{"type": "string"},
						"wrongAnswerFeedback": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"A": map[string]any{"type": "string"},
								"B": map[string]any{"type": "string"},
								"C": map[string]any{"type": "string"},
								"D": map[string]any{"type": "string"},
							},
						},
						"difficulty": map[string]any{
							"type": "string",
							"enum": []any{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced},
						},
						"estimatedTime": map[string]any{"type": "string"},
					},
				},
			},
			"contentType":        map[string]any{"type": "string"},
			"totalEstimatedTime": map[string]any{"type": "string"},
		},
	},
}
