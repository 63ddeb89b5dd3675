package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourMarkQuestion() Question {
	return Question{
		ID:            "q1",
		CorrectAnswer: "Paris",
		MaxMarks:      4,
		Mappings: []Mapping{
			{OutcomeID: "outcomeA", Contribution: 3},
			{OutcomeID: "outcomeB", Contribution: 1},
		},
	}
}

func TestIsCorrect(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		correct string
		want    bool
	}{
		{name: "exact", answer: "Paris", correct: "Paris", want: true},
		{name: "case insensitive", answer: "pARIS", correct: "Paris", want: true},
		{name: "surrounding whitespace", answer: "  Paris\n", correct: " Paris ", want: true},
		{name: "inner whitespace matters", answer: "Pa ris", correct: "Paris", want: false},
		{name: "no fuzzy matching", answer: "Pari", correct: "Paris", want: false},
		{name: "true/false", answer: "TRUE", correct: "true", want: true},
		{name: "empty answer", answer: "", correct: "Paris", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCorrect(tt.answer, tt.correct))
		})
	}
}

func TestAllocate_correctAnswer(t *testing.T) {
	alloc, err := Allocate(fourMarkQuestion(), "paris")
	require.NoError(t, err)

	assert.True(t, alloc.Correct)
	assert.Equal(t, 4.0, alloc.Earned)
	assert.Equal(t, []OutcomeShare{
		{OutcomeID: "outcomeA", Earned: 3, Possible: 3},
		{OutcomeID: "outcomeB", Earned: 1, Possible: 1},
	}, alloc.Shares)
}

func TestAllocate_wrongAnswer(t *testing.T) {
	alloc, err := Allocate(fourMarkQuestion(), "London")
	require.NoError(t, err)

	assert.False(t, alloc.Correct)
	assert.Equal(t, 0.0, alloc.Earned)
	assert.Equal(t, []OutcomeShare{
		{OutcomeID: "outcomeA", Earned: 0, Possible: 3},
		{OutcomeID: "outcomeB", Earned: 0, Possible: 1},
	}, alloc.Shares)
}

func TestAllocate_sharesAddUp(t *testing.T) {
	questions := []Question{
		fourMarkQuestion(),
		{ID: "q2", CorrectAnswer: "b", MaxMarks: 3, Mappings: []Mapping{{"o1", 1}, {"o2", 1}, {"o3", 1}}},
		{ID: "q3", CorrectAnswer: "b", MaxMarks: 7, Mappings: []Mapping{{"o1", 2}, {"o2", 5}}},
		{ID: "q4", CorrectAnswer: "b", MaxMarks: 10, Mappings: []Mapping{{"o1", 10}}},
		{ID: "q5", CorrectAnswer: "b", MaxMarks: 6, Mappings: []Mapping{{"o1", 1}, {"o2", 2}, {"o3", 3}}},
	}
	for _, q := range questions {
		for _, answer := range []string{"b", "Paris", "nope"} {
			alloc, err := Allocate(q, answer)
			require.NoError(t, err)

			var earned, possible float64
			for _, s := range alloc.Shares {
				earned += s.Earned
				possible += s.Possible
			}
			assert.Equal(t, q.MaxMarks, possible, "question %s: possible must add up to max marks", q.ID)
			assert.Equal(t, alloc.Earned, earned, "question %s: earned must add up to earned marks", q.ID)
		}
	}
}

func TestAllocate_noMappings(t *testing.T) {
	alloc, err := Allocate(Question{ID: "q1", CorrectAnswer: "a", MaxMarks: 2}, "a")
	require.NoError(t, err)
	assert.Equal(t, 2.0, alloc.Earned)
	assert.Empty(t, alloc.Shares)
}

func TestAllocate_errors(t *testing.T) {
	tests := []struct {
		name string
		q    Question
	}{
		{name: "zero max marks", q: Question{ID: "q1", CorrectAnswer: "a", MaxMarks: 0, Mappings: []Mapping{{"o1", 0}}}},
		{name: "negative max marks", q: Question{ID: "q1", CorrectAnswer: "a", MaxMarks: -2}},
		{name: "negative contribution", q: Question{ID: "q1", CorrectAnswer: "a", MaxMarks: 2, Mappings: []Mapping{{"o1", 3}, {"o2", -1}}}},
		{name: "contributions short", q: Question{ID: "q1", CorrectAnswer: "a", MaxMarks: 4, Mappings: []Mapping{{"o1", 3}}}},
		{name: "contributions over", q: Question{ID: "q1", CorrectAnswer: "a", MaxMarks: 4, Mappings: []Mapping{{"o1", 3}, {"o2", 2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Allocate(tt.q, "a")
			var aErr *AllocationError
			require.ErrorAs(t, err, &aErr)
			assert.Equal(t, "q1", aErr.QuestionID)
		})
	}
}
