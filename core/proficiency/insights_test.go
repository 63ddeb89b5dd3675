package proficiency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, ContentChallenge, ContentTypeFor(85))
	assert.Equal(t, ContentReinforcement, ContentTypeFor(84.9))
	assert.Equal(t, ContentReinforcement, ContentTypeFor(60))
	assert.Equal(t, ContentFoundational, ContentTypeFor(59.9))
}

func TestBadgeFor(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{100, BadgeGold},
		{95, BadgeGold},
		{94.9, BadgeSilver},
		{90, BadgeSilver},
		{89.9, BadgeBronze},
		{85, BadgeBronze},
		{84.9, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BadgeFor(tt.percentage), "BadgeFor(%v)", tt.percentage)
	}
}

func TestBuildInsights(t *testing.T) {
	records := []Record{
		{Key: Key{StudentID: "s1", OutcomeID: "o-mastery"}, Percentage: 92, Level: LevelMastery, UpdatedAt: t0},
		{Key: Key{StudentID: "s1", OutcomeID: "o-dev"}, Percentage: 40, Level: LevelDevelopmental, UpdatedAt: t0},
		{Key: Key{StudentID: "s1", OutcomeID: "o-sat"}, Percentage: 70, Level: LevelSatisfactory, UpdatedAt: t0},
		{Key: Key{StudentID: "s1", OutcomeID: "o-unknown"}, Percentage: 65, Level: LevelSatisfactory, UpdatedAt: t0},
	}
	labels := map[string]Label{
		"o-mastery": {Outcome: "Fractions", Subject: "Maths"},
		"o-dev":     {Outcome: "Decimals", Subject: "Maths"},
		"o-sat":     {Outcome: "Cells", Subject: "Biology"},
	}

	ins := BuildInsights(records, labels)

	require.Len(t, ins.Recommendations, 4)
	gotOrder := make([]string, 0, 4)
	for _, r := range ins.Recommendations {
		gotOrder = append(gotOrder, r.OutcomeID)
	}
	assert.Equal(t, []string{"o-dev", "o-sat", "o-unknown", "o-mastery"}, gotOrder)

	dev := ins.Recommendations[0]
	assert.Equal(t, ContentFoundational, dev.ContentType)
	assert.Equal(t, "Back to Basics", dev.Label)
	assert.Equal(t, 3, dev.Priority)
	assert.Equal(t, "Decimals", dev.OutcomeName)
	assert.Equal(t, "Unknown outcome", ins.Recommendations[2].OutcomeName)

	assert.Equal(t, []Badge{{OutcomeID: "o-mastery", OutcomeName: "Fractions", Type: BadgeSilver, AchievedAt: t0}}, ins.Badges)
	assert.Equal(t, Stats{Mastery: 1, Satisfactory: 2, Developmental: 1, AverageScore: 67}, ins.Stats)
}

func TestBuildInsights_empty(t *testing.T) {
	ins := BuildInsights(nil, nil)
	assert.Empty(t, ins.Recommendations)
	assert.Empty(t, ins.Badges)
	assert.Equal(t, Stats{}, ins.Stats)
}
