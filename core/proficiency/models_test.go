package proficiency

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKey = Key{StudentID: "student-1", OutcomeID: "outcomeA"}
	t0      = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
)

func TestClassify(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{100, LevelMastery},
		{85, LevelMastery},
		{math.Nextafter(85, 0), LevelSatisfactory},
		{84.999, LevelSatisfactory},
		{60, LevelSatisfactory},
		{math.Nextafter(60, 0), LevelDevelopmental},
		{59.999, LevelDevelopmental},
		{0, LevelDevelopmental},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.percentage), "Classify(%v)", tt.percentage)
	}
}

func TestMerge_firstRecord(t *testing.T) {
	rec, err := Merge(nil, testKey, Delta{Earned: 3, Possible: 3}, t0)
	require.NoError(t, err)

	assert.Equal(t, Record{
		Key:            testKey,
		MarksEarned:    3,
		MarksAttempted: 3,
		Percentage:     100,
		Level:          LevelMastery,
		UpdatedAt:      t0,
	}, rec)
}

func TestMerge_existingRecord(t *testing.T) {
	prev := &Record{Key: testKey, MarksEarned: 40, MarksAttempted: 50, Percentage: 80, Level: LevelSatisfactory, UpdatedAt: t0}

	rec, err := Merge(prev, testKey, Delta{Earned: 10, Possible: 10}, t0.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 50.0, rec.MarksEarned)
	assert.Equal(t, 60.0, rec.MarksAttempted)
	assert.InDelta(t, 83.33, rec.Percentage, 0.01)
	assert.Equal(t, LevelSatisfactory, rec.Level)
	assert.Equal(t, t0.Add(time.Hour), rec.UpdatedAt)
}

func TestMerge_zeroDeltaLeavesRecordUnchanged(t *testing.T) {
	prev := Record{Key: testKey, MarksEarned: 7, MarksAttempted: 9, Percentage: 100 * 7.0 / 9, Level: LevelSatisfactory, UpdatedAt: t0}

	once, err := Merge(&prev, testKey, Delta{}, t0.Add(time.Hour))
	require.NoError(t, err)
	twice, err := Merge(&once, testKey, Delta{}, t0.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, prev, once)
	assert.Equal(t, prev, twice)
}

func TestMerge_nothingAttempted(t *testing.T) {
	_, err := Merge(nil, testKey, Delta{}, t0)
	assert.Equal(t, ErrNoMarksAttempted, err)

	_, err = Merge(nil, testKey, Delta{Earned: 0, Possible: 0}, t0)
	assert.Equal(t, ErrNoMarksAttempted, err)
}

func TestMerge_orderIndependent(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	deltas := make([]Delta, 0, 20)
	var earned, possible float64
	for i := 0; i < 20; i++ {
		p := float64(rnd.Intn(5) + 1)
		e := float64(rnd.Intn(int(p) + 1))
		deltas = append(deltas, Delta{Earned: e, Possible: p})
		earned += e
		possible += p
	}
	want := 100 * earned / possible

	for run := 0; run < 5; run++ {
		rnd.Shuffle(len(deltas), func(i, j int) { deltas[i], deltas[j] = deltas[j], deltas[i] })

		var rec *Record
		for _, d := range deltas {
			next, err := Merge(rec, testKey, d, t0)
			require.NoError(t, err)
			rec = &next
		}
		assert.Equal(t, earned, rec.MarksEarned)
		assert.Equal(t, possible, rec.MarksAttempted)
		assert.InDelta(t, want, rec.Percentage, 1e-9)
		assert.Equal(t, Classify(want), rec.Level)
	}
}

func TestChange_Reached(t *testing.T) {
	mastery := Record{Level: LevelMastery}
	satisfactory := Record{Level: LevelSatisfactory}

	assert.True(t, Change{Before: nil, After: mastery}.Reached(LevelMastery))
	assert.True(t, Change{Before: &satisfactory, After: mastery}.Reached(LevelMastery))
	assert.False(t, Change{Before: &mastery, After: mastery}.Reached(LevelMastery))
	assert.False(t, Change{Before: &mastery, After: satisfactory}.Reached(LevelMastery))
}
