package sqlxrepos

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/proficiency"
	"github.com/trezcool/kipimo/core/profile"
	"github.com/trezcool/kipimo/storage/database"
	"github.com/trezcool/kipimo/testutil"
)

// openTestDB connects to the Postgres database named by KIPIMO_TEST_DATABASE_URL and migrates it.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("KIPIMO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("KIPIMO_TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db.DB))
	return db
}

type draftFixture struct {
	attempts  *attemptRepository
	records   *proficiencyRepository
	session   attempt.Session
	outcomeID string
}

// openDraft stores a student, an outcome and an open session on a fresh assessment.
func openDraft(t *testing.T, db *sqlx.DB) draftFixture {
	t.Helper()
	profiles := NewProfileRepository(db)
	outcomes := NewOutcomeRepository(db)
	suffix := uuid.NewString()[:8]

	teacher := testutil.CreateProfile(t, profiles, "Teacher", "teacher-"+suffix+"@kipimo.io", profile.RoleTeacher)
	student := testutil.CreateProfile(t, profiles, "Student", "student-"+suffix+"@kipimo.io", profile.RoleStudent)
	subject := testutil.CreateSubject(t, outcomes, teacher.ID, "Biology "+suffix)
	o := testutil.CreateOutcome(t, outcomes, subject.ID, "Label a cell")
	a := testutil.CreateAssessment(t, NewAssessmentRepository(db), subject, "Cells", nil)

	fx := draftFixture{
		attempts:  NewAttemptRepository(db),
		records:   NewProficiencyRepository(db),
		outcomeID: o.ID,
	}
	now := time.Now().UTC()
	s, err := fx.attempts.CreateSession(context.Background(), attempt.Session{
		ID:           uuid.NewString(),
		AssessmentID: a.ID,
		StudentID:    student.ID,
		StartedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	// read back, timestamps are stored with microsecond precision
	fx.session, err = fx.attempts.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	return fx
}

func (fx draftFixture) newAttempt() attempt.Attempt {
	return attempt.Attempt{
		ID:            uuid.NewString(),
		SessionID:     fx.session.ID,
		StudentID:     fx.session.StudentID,
		AssessmentID:  fx.session.AssessmentID,
		Answers:       attempt.Answers{},
		Breakdown:     attempt.Breakdown{},
		TotalPossible: 4,
		Status:        attempt.StatusSubmitted,
		SubmittedAt:   time.Now().UTC(),
	}
}

func TestAttemptRepository_CreateAttempt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t.Run("stale draft version", func(t *testing.T) {
		fx := openDraft(t, db)
		_, err := fx.attempts.SaveDraft(ctx, fx.session.ID, attempt.Answers{"q1": "chlorophyll"}, fx.session.UpdatedAt.Add(time.Second))
		require.NoError(t, err)

		_, err = fx.attempts.CreateAttempt(ctx, fx.newAttempt(), fx.session.UpdatedAt, nil)
		assert.Equal(t, attempt.ErrDraftChanged, errors.Cause(err))

		s, err := fx.attempts.GetSession(ctx, fx.session.ID)
		require.NoError(t, err)
		assert.True(t, s.IsDraft())
	})

	t.Run("submitted twice", func(t *testing.T) {
		fx := openDraft(t, db)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = fx.attempts.CreateAttempt(ctx, fx.newAttempt(), fx.session.UpdatedAt, nil)
			}(i)
		}
		wg.Wait()

		var won int
		for _, err := range errs {
			if err == nil {
				won++
				continue
			}
			assert.Equal(t, attempt.ErrAlreadySubmitted, errors.Cause(err))
		}
		assert.Equal(t, 1, won)

		atts, err := fx.attempts.QueryAttempts(ctx, attempt.QueryFilter{StudentID: fx.session.StudentID})
		require.NoError(t, err)
		assert.Len(t, atts, 1)
	})
}

func TestProficiencyRepository_Apply_concurrent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fx := openDraft(t, db)

	key := proficiency.Key{StudentID: fx.session.StudentID, OutcomeID: fx.outcomeID}
	att := fx.newAttempt()
	updates := make([]proficiency.PendingUpdate, 10)
	for i := range updates {
		updates[i] = proficiency.PendingUpdate{
			ID:        uuid.NewString(),
			AttemptID: att.ID,
			Key:       key,
			Earned:    float64(i % 3),
			Possible:  2,
			CreatedAt: att.SubmittedAt,
		}
	}
	_, err := fx.attempts.CreateAttempt(ctx, att, fx.session.UpdatedAt, updates)
	require.NoError(t, err)

	apply := func(upd proficiency.PendingUpdate) error {
		_, err := fx.records.Apply(ctx, upd, func(prev *proficiency.Record) (proficiency.Record, error) {
			return proficiency.Merge(prev, upd.Key, proficiency.Delta{Earned: upd.Earned, Possible: upd.Possible}, time.Now())
		})
		return err
	}

	var wg sync.WaitGroup
	errs := make([]error, len(updates))
	for i, upd := range updates {
		wg.Add(1)
		go func(i int, upd proficiency.PendingUpdate) {
			defer wg.Done()
			errs[i] = apply(upd)
		}(i, upd)
	}
	wg.Wait()

	var earned, possible float64
	for i, upd := range updates {
		require.NoError(t, errs[i])
		earned += upd.Earned
		possible += upd.Possible
	}

	rec, err := fx.records.GetRecord(ctx, key)
	require.NoError(t, err)
	assert.InDelta(t, earned, rec.MarksEarned, 1e-9)
	assert.InDelta(t, possible, rec.MarksAttempted, 1e-9)

	assert.Equal(t, proficiency.ErrAlreadyApplied, errors.Cause(apply(updates[0])))
	n, err := fx.records.CountPendingUpdates(ctx, att.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
