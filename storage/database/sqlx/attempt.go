package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/proficiency"
)

const (
	sessionColumns = "id, assessment_id, student_id, answers, started_at, updated_at, deadline, submitted_at, attempt_id"
	attemptColumns = "id, session_id, student_id, assessment_id, answers, raw_score, total_possible, breakdown, " +
		"auto_submitted, status, submitted_at, aggregated_at"
)

var attemptOrderingFields = []string{"submitted_at", "raw_score"}

type attemptRepository struct {
	db core.DB
}

var _ attempt.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository(db core.DB) *attemptRepository {
	return &attemptRepository{db: db}
}

func (repo *attemptRepository) CreateSession(ctx context.Context, s attempt.Session) (attempt.Session, error) {
	if s.Answers == nil {
		s.Answers = attempt.Answers{}
	}
	q := `INSERT INTO test_sessions (` + sessionColumns + `)
		VALUES (:id, :assessment_id, :student_id, :answers, :started_at, :updated_at, :deadline, :submitted_at, :attempt_id)`
	if _, err := repo.db.NamedExecContext(ctx, q, s); err != nil {
		if pqCode(err) == pqUniqueViolation {
			// lost the race to open the draft; resume the winner's
			return repo.FindDraftSession(ctx, s.StudentID, s.AssessmentID)
		}
		return attempt.Session{}, errors.Wrap(err, "inserting session")
	}
	return s, nil
}

func (repo *attemptRepository) GetSession(ctx context.Context, id string) (attempt.Session, error) {
	return getSession(ctx, repo.db, id, false)
}

func getSession(ctx context.Context, db core.DBExecutor, id string, forUpdate bool) (attempt.Session, error) {
	var s attempt.Session
	q := `SELECT ` + sessionColumns + ` FROM test_sessions WHERE id = $1`
	if forUpdate {
		q += " FOR UPDATE"
	}
	err := db.GetContext(ctx, &s, q, id)
	return s, trapNoRowsErr(err, attempt.ErrSessionNotFound)
}

func (repo *attemptRepository) FindDraftSession(ctx context.Context, studentID, assessmentID string) (attempt.Session, error) {
	var s attempt.Session
	q := `SELECT ` + sessionColumns + ` FROM test_sessions
		WHERE student_id = $1 AND assessment_id = $2 AND submitted_at IS NULL`
	err := repo.db.GetContext(ctx, &s, q, studentID, assessmentID)
	return s, trapNoRowsErr(err, attempt.ErrSessionNotFound)
}

func (repo *attemptRepository) SaveDraft(ctx context.Context, id string, answers attempt.Answers, at time.Time) (attempt.Session, error) {
	var s attempt.Session
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var err error
		if s, err = getSession(ctx, tx, id, true); err != nil {
			return err
		}
		if !s.IsDraft() {
			return attempt.ErrAlreadySubmitted
		}

		s.Answers = s.Answers.Merge(answers)
		s.UpdatedAt = at
		_, err = tx.ExecContext(ctx, `UPDATE test_sessions SET answers = $2, updated_at = $3 WHERE id = $1`, s.ID, s.Answers, s.UpdatedAt)
		return errors.Wrap(err, "updating draft")
	})
	if err != nil {
		return attempt.Session{}, err
	}
	return s, nil
}

func (repo *attemptRepository) QueryExpiredSessions(ctx context.Context, now time.Time, limit int) ([]attempt.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM test_sessions
		WHERE submitted_at IS NULL AND deadline IS NOT NULL AND deadline < $1
		ORDER BY deadline`
	args := []interface{}{now}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}

	sessions := make([]attempt.Session, 0)
	if err := repo.db.SelectContext(ctx, &sessions, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying expired sessions")
	}
	return sessions, nil
}

// CreateAttempt claims the session with a conditional update, so only one submission per session can commit.
// The claim also requires the draft to be unchanged since `draftVersion`; SaveDraft locks the same row.
func (repo *attemptRepository) CreateAttempt(
	ctx context.Context,
	a attempt.Attempt,
	draftVersion time.Time,
	updates []proficiency.PendingUpdate,
) (attempt.Attempt, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE test_sessions SET submitted_at = $2, attempt_id = $3
			WHERE id = $1 AND submitted_at IS NULL AND updated_at = $4`,
			a.SessionID, a.SubmittedAt, a.ID, draftVersion,
		)
		if err != nil {
			return errors.Wrap(trapNoRowsErr(err, attempt.ErrSessionNotFound), "claiming session")
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			s, err := getSession(ctx, tx, a.SessionID, false)
			if err != nil {
				return err
			}
			if s.IsDraft() {
				return attempt.ErrDraftChanged
			}
			return attempt.ErrAlreadySubmitted
		}

		q := `INSERT INTO test_attempts (` + attemptColumns + `)
			VALUES (:id, :session_id, :student_id, :assessment_id, :answers, :raw_score, :total_possible, :breakdown,
				:auto_submitted, :status, :submitted_at, :aggregated_at)`
		if _, err = tx.NamedExecContext(ctx, q, a); err != nil {
			if pqCode(err) == pqUniqueViolation {
				return attempt.ErrAlreadySubmitted
			}
			return errors.Wrap(err, "inserting attempt")
		}

		if len(updates) > 0 {
			q = `INSERT INTO proficiency_updates (` + pendingUpdateColumns + `)
				VALUES (:id, :attempt_id, :student_id, :outcome_id, :earned, :possible, :tries, :last_error, :created_at, :tried_at, :applied_at)`
			if _, err = tx.NamedExecContext(ctx, q, updates); err != nil {
				return errors.Wrap(err, "inserting pending updates")
			}
		}
		return nil
	})
	if err != nil {
		return attempt.Attempt{}, err
	}
	return a, nil
}

func (repo *attemptRepository) GetAttempt(ctx context.Context, id string) (attempt.Attempt, error) {
	var a attempt.Attempt
	err := repo.db.GetContext(ctx, &a, `SELECT `+attemptColumns+` FROM test_attempts WHERE id = $1`, id)
	return a, trapNoRowsErr(err, attempt.ErrNotFound)
}

func (repo *attemptRepository) QueryAttempts(ctx context.Context, filter attempt.QueryFilter, orderings ...core.DBOrdering) ([]attempt.Attempt, error) {
	var where whereClause
	if filter.StudentID != "" {
		where.add("student_id::text = ?", filter.StudentID)
	}
	if filter.AssessmentID != "" {
		where.add("assessment_id::text = ?", filter.AssessmentID)
	}
	if filter.Status != "" {
		where.add("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		where.add("submitted_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		where.add("submitted_at <= ?", filter.To)
	}

	atts := make([]attempt.Attempt, 0)
	q := `SELECT ` + attemptColumns + ` FROM test_attempts` + where.String() +
		orderBy(orderings, attemptOrderingFields, "submitted_at ASC")
	if err := repo.db.SelectContext(ctx, &atts, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	return atts, nil
}

func (repo *attemptRepository) MarkAggregated(ctx context.Context, id string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE test_attempts SET status = $2, aggregated_at = COALESCE(aggregated_at, $3) WHERE id = $1`,
		id, attempt.StatusAggregated, at,
	)
	if err != nil {
		return trapNoRowsErr(err, attempt.ErrNotFound)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return attempt.ErrNotFound
	}
	return nil
}
