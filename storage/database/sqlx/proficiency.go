package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/proficiency"
)

const (
	recordColumns        = "student_id, outcome_id, marks_earned, marks_attempted, percentage, level, updated_at"
	pendingUpdateColumns = "id, attempt_id, student_id, outcome_id, earned, possible, tries, last_error, created_at, tried_at, applied_at"
)

type proficiencyRepository struct {
	db core.DB
}

var _ proficiency.Repository = (*proficiencyRepository)(nil) // interface compliance check

func NewProficiencyRepository(db core.DB) *proficiencyRepository {
	return &proficiencyRepository{db: db}
}

func (repo *proficiencyRepository) GetRecord(ctx context.Context, key proficiency.Key) (proficiency.Record, error) {
	return getRecord(ctx, repo.db, key)
}

func getRecord(ctx context.Context, db core.DBExecutor, key proficiency.Key) (proficiency.Record, error) {
	var rec proficiency.Record
	q := `SELECT ` + recordColumns + ` FROM proficiency_records WHERE student_id = $1 AND outcome_id = $2`
	err := db.GetContext(ctx, &rec, q, key.StudentID, key.OutcomeID)
	return rec, trapNoRowsErr(err, proficiency.ErrNotFound)
}

func (repo *proficiencyRepository) QueryRecords(ctx context.Context, filter proficiency.QueryFilter) ([]proficiency.Record, error) {
	var where whereClause
	if filter.StudentID != "" {
		where.add("student_id::text = ?", filter.StudentID)
	}
	if filter.OutcomeID != "" {
		where.add("outcome_id::text = ?", filter.OutcomeID)
	}
	if filter.Level != "" {
		where.add("level = ?", filter.Level)
	}

	recs := make([]proficiency.Record, 0)
	q := repo.db.Rebind(`SELECT ` + recordColumns + ` FROM proficiency_records` + where.String() + ` ORDER BY student_id, outcome_id`)
	if err := repo.db.SelectContext(ctx, &recs, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying proficiency records")
	}
	return recs, nil
}

// Apply serializes on a transaction-scoped advisory lock keyed by (student, outcome), so concurrent
// read-merge-writes of one record never lose an update. The pending update row is locked too, which
// makes re-applying it a no-op.
func (repo *proficiencyRepository) Apply(ctx context.Context, upd proficiency.PendingUpdate, merge proficiency.MergeFunc) (proficiency.Change, error) {
	var chg proficiency.Change
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		lockKey := upd.StudentID + ":" + upd.OutcomeID
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return errors.Wrap(err, "locking proficiency record")
		}

		var stored proficiency.PendingUpdate
		q := `SELECT ` + pendingUpdateColumns + ` FROM proficiency_updates WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &stored, q, upd.ID); err != nil {
			return errors.Wrap(trapNoRowsErr(err, errors.Errorf("pending update %s not found", upd.ID)), "locking pending update")
		}
		if stored.AppliedAt != nil {
			return proficiency.ErrAlreadyApplied
		}

		prev, err := getRecord(ctx, tx, stored.Key)
		switch {
		case err == nil:
			chg.Before = &prev
		case errors.Cause(err) != proficiency.ErrNotFound:
			return errors.Wrap(err, "getting proficiency record")
		}

		if chg.After, err = merge(chg.Before); err != nil {
			return err
		}

		q = `INSERT INTO proficiency_records (` + recordColumns + `)
			VALUES (:student_id, :outcome_id, :marks_earned, :marks_attempted, :percentage, :level, :updated_at)
			ON CONFLICT (student_id, outcome_id) DO UPDATE SET
				marks_earned = EXCLUDED.marks_earned,
				marks_attempted = EXCLUDED.marks_attempted,
				percentage = EXCLUDED.percentage,
				level = EXCLUDED.level,
				updated_at = EXCLUDED.updated_at`
		if _, err = tx.NamedExecContext(ctx, q, chg.After); err != nil {
			return errors.Wrap(err, "upserting proficiency record")
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE proficiency_updates SET tries = tries + 1, tried_at = $2, applied_at = $2, last_error = '' WHERE id = $1`,
			stored.ID, time.Now().UTC(),
		)
		return errors.Wrap(err, "marking pending update applied")
	})
	if err != nil {
		return proficiency.Change{}, err
	}
	return chg, nil
}

func (repo *proficiencyRepository) QueryPendingUpdates(ctx context.Context, triedBefore time.Time, limit int) ([]proficiency.PendingUpdate, error) {
	q := `SELECT ` + pendingUpdateColumns + ` FROM proficiency_updates
		WHERE applied_at IS NULL AND COALESCE(tried_at, created_at) <= $1
		ORDER BY created_at, outcome_id`
	args := []interface{}{triedBefore}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}

	updates := make([]proficiency.PendingUpdate, 0)
	if err := repo.db.SelectContext(ctx, &updates, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying pending updates")
	}
	return updates, nil
}

func (repo *proficiencyRepository) CountPendingUpdates(ctx context.Context, attemptID string) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM proficiency_updates WHERE attempt_id = $1 AND applied_at IS NULL`
	if err := repo.db.GetContext(ctx, &n, q, attemptID); err != nil {
		return 0, errors.Wrap(err, "counting pending updates")
	}
	return n, nil
}

func (repo *proficiencyRepository) MarkUpdateFailed(ctx context.Context, id, reason string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE proficiency_updates SET tries = tries + 1, last_error = $2, tried_at = $3 WHERE id = $1`,
		id, reason, at,
	)
	if err != nil {
		return errors.Wrap(err, "marking pending update failed")
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return errors.Errorf("pending update %s not found", id)
	}
	return nil
}
