package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/outcome"
)

const (
	subjectColumns = "id, teacher_id, name, description, created_at"
	outcomeColumns = "id, subject_id, description, target_proficiency, created_at"
)

type outcomeRepository struct {
	db core.DB
}

var _ outcome.Repository = (*outcomeRepository)(nil) // interface compliance check

func NewOutcomeRepository(db core.DB) *outcomeRepository {
	return &outcomeRepository{db: db}
}

func (repo *outcomeRepository) CreateSubject(ctx context.Context, s outcome.Subject) (outcome.Subject, error) {
	q := `INSERT INTO subjects (` + subjectColumns + `) VALUES (:id, :teacher_id, :name, :description, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, s); err != nil {
		return outcome.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo *outcomeRepository) GetSubject(ctx context.Context, id string) (outcome.Subject, error) {
	var s outcome.Subject
	err := repo.db.GetContext(ctx, &s, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id)
	return s, trapNoRowsErr(err, outcome.ErrSubjectNotFound)
}

func (repo *outcomeRepository) QuerySubjects(ctx context.Context, filter outcome.SubjectFilter) ([]outcome.Subject, error) {
	var where whereClause
	if filter.TeacherID != "" {
		where.add("teacher_id::text = ?", filter.TeacherID)
	}
	if len(filter.IDs) > 0 {
		if err := where.addIn("id::text", filter.IDs); err != nil {
			return nil, err
		}
	}

	subjects := make([]outcome.Subject, 0)
	q := repo.db.Rebind(`SELECT ` + subjectColumns + ` FROM subjects` + where.String() + ` ORDER BY name`)
	if err := repo.db.SelectContext(ctx, &subjects, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo *outcomeRepository) CreateOutcome(ctx context.Context, o outcome.Outcome) (outcome.Outcome, error) {
	q := `INSERT INTO outcomes (` + outcomeColumns + `) VALUES (:id, :subject_id, :description, :target_proficiency, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, o); err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return outcome.Outcome{}, outcome.ErrSubjectNotFound
		}
		return outcome.Outcome{}, errors.Wrap(err, "inserting outcome")
	}
	return o, nil
}

func (repo *outcomeRepository) GetOutcome(ctx context.Context, id string) (outcome.Outcome, error) {
	var o outcome.Outcome
	err := repo.db.GetContext(ctx, &o, `SELECT `+outcomeColumns+` FROM outcomes WHERE id = $1`, id)
	return o, trapNoRowsErr(err, outcome.ErrNotFound)
}

func (repo *outcomeRepository) QueryOutcomes(ctx context.Context, filter outcome.OutcomeFilter) ([]outcome.Outcome, error) {
	var where whereClause
	if filter.SubjectID != "" {
		where.add("subject_id::text = ?", filter.SubjectID)
	}
	if len(filter.IDs) > 0 {
		if err := where.addIn("id::text", filter.IDs); err != nil {
			return nil, err
		}
	}

	outcomes := make([]outcome.Outcome, 0)
	q := repo.db.Rebind(`SELECT ` + outcomeColumns + ` FROM outcomes` + where.String() + ` ORDER BY created_at, id`)
	if err := repo.db.SelectContext(ctx, &outcomes, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying outcomes")
	}
	return outcomes, nil
}
