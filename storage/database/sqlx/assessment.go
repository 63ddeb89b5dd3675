package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/assessment"
)

const (
	assessmentColumns = "id, subject_id, teacher_id, title, total_marks, is_published, starts_at, ends_at, duration_minutes, created_at"
	questionColumns   = "id, assessment_id, text, type, options, correct_answer, max_marks, position"
)

// questionRow carries the options as a JSON column.
type questionRow struct {
	assessment.Question
	Options stringList `db:"options"`
}

type assessmentRepository struct {
	db core.DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db core.DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO assessments (` + assessmentColumns + `)
			VALUES (:id, :subject_id, :teacher_id, :title, :total_marks, :is_published, :starts_at, :ends_at, :duration_minutes, :created_at)`
		if _, err := tx.NamedExecContext(ctx, q, a); err != nil {
			return errors.Wrap(err, "inserting assessment")
		}

		mappings := make([]assessment.Mapping, 0)
		for _, question := range a.Questions {
			row := questionRow{Question: question, Options: question.Options}
			q = `INSERT INTO questions (` + questionColumns + `)
				VALUES (:id, :assessment_id, :text, :type, :options, :correct_answer, :max_marks, :position)`
			if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
				return errors.Wrap(err, "inserting question")
			}
			mappings = append(mappings, question.Mappings...)
		}

		if len(mappings) > 0 {
			q = `INSERT INTO question_outcome_mappings (question_id, outcome_id, contribution)
				VALUES (:question_id, :outcome_id, :contribution)`
			if _, err := tx.NamedExecContext(ctx, q, mappings); err != nil {
				return errors.Wrap(err, "inserting mappings")
			}
		}
		return nil
	})
	if err != nil {
		return assessment.Assessment{}, err
	}
	return a, nil
}

func (repo *assessmentRepository) GetAssessment(ctx context.Context, id string) (assessment.Assessment, error) {
	var a assessment.Assessment
	err := repo.db.GetContext(ctx, &a, `SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id)
	return a, trapNoRowsErr(err, assessment.ErrNotFound)
}

func (repo *assessmentRepository) QueryAssessments(ctx context.Context, filter assessment.QueryFilter) ([]assessment.Assessment, error) {
	var where whereClause
	if filter.SubjectID != "" {
		where.add("subject_id::text = ?", filter.SubjectID)
	}
	if filter.TeacherID != "" {
		where.add("teacher_id::text = ?", filter.TeacherID)
	}
	if filter.IsPublished != nil {
		where.add("is_published = ?", *filter.IsPublished)
	}
	if len(filter.IDs) > 0 {
		if err := where.addIn("id::text", filter.IDs); err != nil {
			return nil, err
		}
	}

	as := make([]assessment.Assessment, 0)
	q := repo.db.Rebind(`SELECT ` + assessmentColumns + ` FROM assessments` + where.String() + ` ORDER BY created_at DESC`)
	if err := repo.db.SelectContext(ctx, &as, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	return as, nil
}

func (repo *assessmentRepository) QueryQuestions(ctx context.Context, assessmentID string) ([]assessment.Question, error) {
	rows := make([]questionRow, 0)
	q := `SELECT ` + questionColumns + ` FROM questions WHERE assessment_id = $1 ORDER BY position`
	if err := repo.db.SelectContext(ctx, &rows, q, assessmentID); err != nil {
		if pqCode(err) == pqInvalidTextRepr {
			return []assessment.Question{}, nil
		}
		return nil, errors.Wrap(err, "querying questions")
	}

	questions := make([]assessment.Question, len(rows))
	if len(rows) == 0 {
		return questions, nil
	}
	ids := make([]string, len(rows))
	byID := make(map[string]int, len(rows))
	for i, row := range rows {
		question := row.Question
		question.Options = row.Options
		question.Mappings = make([]assessment.Mapping, 0)
		questions[i] = question
		ids[i] = question.ID
		byID[question.ID] = i
	}

	mq, args, err := sqlx.In(`SELECT question_id, outcome_id, contribution FROM question_outcome_mappings
		WHERE question_id::text IN (?) ORDER BY outcome_id`, ids)
	if err != nil {
		return nil, err
	}
	mappings := make([]assessment.Mapping, 0)
	if err = repo.db.SelectContext(ctx, &mappings, repo.db.Rebind(mq), args...); err != nil {
		return nil, errors.Wrap(err, "querying mappings")
	}
	for _, m := range mappings {
		i := byID[m.QuestionID]
		questions[i].Mappings = append(questions[i].Mappings, m)
	}
	return questions, nil
}
