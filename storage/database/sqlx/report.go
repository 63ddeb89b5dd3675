package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/report"
)

const reportColumns = "id, student_id, generated_by, report_path, report_data, created_at"

type reportRepository struct {
	db core.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db core.DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CreateReport(ctx context.Context, r report.Report) (report.Report, error) {
	q := `INSERT INTO student_reports (` + reportColumns + `)
		VALUES (:id, :student_id, :generated_by, :report_path, :report_data, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, r); err != nil {
		return report.Report{}, errors.Wrap(err, "inserting report")
	}
	return r, nil
}

func (repo *reportRepository) QueryReports(ctx context.Context, studentID string) ([]report.Report, error) {
	reps := make([]report.Report, 0)
	q := `SELECT ` + reportColumns + ` FROM student_reports WHERE student_id::text = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &reps, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	return reps, nil
}
