package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kipimo/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CreateReport(_ context.Context, r report.Report) (report.Report, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.reports[r.ID] = r
	return r, nil
}

func (repo *reportRepository) QueryReports(_ context.Context, studentID string) ([]report.Report, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reps := make([]report.Report, 0)
	for _, r := range repo.db.reports {
		if r.StudentID == studentID {
			reps = append(reps, r)
		}
	}
	sort.Slice(reps, func(i, j int) bool { return reps[i].CreatedAt.After(reps[j].CreatedAt) })
	return reps, nil
}
