package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kipimo/core/assessment"
)

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) CreateAssessment(_ context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	questions := make([]assessment.Question, len(a.Questions))
	copy(questions, a.Questions)
	stored := a
	stored.Questions = nil
	repo.db.assessments[a.ID] = stored
	repo.db.questions[a.ID] = questions
	return a, nil
}

func (repo *assessmentRepository) GetAssessment(_ context.Context, id string) (assessment.Assessment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.assessments[id]; ok {
		return a, nil
	}
	return assessment.Assessment{}, assessment.ErrNotFound
}

func (repo *assessmentRepository) QueryAssessments(_ context.Context, filter assessment.QueryFilter) ([]assessment.Assessment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	as := make([]assessment.Assessment, 0)
	for _, a := range repo.db.assessments {
		if filter.SubjectID != "" && a.SubjectID != filter.SubjectID {
			continue
		}
		if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
			continue
		}
		if filter.IsPublished != nil && a.IsPublished != *filter.IsPublished {
			continue
		}
		if len(filter.IDs) > 0 && !contains(filter.IDs, a.ID) {
			continue
		}
		as = append(as, a)
	}
	sort.Slice(as, func(i, j int) bool { return as[i].CreatedAt.After(as[j].CreatedAt) })
	return as, nil
}

func (repo *assessmentRepository) QueryQuestions(_ context.Context, assessmentID string) ([]assessment.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	stored := repo.db.questions[assessmentID]
	questions := make([]assessment.Question, len(stored))
	copy(questions, stored)
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	return questions, nil
}
