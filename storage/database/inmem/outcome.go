package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kipimo/core/outcome"
)

type outcomeRepository struct {
	db *DB
}

var _ outcome.Repository = (*outcomeRepository)(nil) // interface compliance check

func NewOutcomeRepository(db *DB) *outcomeRepository {
	return &outcomeRepository{db: db}
}

func (repo *outcomeRepository) CreateSubject(_ context.Context, s outcome.Subject) (outcome.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.subjects[s.ID] = s
	return s, nil
}

func (repo *outcomeRepository) GetSubject(_ context.Context, id string) (outcome.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return s, nil
	}
	return outcome.Subject{}, outcome.ErrSubjectNotFound
}

func (repo *outcomeRepository) QuerySubjects(_ context.Context, filter outcome.SubjectFilter) ([]outcome.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := make([]outcome.Subject, 0)
	for _, s := range repo.db.subjects {
		if filter.TeacherID != "" && s.TeacherID != filter.TeacherID {
			continue
		}
		if len(filter.IDs) > 0 && !contains(filter.IDs, s.ID) {
			continue
		}
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *outcomeRepository) CreateOutcome(_ context.Context, o outcome.Outcome) (outcome.Outcome, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjects[o.SubjectID]; !ok {
		return outcome.Outcome{}, outcome.ErrSubjectNotFound
	}
	repo.db.outcomes[o.ID] = o
	return o, nil
}

func (repo *outcomeRepository) GetOutcome(_ context.Context, id string) (outcome.Outcome, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if o, ok := repo.db.outcomes[id]; ok {
		return o, nil
	}
	return outcome.Outcome{}, outcome.ErrNotFound
}

func (repo *outcomeRepository) QueryOutcomes(_ context.Context, filter outcome.OutcomeFilter) ([]outcome.Outcome, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	outcomes := make([]outcome.Outcome, 0)
	for _, o := range repo.db.outcomes {
		if filter.SubjectID != "" && o.SubjectID != filter.SubjectID {
			continue
		}
		if len(filter.IDs) > 0 && !contains(filter.IDs, o.ID) {
			continue
		}
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool {
		if !outcomes[i].CreatedAt.Equal(outcomes[j].CreatedAt) {
			return outcomes[i].CreatedAt.Before(outcomes[j].CreatedAt)
		}
		return outcomes[i].ID < outcomes[j].ID
	})
	return outcomes, nil
}
