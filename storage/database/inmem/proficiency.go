package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core/proficiency"
)

type proficiencyRepository struct {
	db *DB
}

var _ proficiency.Repository = (*proficiencyRepository)(nil) // interface compliance check

func NewProficiencyRepository(db *DB) *proficiencyRepository {
	return &proficiencyRepository{db: db}
}

func (repo *proficiencyRepository) GetRecord(_ context.Context, key proficiency.Key) (proficiency.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.records[key]; ok {
		return rec, nil
	}
	return proficiency.Record{}, proficiency.ErrNotFound
}

func (repo *proficiencyRepository) QueryRecords(_ context.Context, filter proficiency.QueryFilter) ([]proficiency.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	recs := make([]proficiency.Record, 0)
	for _, rec := range repo.db.records {
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.OutcomeID != "" && rec.OutcomeID != filter.OutcomeID {
			continue
		}
		if filter.Level != "" && rec.Level != filter.Level {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].StudentID != recs[j].StudentID {
			return recs[i].StudentID < recs[j].StudentID
		}
		return recs[i].OutcomeID < recs[j].OutcomeID
	})
	return recs, nil
}

// Apply holds the write lock for the whole read-merge-write, which serializes every key.
func (repo *proficiencyRepository) Apply(_ context.Context, upd proficiency.PendingUpdate, merge proficiency.MergeFunc) (proficiency.Change, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.updates[upd.ID]
	if !ok {
		return proficiency.Change{}, errors.Errorf("pending update %s not found", upd.ID)
	}
	if stored.AppliedAt != nil {
		return proficiency.Change{}, proficiency.ErrAlreadyApplied
	}

	var chg proficiency.Change
	if prev, ok := repo.db.records[stored.Key]; ok {
		chg.Before = &prev
	}
	next, err := merge(chg.Before)
	if err != nil {
		return proficiency.Change{}, err
	}
	chg.After = next

	now := time.Now().UTC()
	stored.Tries++
	stored.TriedAt = &now
	stored.AppliedAt = &now
	stored.LastError = ""
	repo.db.records[stored.Key] = next
	repo.db.updates[stored.ID] = stored
	return chg, nil
}

func (repo *proficiencyRepository) QueryPendingUpdates(_ context.Context, triedBefore time.Time, limit int) ([]proficiency.PendingUpdate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	updates := make([]proficiency.PendingUpdate, 0)
	for _, upd := range repo.db.updates {
		if upd.AppliedAt != nil {
			continue
		}
		last := upd.CreatedAt
		if upd.TriedAt != nil {
			last = *upd.TriedAt
		}
		if last.After(triedBefore) {
			continue
		}
		updates = append(updates, upd)
	}
	sort.Slice(updates, func(i, j int) bool {
		if !updates[i].CreatedAt.Equal(updates[j].CreatedAt) {
			return updates[i].CreatedAt.Before(updates[j].CreatedAt)
		}
		return updates[i].OutcomeID < updates[j].OutcomeID
	})
	if limit > 0 && len(updates) > limit {
		updates = updates[:limit]
	}
	return updates, nil
}

func (repo *proficiencyRepository) CountPendingUpdates(_ context.Context, attemptID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	n := 0
	for _, upd := range repo.db.updates {
		if upd.AttemptID == attemptID && upd.AppliedAt == nil {
			n++
		}
	}
	return n, nil
}

func (repo *proficiencyRepository) MarkUpdateFailed(_ context.Context, id, reason string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	upd, ok := repo.db.updates[id]
	if !ok {
		return errors.Errorf("pending update %s not found", id)
	}
	upd.Tries++
	upd.LastError = reason
	upd.TriedAt = &at
	repo.db.updates[id] = upd
	return nil
}
