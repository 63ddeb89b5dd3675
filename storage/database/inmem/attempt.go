package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/proficiency"
)

type attemptRepository struct {
	db *DB
}

var _ attempt.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository(db *DB) *attemptRepository {
	return &attemptRepository{db: db}
}

// CreateSession keeps one draft per student and assessment: a second draft resumes the first.
func (repo *attemptRepository) CreateSession(_ context.Context, s attempt.Session) (attempt.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if draft, ok := repo.findDraft(s.StudentID, s.AssessmentID); ok {
		return draft, nil
	}
	s.Answers = attempt.Answers{}.Merge(s.Answers)
	repo.db.sessions[s.ID] = s
	return s, nil
}

func (repo *attemptRepository) GetSession(_ context.Context, id string) (attempt.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.sessions[id]; ok {
		s.Answers = attempt.Answers{}.Merge(s.Answers)
		return s, nil
	}
	return attempt.Session{}, attempt.ErrSessionNotFound
}

func (repo *attemptRepository) FindDraftSession(_ context.Context, studentID, assessmentID string) (attempt.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.findDraft(studentID, assessmentID); ok {
		return s, nil
	}
	return attempt.Session{}, attempt.ErrSessionNotFound
}

// findDraft expects the caller to hold the lock.
func (repo *attemptRepository) findDraft(studentID, assessmentID string) (attempt.Session, bool) {
	for _, s := range repo.db.sessions {
		if s.StudentID == studentID && s.AssessmentID == assessmentID && s.IsDraft() {
			s.Answers = attempt.Answers{}.Merge(s.Answers)
			return s, true
		}
	}
	return attempt.Session{}, false
}

func (repo *attemptRepository) SaveDraft(_ context.Context, id string, answers attempt.Answers, at time.Time) (attempt.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.sessions[id]
	if !ok {
		return attempt.Session{}, attempt.ErrSessionNotFound
	}
	if !s.IsDraft() {
		return attempt.Session{}, attempt.ErrAlreadySubmitted
	}
	s.Answers = s.Answers.Merge(answers)
	s.UpdatedAt = at
	repo.db.sessions[id] = s
	return s, nil
}

func (repo *attemptRepository) QueryExpiredSessions(_ context.Context, now time.Time, limit int) ([]attempt.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := make([]attempt.Session, 0)
	for _, s := range repo.db.sessions {
		if s.IsDraft() && s.Expired(now) {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Deadline.Before(*sessions[j].Deadline) })
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (repo *attemptRepository) CreateAttempt(
	_ context.Context,
	a attempt.Attempt,
	draftVersion time.Time,
	updates []proficiency.PendingUpdate,
) (attempt.Attempt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.sessions[a.SessionID]
	if !ok {
		return attempt.Attempt{}, attempt.ErrSessionNotFound
	}
	if !s.IsDraft() {
		return attempt.Attempt{}, attempt.ErrAlreadySubmitted
	}
	if !s.UpdatedAt.Equal(draftVersion) {
		return attempt.Attempt{}, attempt.ErrDraftChanged
	}

	submittedAt := a.SubmittedAt
	attemptID := a.ID
	s.SubmittedAt = &submittedAt
	s.AttemptID = &attemptID
	repo.db.sessions[s.ID] = s
	repo.db.attempts[a.ID] = a
	for _, upd := range updates {
		repo.db.updates[upd.ID] = upd
	}
	return a, nil
}

func (repo *attemptRepository) GetAttempt(_ context.Context, id string) (attempt.Attempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.attempts[id]; ok {
		return a, nil
	}
	return attempt.Attempt{}, attempt.ErrNotFound
}

func (repo *attemptRepository) QueryAttempts(_ context.Context, filter attempt.QueryFilter, orderings ...core.DBOrdering) ([]attempt.Attempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	atts := make([]attempt.Attempt, 0)
	for _, a := range repo.db.attempts {
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		if filter.AssessmentID != "" && a.AssessmentID != filter.AssessmentID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && a.SubmittedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && a.SubmittedAt.After(filter.To) {
			continue
		}
		atts = append(atts, a)
	}

	asc := true
	if len(orderings) > 0 {
		asc = orderings[0].Ascending
	}
	sort.Slice(atts, func(i, j int) bool {
		if asc {
			return atts[i].SubmittedAt.Before(atts[j].SubmittedAt)
		}
		return atts[i].SubmittedAt.After(atts[j].SubmittedAt)
	})
	return atts, nil
}

func (repo *attemptRepository) MarkAggregated(_ context.Context, id string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a, ok := repo.db.attempts[id]
	if !ok {
		return attempt.ErrNotFound
	}
	a.Status = attempt.StatusAggregated
	a.AggregatedAt = &at
	repo.db.attempts[id] = a
	return nil
}
