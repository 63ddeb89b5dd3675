// Package attempt runs the test-taking flow: draft sessions, submission, scoring and aggregation.
package attempt

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/assessment"
	"github.com/trezcool/kipimo/core/grading"
	"github.com/trezcool/kipimo/core/proficiency"
)

var (
	ErrNotFound          = errors.New("attempt not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrAlreadySubmitted  = errors.New("session already submitted")
	ErrSessionExpired    = errors.New("session time is up")
	ErrSubmissionFailed  = errors.New("submission failed")
	ErrDraftChanged      = errors.New("draft changed while submitting")
	errUnknownSubmitMode = errors.New("unknown submission reason")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, s Session) (Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		// FindDraftSession returns the student's unsubmitted session for the assessment, or ErrSessionNotFound.
		FindDraftSession(ctx context.Context, studentID, assessmentID string) (Session, error)
		// SaveDraft overlays `answers` on the session's draft. Returns ErrAlreadySubmitted once submitted.
		SaveDraft(ctx context.Context, id string, answers Answers, at time.Time) (Session, error)
		QueryExpiredSessions(ctx context.Context, now time.Time, limit int) ([]Session, error)

		// CreateAttempt claims the attempt's session and stores the attempt with its pending updates, all or nothing.
		// The claim succeeds once per session: later calls return ErrAlreadySubmitted.
		// It returns ErrDraftChanged when the draft was saved after `draftVersion` (its UpdatedAt when scored).
		CreateAttempt(ctx context.Context, a Attempt, draftVersion time.Time, updates []proficiency.PendingUpdate) (Attempt, error)
		GetAttempt(ctx context.Context, id string) (Attempt, error)
		QueryAttempts(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Attempt, error)
		MarkAggregated(ctx context.Context, id string, at time.Time) error
	}

	// Aggregator applies pending proficiency updates.
	Aggregator interface {
		Apply(ctx context.Context, upd proficiency.PendingUpdate) (proficiency.Change, error)
		QueryPending(ctx context.Context, triedBefore time.Time, limit int) ([]proficiency.PendingUpdate, error)
		CountPending(ctx context.Context, attemptID string) (int, error)
	}

	Service struct {
		conf        *core.Config
		repo        Repository
		assessments assessment.Repository
		aggregator  Aggregator
		logger      core.Logger
		now         func() time.Time
	}
)

func NewService(
	conf *core.Config,
	repo Repository,
	assessments assessment.Repository,
	aggregator Aggregator,
	logger core.Logger,
) *Service {
	return &Service{
		conf:        conf,
		repo:        repo,
		assessments: assessments,
		aggregator:  aggregator,
		logger:      logger,
		now:         time.Now,
	}
}

// StartSession opens a draft for the student, or resumes the one already open.
func (svc *Service) StartSession(ctx context.Context, studentID, assessmentID string) (Session, error) {
	if s, err := svc.repo.FindDraftSession(ctx, studentID, assessmentID); err == nil {
		return s, nil
	} else if errors.Cause(err) != ErrSessionNotFound {
		return Session{}, errors.Wrap(err, "finding draft session")
	}

	a, err := svc.assessments.GetAssessment(ctx, assessmentID)
	if err != nil {
		return Session{}, err
	}
	now := svc.now().UTC()
	if err := a.CheckOpen(now); err != nil {
		return Session{}, err
	}

	s := Session{
		ID:           uuid.NewString(),
		AssessmentID: a.ID,
		StudentID:    studentID,
		Answers:      Answers{},
		StartedAt:    now,
		UpdatedAt:    now,
		Deadline:     a.Deadline(now),
	}
	return svc.repo.CreateSession(ctx, s)
}

// GetSession returns the student's session.
func (svc *Service) GetSession(ctx context.Context, studentID, id string) (Session, error) {
	s, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.StudentID != studentID {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

// SaveDraft accumulates answers on an open session.
func (svc *Service) SaveDraft(ctx context.Context, studentID, id string, answers Answers) (Session, error) {
	s, err := svc.GetSession(ctx, studentID, id)
	if err != nil {
		return Session{}, err
	}
	if !s.IsDraft() {
		return Session{}, ErrAlreadySubmitted
	}
	now := svc.now().UTC()
	if s.Expired(now) {
		return Session{}, ErrSessionExpired
	}
	return svc.repo.SaveDraft(ctx, id, answers, now)
}

// Submit scores the session and records the attempt. Once the attempt is stored, outcome updates are
// applied one by one: a failed update is left for Reconcile and never fails the submission.
//
// Manual submissions must answer every question, unless the session deadline has passed.
// A draft saved while scoring is picked up by scoring again.
func (svc *Service) Submit(ctx context.Context, req SubmitRequest) (Submission, error) {
	if req.Reason == "" {
		req.Reason = ReasonManual
	}
	if req.Reason != ReasonManual && req.Reason != ReasonExpired {
		return Submission{}, errUnknownSubmitMode
	}

	for try := 1; ; try++ {
		sub, err := svc.submit(ctx, req)
		if err == ErrDraftChanged && try < maxSubmitTries {
			continue
		}
		return sub, err
	}
}

func (svc *Service) submit(ctx context.Context, req SubmitRequest) (Submission, error) {
	sess, err := svc.repo.GetSession(ctx, req.SessionID)
	if err != nil {
		return Submission{}, err
	}
	if sess.StudentID != req.StudentID {
		return Submission{}, ErrSessionNotFound
	}
	if !sess.IsDraft() {
		return Submission{}, ErrAlreadySubmitted
	}

	a, err := svc.assessments.GetAssessment(ctx, sess.AssessmentID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "getting assessment")
	}
	questions, err := svc.assessments.QueryQuestions(ctx, sess.AssessmentID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "querying questions")
	}

	now := svc.now().UTC()
	auto := req.Reason == ReasonExpired || sess.Expired(now)
	answers := knownAnswers(questions, sess.Answers.Merge(req.Answers))

	res, err := grading.Score(grading.ScoreInput{
		Questions:  assessment.ScoringQuestions(questions),
		Answers:    answers,
		TotalMarks: a.TotalMarks,
		Auto:       auto,
	})
	if err != nil {
		return Submission{}, err
	}

	att := Attempt{
		ID:            uuid.NewString(),
		SessionID:     sess.ID,
		StudentID:     sess.StudentID,
		AssessmentID:  sess.AssessmentID,
		Answers:       answers,
		RawScore:      res.RawScore,
		TotalPossible: res.TotalPossible,
		Breakdown:     Breakdown(res.Outcomes),
		AutoSubmitted: auto,
		Status:        StatusSubmitted,
		SubmittedAt:   now,
	}
	for _, aErr := range res.Skipped {
		svc.logger.Warn("skipping outcome allocation", aErr, map[string]interface{}{
			"attempt_id":    att.ID,
			"assessment_id": att.AssessmentID,
		})
	}

	updates := pendingUpdates(att, now)
	if att, err = svc.repo.CreateAttempt(ctx, att, sess.UpdatedAt, updates); err != nil {
		switch errors.Cause(err) {
		case ErrAlreadySubmitted, ErrDraftChanged:
			return Submission{}, errors.Cause(err)
		}
		svc.logger.Error("persisting attempt", err, map[string]interface{}{"session_id": sess.ID})
		return Submission{}, errors.Wrap(ErrSubmissionFailed, err.Error())
	}

	// the attempt is durable from here on: finish the updates even if the caller goes away
	sub := svc.aggregate(context.WithoutCancel(ctx), att, updates)
	sub.Questions = res.Questions
	return sub, nil
}

func (svc *Service) aggregate(ctx context.Context, att Attempt, updates []proficiency.PendingUpdate) Submission {
	sub := Submission{Attempt: att, Records: make([]proficiency.Record, 0, len(updates))}
	for _, upd := range updates {
		chg, err := svc.aggregator.Apply(ctx, upd)
		switch {
		case err == nil:
			sub.Records = append(sub.Records, chg.After)
		case errors.Cause(err) == proficiency.ErrAlreadyApplied:
		default:
			sub.Pending++
			svc.logger.Error("applying proficiency update", err, map[string]interface{}{
				"attempt_id": att.ID,
				"outcome_id": upd.OutcomeID,
			})
		}
	}

	if sub.Pending == 0 {
		now := svc.now().UTC()
		if err := svc.repo.MarkAggregated(ctx, att.ID, now); err != nil {
			svc.logger.Error("marking attempt aggregated", err, map[string]interface{}{"attempt_id": att.ID})
		} else {
			sub.Attempt.Status = StatusAggregated
			sub.Attempt.AggregatedAt = &now
		}
	}
	return sub
}

// Get returns an attempt by ID.
func (svc *Service) Get(ctx context.Context, id string) (Attempt, error) {
	return svc.repo.GetAttempt(ctx, id)
}

// Query returns the attempts matching `filter`, oldest submission first unless ordered otherwise.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Attempt, error) {
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "submitted_at", Ascending: true}}
	}
	return svc.repo.QueryAttempts(ctx, filter, orderings...)
}

// SubmitExpired auto-submits every draft session whose deadline has passed, with whatever answers it holds.
func (svc *Service) SubmitExpired(ctx context.Context) (ExpiryResult, error) {
	var res ExpiryResult
	sessions, err := svc.repo.QueryExpiredSessions(ctx, svc.now().UTC(), svc.conf.Worker.BatchSize)
	if err != nil {
		return res, errors.Wrap(err, "querying expired sessions")
	}

	for _, s := range sessions {
		_, err := svc.Submit(ctx, SubmitRequest{SessionID: s.ID, StudentID: s.StudentID, Reason: ReasonExpired})
		switch {
		case err == nil:
			res.Submitted++
		case errors.Cause(err) == ErrAlreadySubmitted:
			// submitted by the student in the meantime
		default:
			res.Failed++
			svc.logger.Error("auto-submitting expired session", err, map[string]interface{}{"session_id": s.ID})
		}
	}
	return res, nil
}

func knownAnswers(questions []assessment.Question, answers Answers) Answers {
	out := make(Answers, len(questions))
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok {
			out[q.ID] = a
		}
	}
	return out
}

func pendingUpdates(att Attempt, now time.Time) []proficiency.PendingUpdate {
	outcomeIDs := make([]string, 0, len(att.Breakdown))
	for id, d := range att.Breakdown {
		if d.Possible > 0 {
			outcomeIDs = append(outcomeIDs, id)
		}
	}
	sort.Strings(outcomeIDs)

	updates := make([]proficiency.PendingUpdate, 0, len(outcomeIDs))
	for _, id := range outcomeIDs {
		d := att.Breakdown[id]
		updates = append(updates, proficiency.PendingUpdate{
			ID:        uuid.NewString(),
			AttemptID: att.ID,
			Key:       proficiency.Key{StudentID: att.StudentID, OutcomeID: id},
			Earned:    d.Earned,
			Possible:  d.Possible,
			CreatedAt: now,
		})
	}
	return updates
}
