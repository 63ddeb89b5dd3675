package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/outcome"
)

var (
	ErrNotFound     = errors.New("assessment not found")
	ErrNotPublished = errors.New("assessment is not published")
	ErrNotStarted   = errors.New("assessment has not started yet")
	ErrEnded        = errors.New("assessment has ended")
)

type (
	Repository interface {
		// CreateAssessment stores the assessment with its questions and mappings, atomically.
		CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		GetAssessment(ctx context.Context, id string) (Assessment, error)
		QueryAssessments(ctx context.Context, filter QueryFilter) ([]Assessment, error)
		// QueryQuestions returns the questions of an assessment by position, with their mappings.
		QueryQuestions(ctx context.Context, assessmentID string) ([]Question, error)
	}

	Service struct {
		repo     Repository
		outcomes outcome.Repository
	}
)

func NewService(repo Repository, outcomes outcome.Repository) *Service {
	return &Service{repo: repo, outcomes: outcomes}
}

// Create authors an assessment for `teacherID`. Every mapped outcome must belong to the assessment's subject.
// TotalMarks is computed here once and never recomputed.
func (svc *Service) Create(ctx context.Context, teacherID string, na NewAssessment) (Assessment, error) {
	subj, err := svc.outcomes.GetSubject(ctx, na.SubjectID)
	if err != nil {
		if errors.Cause(err) == outcome.ErrSubjectNotFound {
			return Assessment{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
		}
		return Assessment{}, errors.Wrap(err, "getting subject")
	}
	if subj.TeacherID != teacherID {
		return Assessment{}, core.NewValidationError(nil, core.FieldError{Field: "subject_id", Error: "subject belongs to another teacher"})
	}

	if ids := na.OutcomeIDs(); len(ids) > 0 {
		outs, err := svc.outcomes.QueryOutcomes(ctx, outcome.OutcomeFilter{SubjectID: na.SubjectID, IDs: ids})
		if err != nil {
			return Assessment{}, errors.Wrap(err, "querying outcomes")
		}
		if len(outs) != len(ids) {
			return Assessment{}, core.NewValidationError(nil, core.FieldError{
				Field: "questions", Error: "mapped outcomes must belong to the assessment's subject",
			})
		}
	}

	published := true
	if na.IsPublished != nil {
		published = *na.IsPublished
	}
	a := Assessment{
		ID:              uuid.NewString(),
		SubjectID:       na.SubjectID,
		TeacherID:       teacherID,
		Title:           na.Title,
		IsPublished:     published,
		StartsAt:        utcPtr(na.StartsAt),
		EndsAt:          utcPtr(na.EndsAt),
		DurationMinutes: na.DurationMinutes,
		CreatedAt:       time.Now().UTC(),
		Questions:       make([]Question, 0, len(na.Questions)),
	}
	for i, nq := range na.Questions {
		q := Question{
			ID:            uuid.NewString(),
			AssessmentID:  a.ID,
			Text:          nq.Text,
			Type:          nq.Type,
			Options:       nq.Options,
			CorrectAnswer: nq.CorrectAnswer,
			MaxMarks:      nq.MaxMarks,
			Position:      i + 1,
		}
		if q.Options == nil {
			q.Options = []string{}
		}
		for _, nm := range nq.Mappings {
			q.Mappings = append(q.Mappings, Mapping{QuestionID: q.ID, OutcomeID: nm.OutcomeID, Contribution: nm.Contribution})
		}
		a.TotalMarks += q.MaxMarks
		a.Questions = append(a.Questions, q)
	}

	return svc.repo.CreateAssessment(ctx, a)
}

// Get returns the assessment with its questions.
func (svc *Service) Get(ctx context.Context, id string) (Assessment, error) {
	a, err := svc.repo.GetAssessment(ctx, id)
	if err != nil {
		return Assessment{}, err
	}
	if a.Questions, err = svc.repo.QueryQuestions(ctx, id); err != nil {
		return Assessment{}, errors.Wrap(err, "querying questions")
	}
	return a, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Assessment, error) {
	return svc.repo.QueryAssessments(ctx, filter)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
