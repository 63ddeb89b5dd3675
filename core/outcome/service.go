package outcome

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrNotFound        = errors.New("outcome not found")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		QuerySubjects(ctx context.Context, filter SubjectFilter) ([]Subject, error)
		CreateOutcome(ctx context.Context, o Outcome) (Outcome, error)
		GetOutcome(ctx context.Context, id string) (Outcome, error)
		QueryOutcomes(ctx context.Context, filter OutcomeFilter) ([]Outcome, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateSubject(ctx context.Context, teacherID string, ns NewSubject) (Subject, error) {
	s := Subject{
		ID:          uuid.NewString(),
		TeacherID:   teacherID,
		Name:        ns.Name,
		Description: ns.Description,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateSubject(ctx, s)
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) QuerySubjects(ctx context.Context, filter SubjectFilter) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, filter)
}

func (svc *Service) CreateOutcome(ctx context.Context, subjectID string, no NewOutcome) (Outcome, error) {
	if _, err := svc.repo.GetSubject(ctx, subjectID); err != nil {
		return Outcome{}, err
	}
	target := DefaultTargetProficiency
	if no.TargetProficiency != nil {
		target = *no.TargetProficiency
	}
	o := Outcome{
		ID:                uuid.NewString(),
		SubjectID:         subjectID,
		Description:       no.Description,
		TargetProficiency: target,
		CreatedAt:         time.Now().UTC(),
	}
	return svc.repo.CreateOutcome(ctx, o)
}

func (svc *Service) Get(ctx context.Context, id string) (Outcome, error) {
	return svc.repo.GetOutcome(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter OutcomeFilter) ([]Outcome, error) {
	return svc.repo.QueryOutcomes(ctx, filter)
}

// Catalog resolves outcomes and their subjects by ID, for decorating proficiency data.
func (svc *Service) Catalog(ctx context.Context, outcomeIDs ...string) (map[string]Outcome, map[string]Subject, error) {
	outcomes := make(map[string]Outcome)
	subjects := make(map[string]Subject)
	if len(outcomeIDs) == 0 {
		return outcomes, subjects, nil
	}

	outs, err := svc.repo.QueryOutcomes(ctx, OutcomeFilter{IDs: outcomeIDs})
	if err != nil {
		return nil, nil, err
	}
	subjIDs := make([]string, 0, len(outs))
	for _, o := range outs {
		outcomes[o.ID] = o
		subjIDs = append(subjIDs, o.SubjectID)
	}
	ss, err := svc.repo.QuerySubjects(ctx, SubjectFilter{IDs: subjIDs})
	if err != nil {
		return nil, nil, err
	}
	for _, s := range ss {
		subjects[s.ID] = s
	}
	return outcomes, subjects, nil
}
