package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/assessment"
	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/outcome"
	"github.com/trezcool/kipimo/core/proficiency"
	"github.com/trezcool/kipimo/core/profile"
)

var ErrNotFound = errors.New("report not found")

type (
	Repository interface {
		CreateReport(ctx context.Context, r Report) (Report, error)
		// QueryReports returns the student's reports, newest first.
		QueryReports(ctx context.Context, studentID string) ([]Report, error)
	}

	Service struct {
		repo        Repository
		profiles    profile.Repository
		attempts    attempt.Repository
		assessments assessment.Repository
		records     proficiency.Repository
		catalog     *outcome.Service
		now         func() time.Time
	}
)

func NewService(
	repo Repository,
	profiles profile.Repository,
	attempts attempt.Repository,
	assessments assessment.Repository,
	records proficiency.Repository,
	outcomes outcome.Repository,
) *Service {
	return &Service{
		repo:        repo,
		profiles:    profiles,
		attempts:    attempts,
		assessments: assessments,
		records:     records,
		catalog:     outcome.NewService(outcomes),
		now:         time.Now,
	}
}

// Generate snapshots the student's attempts and outcome performance, and archives the snapshot.
func (svc *Service) Generate(ctx context.Context, studentID, generatedBy string) (Report, error) {
	student, err := svc.profiles.GetProfile(ctx, studentID)
	if err != nil {
		return Report{}, err
	}
	if !student.IsStudent() {
		return Report{}, profile.ErrNotFound
	}

	attempts, err := svc.attemptRows(ctx, studentID)
	if err != nil {
		return Report{}, err
	}
	perf, err := svc.performanceRows(ctx, studentID)
	if err != nil {
		return Report{}, err
	}

	now := svc.now().UTC()
	rep := Report{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		GeneratedBy: generatedBy,
		Path:        ReportPath(studentID, now),
		Data: Data{
			Student:     student,
			Attempts:    attempts,
			Performance: perf,
			Statistics:  computeStatistics(attempts, perf),
			GeneratedAt: now,
		},
		CreatedAt: now,
	}
	if rep, err = svc.repo.CreateReport(ctx, rep); err != nil {
		return Report{}, errors.Wrap(err, "storing report")
	}
	return rep, nil
}

func (svc *Service) Query(ctx context.Context, studentID string) ([]Report, error) {
	return svc.repo.QueryReports(ctx, studentID)
}

func (svc *Service) attemptRows(ctx context.Context, studentID string) ([]AttemptRow, error) {
	atts, err := svc.attempts.QueryAttempts(
		ctx,
		attempt.QueryFilter{StudentID: studentID},
		core.DBOrdering{Field: "submitted_at", Ascending: true},
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}

	ids := make([]string, 0, len(atts))
	for _, a := range atts {
		ids = append(ids, a.AssessmentID)
	}
	titles := make(map[string]assessment.Assessment)
	subjectIDs := make([]string, 0)
	if len(ids) > 0 {
		as, err := svc.assessments.QueryAssessments(ctx, assessment.QueryFilter{IDs: ids})
		if err != nil {
			return nil, errors.Wrap(err, "querying assessments")
		}
		for _, a := range as {
			titles[a.ID] = a
			subjectIDs = append(subjectIDs, a.SubjectID)
		}
	}
	subjects, err := svc.subjects(ctx, subjectIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]AttemptRow, 0, len(atts))
	for _, a := range atts {
		as := titles[a.AssessmentID]
		rows = append(rows, AttemptRow{
			Attempt:         a,
			AssessmentTitle: as.Title,
			SubjectName:     subjects[as.SubjectID].Name,
		})
	}
	return rows, nil
}

func (svc *Service) performanceRows(ctx context.Context, studentID string) ([]PerformanceRow, error) {
	recs, err := svc.records.QueryRecords(ctx, proficiency.QueryFilter{StudentID: studentID})
	if err != nil {
		return nil, errors.Wrap(err, "querying proficiency records")
	}

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.OutcomeID)
	}
	outcomes, subjects, err := svc.catalog.Catalog(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "querying outcomes")
	}

	rows := make([]PerformanceRow, 0, len(recs))
	for _, r := range recs {
		o := outcomes[r.OutcomeID]
		rows = append(rows, PerformanceRow{
			Record:             r,
			OutcomeDescription: o.Description,
			TargetProficiency:  o.TargetProficiency,
			SubjectName:        subjects[o.SubjectID].Name,
		})
	}
	return rows, nil
}

func (svc *Service) subjects(ctx context.Context, ids []string) (map[string]outcome.Subject, error) {
	out := make(map[string]outcome.Subject)
	if len(ids) == 0 {
		return out, nil
	}
	ss, err := svc.catalog.QuerySubjects(ctx, outcome.SubjectFilter{IDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	for _, s := range ss {
		out[s.ID] = s
	}
	return out, nil
}
