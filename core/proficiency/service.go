package proficiency

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/outcome"
	"github.com/trezcool/kipimo/core/profile"
)

type (
	Repository interface {
		GetRecord(ctx context.Context, key Key) (Record, error)
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)

		// Apply merges a pending update into its record and marks the update applied, atomically.
		// Concurrent calls on the same Key are serialized. Returns ErrAlreadyApplied if the update
		// was applied before.
		Apply(ctx context.Context, upd PendingUpdate, merge MergeFunc) (Change, error)

		// QueryPendingUpdates returns unapplied updates never tried, or last tried before `triedBefore`, oldest first.
		QueryPendingUpdates(ctx context.Context, triedBefore time.Time, limit int) ([]PendingUpdate, error)
		CountPendingUpdates(ctx context.Context, attemptID string) (int, error)
		MarkUpdateFailed(ctx context.Context, id, reason string, at time.Time) error
	}

	Service struct {
		conf     *core.Config
		repo     Repository
		profiles profile.Repository
		outcomes outcome.Repository
		mailSvc  core.EmailService
		logger   core.Logger
		now      func() time.Time
	}
)

func NewService(
	conf *core.Config,
	repo Repository,
	profiles profile.Repository,
	outcomes outcome.Repository,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		conf:     conf,
		repo:     repo,
		profiles: profiles,
		outcomes: outcomes,
		mailSvc:  mailSvc,
		logger:   logger,
		now:      time.Now,
	}
}

// Apply merges `upd` into the student's record for its outcome.
// Failures are recorded on the pending update so that it can be retried later.
func (svc *Service) Apply(ctx context.Context, upd PendingUpdate) (Change, error) {
	chg, err := svc.repo.Apply(ctx, upd, func(prev *Record) (Record, error) {
		return Merge(prev, upd.Key, upd.Delta(), svc.now())
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyApplied {
			return chg, err
		}
		if mErr := svc.repo.MarkUpdateFailed(ctx, upd.ID, err.Error(), svc.now().UTC()); mErr != nil {
			svc.logger.Error("recording failed proficiency update", errors.Wrap(mErr, upd.ID))
		}
		return Change{}, errors.Wrapf(err, "applying update %s", upd.ID)
	}

	if chg.Reached(LevelMastery) {
		svc.notifyMastery(ctx, chg.After)
	}
	return chg, nil
}

func (svc *Service) Get(ctx context.Context, key Key) (Record, error) {
	return svc.repo.GetRecord(ctx, key)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

// Insights builds the student's recommendations, badges and stats, labelled with outcome and subject names.
func (svc *Service) Insights(ctx context.Context, studentID string) (Insights, error) {
	recs, err := svc.repo.QueryRecords(ctx, QueryFilter{StudentID: studentID})
	if err != nil {
		return Insights{}, errors.Wrap(err, "querying records")
	}

	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.OutcomeID
	}
	outcomes, subjects, err := outcome.NewService(svc.outcomes).Catalog(ctx, ids...)
	if err != nil {
		return Insights{}, errors.Wrap(err, "resolving outcomes")
	}

	labels := make(map[string]Label, len(outcomes))
	for id, o := range outcomes {
		lbl := Label{Outcome: o.Description, Subject: "Unknown subject"}
		if subj, ok := subjects[o.SubjectID]; ok {
			lbl.Subject = subj.Name
		}
		labels[id] = lbl
	}
	return BuildInsights(recs, labels), nil
}

func (svc *Service) QueryPending(ctx context.Context, triedBefore time.Time, limit int) ([]PendingUpdate, error) {
	return svc.repo.QueryPendingUpdates(ctx, triedBefore, limit)
}

func (svc *Service) CountPending(ctx context.Context, attemptID string) (int, error) {
	return svc.repo.CountPendingUpdates(ctx, attemptID)
}

type masteryBadgeData struct {
	Name       string
	Outcome    string
	Percentage float64
	Badge      string
}

func (svc *Service) notifyMastery(ctx context.Context, rec Record) {
	if svc.mailSvc == nil {
		return
	}
	student, err := svc.profiles.GetProfile(ctx, rec.StudentID)
	if err != nil {
		svc.logger.Warn("mastery badge: finding student", errors.Wrap(err, rec.StudentID))
		return
	}
	desc := "Unknown outcome"
	if o, err := svc.outcomes.GetOutcome(ctx, rec.OutcomeID); err == nil {
		desc = o.Description
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.FullName, Address: student.Email}},
		Subject:      fmt.Sprintf("Mastery reached: %s", desc),
		TemplateName: "mastery_badge",
		TemplateData: masteryBadgeData{
			Name:       student.FullName,
			Outcome:    desc,
			Percentage: rec.Percentage,
			Badge:      BadgeFor(rec.Percentage),
		},
	})
}
