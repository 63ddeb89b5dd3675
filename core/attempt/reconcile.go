package attempt

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core/proficiency"
	"github.com/trezcool/kipimo/core/worker"
)

type attemptOutcome struct {
	applied    int
	failed     int
	aggregated bool
}

// Reconcile retries the pending outcome updates left behind by failed aggregations and flips their
// attempts to aggregated once none is left. Updates are grouped per attempt and groups run concurrently.
func (svc *Service) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	triedBefore := svc.now().UTC().Add(-svc.conf.Worker.RetryBackoff)
	updates, err := svc.aggregator.QueryPending(ctx, triedBefore, svc.conf.Worker.BatchSize)
	if err != nil {
		return res, errors.Wrap(err, "querying pending updates")
	}
	if len(updates) == 0 {
		return res, nil
	}

	groups := make(map[string][]proficiency.PendingUpdate)
	order := make([]string, 0)
	for _, upd := range updates {
		if _, ok := groups[upd.AttemptID]; !ok {
			order = append(order, upd.AttemptID)
		}
		groups[upd.AttemptID] = append(groups[upd.AttemptID], upd)
	}

	pool := worker.NewPool[attemptOutcome](svc.conf.Worker.Workers, len(groups))
	for _, attemptID := range order {
		attemptID, group := attemptID, groups[attemptID]
		pool.Submit(attemptID, func() attemptOutcome {
			return svc.reconcileAttempt(ctx, attemptID, group)
		})
	}
	pool.Close()

	for r := range pool.Results() {
		res.Applied += r.Output.applied
		res.Failed += r.Output.failed
		if r.Output.aggregated {
			res.Aggregated++
		}
	}
	return res, nil
}

func (svc *Service) reconcileAttempt(ctx context.Context, attemptID string, updates []proficiency.PendingUpdate) attemptOutcome {
	var out attemptOutcome
	for _, upd := range updates {
		_, err := svc.aggregator.Apply(ctx, upd)
		switch {
		case err == nil:
			out.applied++
		case errors.Cause(err) == proficiency.ErrAlreadyApplied:
		default:
			out.failed++
			svc.logger.Warn("retrying proficiency update", err, map[string]interface{}{
				"attempt_id": attemptID,
				"update_id":  upd.ID,
			})
		}
	}
	if out.failed > 0 {
		return out
	}

	left, err := svc.aggregator.CountPending(ctx, attemptID)
	if err != nil {
		svc.logger.Error("counting pending updates", err, map[string]interface{}{"attempt_id": attemptID})
		return out
	}
	if left == 0 {
		if err := svc.repo.MarkAggregated(ctx, attemptID, svc.now().UTC()); err != nil {
			svc.logger.Error("marking attempt aggregated", err, map[string]interface{}{"attempt_id": attemptID})
			return out
		}
		out.aggregated = true
	}
	return out
}
