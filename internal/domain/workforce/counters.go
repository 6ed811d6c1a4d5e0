package workforce

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reconciler keeps employee_count on companies, departments and sites equal to
// the membership it summarizes. Every call recomputes from the source rows, so
// repeating a call without an intervening change is a no-op.
//
// Recounts lock the aggregate row. Within one transaction they always run
// departments, then sites, then companies, each kind in id order, so two
// transactions never wait on each other's locks in a cycle.
type Reconciler struct {
	counters CounterRepository
}

func NewReconciler(counters CounterRepository) *Reconciler {
	return &Reconciler{counters: counters}
}

// ReconcileAfterAssignmentChange recomputes one department or site (or company)
// counter and returns the stored value. A target deleted in the meantime is
// skipped and reported as 0.
func (r *Reconciler) ReconcileAfterAssignmentChange(ctx context.Context, target Target, id uuid.UUID) (int, error) {
	rc, found, err := r.counters.Recount(ctx, target, id)
	if err != nil {
		return 0, fmt.Errorf("recount %s %s: %w", target, id, err)
	}
	if !found {
		zerolog.Ctx(ctx).Debug().Str("target", string(target)).Stringer("id", id).Msg("counter target gone, skipping")
		return 0, nil
	}
	if rc.Before != rc.After {
		zerolog.Ctx(ctx).Info().
			Str("target", string(target)).
			Stringer("id", id).
			Int("before", rc.Before).
			Int("after", rc.After).
			Msg("employee count updated")
	}
	return rc.After, nil
}

// ReconcileAfterCompanyReassignment recomputes the counters of the company an
// employee left and the one they joined. Either may be nil.
func (r *Reconciler) ReconcileAfterCompanyReassignment(ctx context.Context, oldCompanyID, newCompanyID *uuid.UUID) error {
	var ids []uuid.UUID
	for _, id := range []*uuid.UUID{oldCompanyID, newCompanyID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	return r.reconcileMany(ctx, TargetCompany, ids)
}

// reconcileMany recomputes each id of one target kind in id order, skipping
// duplicates.
func (r *Reconciler) reconcileMany(ctx context.Context, target Target, ids []uuid.UUID) error {
	for _, id := range lockOrder(ids) {
		if _, err := r.ReconcileAfterAssignmentChange(ctx, target, id); err != nil {
			return err
		}
	}
	return nil
}

// lockOrder dedupes ids and sorts them the way Postgres orders uuids.
func lockOrder(ids []uuid.UUID) []uuid.UUID {
	out := dedupe(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return out
}

// ReconcileReport summarizes a full reconciliation pass.
type ReconcileReport struct {
	Companies   int `json:"companies"`
	Departments int `json:"departments"`
	Sites       int `json:"sites"`
	Corrected   int `json:"corrected"`
}

// ReconcileAll recomputes every counter owned by userID and reports how many
// had drifted.
func (r *Reconciler) ReconcileAll(ctx context.Context, userID string) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	for _, target := range []Target{TargetDepartment, TargetSite, TargetCompany} {
		ids, err := r.counters.OwnedIDs(ctx, target, userID)
		if err != nil {
			return nil, fmt.Errorf("list %s ids: %w", target, err)
		}
		for _, id := range ids {
			rc, found, err := r.counters.Recount(ctx, target, id)
			if err != nil {
				return nil, fmt.Errorf("recount %s %s: %w", target, id, err)
			}
			if !found {
				continue
			}
			switch target {
			case TargetCompany:
				report.Companies++
			case TargetDepartment:
				report.Departments++
			case TargetSite:
				report.Sites++
			}
			if rc.Before != rc.After {
				report.Corrected++
				zerolog.Ctx(ctx).Warn().
					Str("target", string(target)).
					Stringer("id", id).
					Int("stored", rc.Before).
					Int("actual", rc.After).
					Msg("employee count drift corrected")
			}
		}
	}
	return report, nil
}
