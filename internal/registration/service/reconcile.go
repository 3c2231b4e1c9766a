package service

import (
	"context"
	"errors"

	"gtind/internal/gtin"
	"gtind/internal/registration/models"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/platform/sentinel"
	"gtind/pkg/requestcontext"
)

// ReconcileReport summarizes one reconciliation pass. Unmatched counts
// result entries that changed nothing, which is expected on repeated runs.
type ReconcileReport struct {
	InvocationID string   `json:"invocation_id"`
	Registered   []string `json:"registered"`
	Errored      []string `json:"errored"`
	Unmatched    int      `json:"unmatched"`
}

// ReconcileResults fetches the asynchronous outcome of one batch submission
// and applies it to the matching assignments. The operation is idempotent: a
// second run with the same results changes nothing, and assignments absent
// from both result lists stay pending for the next poll.
func (s *Service) ReconcileResults(ctx context.Context, invocationID string) (*ReconcileReport, error) {
	results, err := s.registry.FetchResults(ctx, invocationID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	report := &ReconcileReport{InvocationID: invocationID}

	for _, p := range results.SuccessfulProducts {
		if p.GTIN == "" {
			report.Unmatched++
			continue
		}
		a, err := s.matchByEchoedGTIN(ctx, p.GTIN, invocationID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				s.metrics.IncrementReconciliation("unmatched")
				report.Unmatched++
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment lookup failed")
		}
		if a.Status != models.StatusPendingRegistration {
			// Already applied by an earlier run.
			continue
		}
		if err := a.MarkRegistered(now); err != nil {
			return nil, err
		}
		if err := s.store.Update(ctx, a, models.StatusPendingRegistration); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment update failed")
		}
		s.metrics.IncrementReconciliation("registered")
		report.Registered = append(report.Registered, a.GTIN)
	}

	for _, e := range results.ErrorMessages {
		if e.ContractNumber == "" {
			report.Unmatched++
			continue
		}
		a, err := s.store.FindPendingByContractAndInvocation(ctx, e.ContractNumber, invocationID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				s.metrics.IncrementReconciliation("unmatched")
				report.Unmatched++
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment lookup failed")
		}
		if err := a.MarkError(e.Message(), now); err != nil {
			return nil, err
		}
		if err := s.store.Update(ctx, a, models.StatusPendingRegistration); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "assignment update failed")
		}
		s.metrics.IncrementReconciliation("error")
		report.Errored = append(report.Errored, a.GTIN)
	}

	s.logger.InfoContext(ctx, "reconciliation finished",
		"request_id", requestcontext.RequestID(ctx),
		"invocation_id", invocationID,
		"registered", len(report.Registered),
		"errored", len(report.Errored),
		"unmatched", report.Unmatched,
	)
	s.emitAudit(ctx, "registration_reconciled", map[string]any{
		"invocation_id": invocationID,
		"registered":    report.Registered,
		"errored":       report.Errored,
		"unmatched":     report.Unmatched,
	})
	return report, nil
}

// PendingInvocations lists the distinct invocation handles still awaiting
// results. The poll scheduler iterates these sequentially with a pause
// between handles; scheduling itself stays outside this service.
func (s *Service) PendingInvocations(ctx context.Context) ([]string, error) {
	ids, err := s.store.PendingInvocations(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "pending invocation lookup failed")
	}
	s.metrics.SetPendingInvocations(float64(len(ids)))
	return ids, nil
}

// matchByEchoedGTIN locates the assignment for an identifier as the registry
// echoed it. The echo may carry an appended check digit, a prepended zero,
// or both, so every plausible 12-digit reading is tried.
func (s *Service) matchByEchoedGTIN(ctx context.Context, echoed, invocationID string) (*models.Assignment, error) {
	for _, candidate := range echoCandidates(echoed) {
		a, err := s.store.FindByGTINAndInvocation(ctx, candidate, invocationID)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
	}
	return nil, sentinel.ErrNotFound
}

func echoCandidates(echoed string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(raw string) {
		normalized, err := gtin.Normalize(raw)
		if err != nil {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}

	switch len(echoed) {
	case gtin.Length13 + 1:
		// Leading zero plus check digit.
		add(echoed[1 : len(echoed)-1])
	case gtin.Length13:
		// Either a check digit was appended or a zero was prepended.
		add(echoed[:gtin.Length12])
		add(echoed[1:])
	default:
		add(echoed)
	}
	return out
}
