package service

import (
	"context"
	"errors"
	"strconv"

	"gtind/internal/allocator/models"
	"gtind/internal/gtin"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/platform/sentinel"
	"gtind/pkg/requestcontext"
)

// AllocateNext issues the next unused 12-digit GTIN for the contract. The
// candidate is lastUsed+1 (or the range start on first use). Before the value
// is handed out, the assignment index is checked for historical writes
// holding the value; a collision advances the candidate to one past
// the highest assigned value in the range and retries exactly once. The
// whole computation runs inside the store's Advance callback, so concurrent
// callers for the same contract are serialized.
func (s *Service) AllocateNext(ctx context.Context, contractNumber string) (string, error) {
	if contractNumber == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "contract number is required")
	}

	issued, err := s.ranges.Advance(ctx, contractNumber, func(r *models.Range) (string, error) {
		candidate, err := r.NextCandidate()
		if err != nil {
			return "", err
		}

		exists, err := s.assignments.GTINExists(ctx, candidate)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "duplicate check failed")
		}
		if exists {
			s.metrics.IncrementCollision()
			s.logger.WarnContext(ctx, "allocation candidate already assigned, retrying past range maximum",
				"contract", contractNumber,
				"candidate", candidate,
			)
			candidate, err = s.pastRangeMaximum(ctx, r)
			if err != nil {
				return "", err
			}
			exists, err = s.assignments.GTINExists(ctx, candidate)
			if err != nil {
				return "", dErrors.Wrap(err, dErrors.CodeInternal, "duplicate re-check failed")
			}
			if exists {
				return "", dErrors.Newf(dErrors.CodeDuplicateIdentifier, "GTIN %s already assigned", candidate)
			}
		}

		r.UpdatedAt = requestcontext.Now(ctx)
		return candidate, nil
	})
	if err != nil {
		s.metrics.IncrementAllocation(contractNumber, outcomeOf(err))
		return "", s.wrapRangeErr(err, contractNumber)
	}

	s.metrics.IncrementAllocation(contractNumber, "issued")
	s.logger.InfoContext(ctx, "GTIN allocated",
		"request_id", requestcontext.RequestID(ctx),
		"contract", contractNumber,
		"gtin", issued,
	)
	return issued, nil
}

// pastRangeMaximum computes max(assigned in range)+1, bounded by the range
// end. Used only after a detected collision.
func (s *Service) pastRangeMaximum(ctx context.Context, r *models.Range) (string, error) {
	highest, err := s.assignments.MaxAssignedInRange(ctx, r.ContractNumber, r.StartNumber, r.EndNumber)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "range maximum lookup failed")
	}
	if highest == "" {
		return r.NextCandidate()
	}
	n, err := strconv.ParseInt(highest, 10, 64)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "malformed assigned GTIN")
	}
	candidate := models.Pad12(n + 1)
	if !r.Contains(candidate) {
		return "", dErrors.Newf(dErrors.CodeExhausted, "range for contract %s is exhausted", r.ContractNumber)
	}
	return candidate, nil
}

// ResetLastUsed clears the high-water mark so the next allocation restarts
// from the range start. Bypasses collision checks; careless use can issue
// values that collide with existing assignments.
func (s *Service) ResetLastUsed(ctx context.Context, contractNumber string) error {
	if err := s.ranges.SetLastUsed(ctx, contractNumber, nil); err != nil {
		return s.wrapRangeErr(err, contractNumber)
	}
	s.logger.WarnContext(ctx, "range high-water mark reset",
		"request_id", requestcontext.RequestID(ctx),
		"contract", contractNumber,
	)
	return nil
}

// SetLastUsed overwrites the high-water mark with an operator-supplied value.
// The value must lie within the contract's range. Bypasses collision checks.
func (s *Service) SetLastUsed(ctx context.Context, contractNumber, value string) error {
	value12, err := gtin.Normalize(value)
	if err != nil {
		return err
	}
	r, err := s.ranges.FindByContract(ctx, contractNumber)
	if err != nil {
		return s.wrapRangeErr(err, contractNumber)
	}
	if !r.Contains(value12) {
		return dErrors.Newf(dErrors.CodeBadRequest,
			"value %s lies outside range [%s, %s]", value12, r.StartNumber, r.EndNumber)
	}
	if err := s.ranges.SetLastUsed(ctx, contractNumber, &value12); err != nil {
		return s.wrapRangeErr(err, contractNumber)
	}
	s.logger.WarnContext(ctx, "range high-water mark overridden",
		"request_id", requestcontext.RequestID(ctx),
		"contract", contractNumber,
		"last_used", value12,
	)
	return nil
}

// ListRanges returns every known range ordered by contract and start.
func (s *Service) ListRanges(ctx context.Context) ([]*models.Range, error) {
	ranges, err := s.ranges.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ranges")
	}
	for _, r := range ranges {
		s.metrics.SetRemaining(r.ContractNumber, float64(r.Capacity-r.Used()))
	}
	return ranges, nil
}

// ReplaceRanges installs a freshly synced range set, discarding everything
// previously cached. The registry is authoritative: merging could leave a
// stale high-water mark pointing into a reissued range.
func (s *Service) ReplaceRanges(ctx context.Context, ranges []*models.Range) error {
	if err := s.ranges.ReplaceAll(ctx, ranges); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace ranges")
	}
	for _, r := range ranges {
		s.metrics.SetRemaining(r.ContractNumber, float64(r.Capacity-r.Used()))
	}
	s.logger.InfoContext(ctx, "ranges replaced from sync",
		"request_id", requestcontext.RequestID(ctx),
		"count", len(ranges),
	)
	return nil
}

func (s *Service) wrapRangeErr(err error, contractNumber string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Newf(dErrors.CodeRangeNotFound, "no range for contract %s", contractNumber)
	case dErrors.HasCode(err, dErrors.CodeExhausted),
		dErrors.HasCode(err, dErrors.CodeDuplicateIdentifier),
		dErrors.HasCode(err, dErrors.CodeBadRequest),
		dErrors.HasCode(err, dErrors.CodeInternal),
		dErrors.HasCode(err, dErrors.CodeInvalidLength):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "range store failure")
	}
}

func outcomeOf(err error) string {
	if dErrors.HasCode(err, dErrors.CodeExhausted) {
		return "exhausted"
	}
	return "error"
}
