package service

import (
	"context"

	allocmodels "gtind/internal/allocator/models"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/requestcontext"
)

// SyncRanges refreshes the allocator's ranges from the registry. The
// response is authoritative: every cached range is replaced so a stale
// high-water mark cannot survive a provider-side reissue.
func (s *Service) SyncRanges(ctx context.Context) ([]*allocmodels.Range, error) {
	remote, err := s.registry.FetchRanges(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	ranges := make([]*allocmodels.Range, 0, len(remote))
	for _, cr := range remote {
		r, err := allocmodels.NewRange(cr.ContractNumber, cr.StartNumber, cr.EndNumber, now)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeRegistryRejected, "registry returned an unusable range")
		}
		ranges = append(ranges, r)
	}

	if err := s.allocator.ReplaceRanges(ctx, ranges); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ranges synced",
		"request_id", requestcontext.RequestID(ctx),
		"count", len(ranges),
	)
	s.emitAudit(ctx, "ranges_synced", map[string]any{"count": len(ranges)})
	return ranges, nil
}
