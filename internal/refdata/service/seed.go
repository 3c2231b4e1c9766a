package service

import (
	"context"

	"gtind/internal/refdata/models"
	dErrors "gtind/pkg/domain-errors"
	"gtind/pkg/requestcontext"
)

type seedEntry struct {
	labelNL string
	labelEN string
	code    string
}

// Default vocabulary accepted by the registry. The NL label is the exact
// on-wire value.
var defaultItems = map[models.Category][]seedEntry{
	models.CategoryPackaging: {
		{labelNL: "Doos", labelEN: "Box"},
		{labelNL: "Zak", labelEN: "Bag"},
		{labelNL: "Niet verpakt", labelEN: "Unpackaged"},
		{labelNL: "Pot", labelEN: "Jar"},
		{labelNL: "Hoesje", labelEN: "Sleeve"},
		{labelNL: "Blisterverpakking", labelEN: "Blister pack"},
		{labelNL: "Kaart", labelEN: "Card"},
		{labelNL: "Tube", labelEN: "Tube"},
	},
	models.CategoryMeasurement: {
		{labelNL: "Stuks", labelEN: "Pieces"},
		{labelNL: "Paar", labelEN: "Pair"},
		{labelNL: "Sets", labelEN: "Sets"},
		{labelNL: "Kilogram (1 kg)", labelEN: "Kilogram (1 kg)"},
		{labelNL: "Gram (0.001 kg)", labelEN: "Gram (0.001 kg)"},
	},
	models.CategoryTargetCountry: {
		{labelNL: "Europese Unie", labelEN: "European Union", code: "EU"},
		{labelNL: "Nederland", labelEN: "Netherlands", code: "NL"},
		{labelNL: "België", labelEN: "Belgium", code: "BE"},
		{labelNL: "Duitsland", labelEN: "Germany", code: "DE"},
	},
}

// Seed installs the default reference vocabulary on first initialization.
// Idempotent: when any item already exists the seed is skipped entirely, so
// operator edits survive restarts.
func (s *Service) Seed(ctx context.Context) error {
	n, err := s.store.Count(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count reference items")
	}
	if n > 0 {
		return nil
	}

	now := requestcontext.Now(ctx)
	seeded := 0
	for category, entries := range defaultItems {
		for _, e := range entries {
			item := &models.Item{
				Category:  category,
				LabelNL:   e.labelNL,
				LabelEN:   e.labelEN,
				IsActive:  true,
				CreatedAt: now,
			}
			if e.code != "" {
				code := e.code
				item.Code = &code
			}
			if _, err := s.store.Save(ctx, item); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed reference items")
			}
			seeded++
		}
	}
	s.logger.InfoContext(ctx, "reference data seeded", "items", seeded)
	return nil
}
