package models

import (
	"time"

	dErrors "gtind/pkg/domain-errors"
)

// Category classifies a reference item. The set is closed; submissions may
// only reference items from these three lists.
type Category string

const (
	CategoryPackaging     Category = "packaging"
	CategoryMeasurement   Category = "measurement"
	CategoryTargetCountry Category = "targetCountry"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryPackaging, CategoryMeasurement, CategoryTargetCountry:
		return true
	}
	return false
}

// Item is an administrator-curated enumerated value. LabelNL is the value the
// registry expects on the wire; LabelEN is shown in tooling. Target-country
// items additionally carry an ISO code.
type Item struct {
	ID        int64     `json:"id"`
	Category  Category  `json:"category"`
	LabelNL   string    `json:"label_nl"`
	LabelEN   string    `json:"label_en"`
	Code      *string   `json:"code,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate enforces the per-category shape: countries require a code, the
// other categories must not carry one.
func (i *Item) Validate() error {
	if !i.Category.Valid() {
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown reference category %q", i.Category)
	}
	if i.LabelNL == "" || i.LabelEN == "" {
		return dErrors.New(dErrors.CodeBadRequest, "both labels are required")
	}
	hasCode := i.Code != nil && *i.Code != ""
	if i.Category == CategoryTargetCountry && !hasCode {
		return dErrors.New(dErrors.CodeBadRequest, "target country items require a country code")
	}
	if i.Category != CategoryTargetCountry && hasCode {
		return dErrors.Newf(dErrors.CodeBadRequest, "%s items must not carry a code", i.Category)
	}
	return nil
}

// CategoryMapping links a product category to the external taxonomy (GPC)
// code submitted to the registry. One mapping per category reference.
type CategoryMapping struct {
	ID          int64     `json:"id"`
	CategoryRef string    `json:"category_ref"`
	GPCCode     string    `json:"gpc_code"`
	GPCTitle    string    `json:"gpc_title"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m *CategoryMapping) Validate() error {
	if m.CategoryRef == "" || m.GPCCode == "" || m.GPCTitle == "" {
		return dErrors.New(dErrors.CodeBadRequest, "category ref, GPC code and title are required")
	}
	return nil
}
