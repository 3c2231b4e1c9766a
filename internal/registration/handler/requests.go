package handler

import (
	"strings"

	"gtind/internal/registration/models"
	dErrors "gtind/pkg/domain-errors"
)

// AssignRequest is the HTTP request body for POST /gtin/assign.
type AssignRequest struct {
	ProductRefs    []string `json:"product_refs"`
	ContractNumber string   `json:"contract_number"`
	External       bool     `json:"external"`
}

func (r *AssignRequest) Validate() error {
	if len(r.ProductRefs) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "product_refs is required")
	}
	for i, ref := range r.ProductRefs {
		r.ProductRefs[i] = strings.TrimSpace(ref)
		if r.ProductRefs[i] == "" {
			return dErrors.New(dErrors.CodeBadRequest, "product_refs must not contain empty entries")
		}
	}
	return nil
}

// UnassignRequest is the HTTP request body for POST /gtin/unassign.
type UnassignRequest struct {
	ProductRefs []string `json:"product_refs"`
}

func (r *UnassignRequest) Validate() error {
	if len(r.ProductRefs) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "product_refs is required")
	}
	return nil
}

// ExternalRequest is the HTTP request body for POST /gtin/external.
type ExternalRequest struct {
	ProductRef     string `json:"product_ref"`
	GTIN           string `json:"gtin"`
	ContractNumber string `json:"contract_number"`
}

func (r *ExternalRequest) Validate() error {
	r.ProductRef = strings.TrimSpace(r.ProductRef)
	r.GTIN = strings.TrimSpace(r.GTIN)
	if r.ProductRef == "" {
		return dErrors.New(dErrors.CodeBadRequest, "product_ref is required")
	}
	if r.GTIN == "" {
		return dErrors.New(dErrors.CodeBadRequest, "gtin is required")
	}
	return nil
}

// SubmitRequest is the HTTP request body for POST /registration/submit.
type SubmitRequest struct {
	ProductRefs []string `json:"product_refs"`
}

func (r *SubmitRequest) Validate() error {
	if len(r.ProductRefs) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "product_refs is required")
	}
	return nil
}

// CheckRequest is the HTTP request body for POST /registration/check.
type CheckRequest struct {
	InvocationID string `json:"invocation_id"`
}

func (r *CheckRequest) Validate() error {
	// Operators paste the handle with the quotes the registry sent.
	r.InvocationID = strings.Trim(strings.TrimSpace(r.InvocationID), `"`)
	if r.InvocationID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "invocation_id is required")
	}
	return nil
}

// MetadataPayload mirrors models.Metadata on the wire. It deliberately has
// no GTIN or contract field.
type MetadataPayload struct {
	PackagingType   string   `json:"packaging_type"`
	NetContent      *float64 `json:"net_content"`
	MeasurementUnit string   `json:"measurement_unit"`
	ConsumerUnit    bool     `json:"consumer_unit"`
	GPCCode         *string  `json:"gpc_code"`
}

func (p MetadataPayload) ToMetadata() models.Metadata {
	return models.Metadata{
		PackagingType:   p.PackagingType,
		NetContent:      p.NetContent,
		MeasurementUnit: p.MeasurementUnit,
		ConsumerUnit:    p.ConsumerUnit,
		GPCCode:         p.GPCCode,
	}
}

// ForceUpdateRequest is the HTTP request body for POST /registration/force-update.
type ForceUpdateRequest struct {
	ProductRef string          `json:"product_ref"`
	Data       MetadataPayload `json:"data"`
	Force      bool            `json:"force"`
}

func (r *ForceUpdateRequest) Validate() error {
	r.ProductRef = strings.TrimSpace(r.ProductRef)
	if r.ProductRef == "" {
		return dErrors.New(dErrors.CodeBadRequest, "product_ref is required")
	}
	return nil
}
