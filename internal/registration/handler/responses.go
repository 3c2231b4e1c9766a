package handler

import (
	"time"

	"gtind/internal/gtin"
	"gtind/internal/registration/models"
)

// AssignmentResponse is the HTTP representation of one assignment. The
// distributable 13-digit form is derived on the way out; only the 12-digit
// allocation form is stored.
type AssignmentResponse struct {
	ProductRef           string     `json:"product_ref"`
	GTIN                 string     `json:"gtin"`
	GTIN13               string     `json:"gtin13"`
	ContractNumber       string     `json:"contract_number"`
	Status               string     `json:"status"`
	InvocationID         *string    `json:"invocation_id,omitempty"`
	ErrorMessage         *string    `json:"error_message,omitempty"`
	PackagingType        string     `json:"packaging_type,omitempty"`
	NetContent           *float64   `json:"net_content,omitempty"`
	MeasurementUnit      string     `json:"measurement_unit,omitempty"`
	ConsumerUnit         bool       `json:"consumer_unit"`
	GPCCode              *string    `json:"gpc_code,omitempty"`
	ExternalRegistration bool       `json:"external_registration"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	RegisteredAt         *time.Time `json:"registered_at,omitempty"`
}

// FromAssignment converts a domain assignment to its HTTP representation.
func FromAssignment(a *models.Assignment) *AssignmentResponse {
	gtin13, _ := gtin.AddCheckDigit(a.GTIN)
	return &AssignmentResponse{
		ProductRef:           a.ProductRef,
		GTIN:                 a.GTIN,
		GTIN13:               gtin13,
		ContractNumber:       a.ContractNumber,
		Status:               string(a.Status),
		InvocationID:         a.InvocationID,
		ErrorMessage:         a.ErrorMessage,
		PackagingType:        a.PackagingType,
		NetContent:           a.NetContent,
		MeasurementUnit:      a.MeasurementUnit,
		ConsumerUnit:         a.ConsumerUnit,
		GPCCode:              a.GPCCode,
		ExternalRegistration: a.ExternalRegistration,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
		RegisteredAt:         a.RegisteredAt,
	}
}

// PendingResponse is the HTTP response for GET /registration/pending.
type PendingResponse struct {
	InvocationIDs []string `json:"invocation_ids"`
}
