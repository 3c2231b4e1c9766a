// Package models defines the GTIN assignment record and its lifecycle.
// An assignment binds one product reference to one issued identifier; the
// identifier and its contract never change once written.
package models

import (
	"time"

	"gtind/internal/gtin"
	dErrors "gtind/pkg/domain-errors"
)

// Status is the closed set of assignment lifecycle states.
type Status string

const (
	// StatusPending: identifier issued, not yet submitted to the registry.
	StatusPending Status = "pending"
	// StatusPendingRegistration: submitted, awaiting asynchronous results.
	StatusPendingRegistration Status = "pending_registration"
	// StatusRegistered: confirmed by the registry, or backfilled as
	// externally registered.
	StatusRegistered Status = "registered"
	// StatusError: the registry rejected the product.
	StatusError Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPendingRegistration, StatusRegistered, StatusError:
		return true
	}
	return false
}

// CanTransitionTo enumerates the legal lifecycle moves. Registered and error
// records may re-enter submission: error after the operator fixes the data,
// registered through the forced data-correction path.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusPendingRegistration
	case StatusPendingRegistration:
		return next == StatusRegistered || next == StatusError
	case StatusError:
		return next == StatusPendingRegistration
	case StatusRegistered:
		return next == StatusPendingRegistration
	}
	return false
}

// Metadata is the mutable slice of an assignment. It deliberately carries no
// identifier or contract field, so an update cannot touch either.
type Metadata struct {
	PackagingType   string
	NetContent      *float64
	MeasurementUnit string
	ConsumerUnit    bool
	GPCCode         *string
}

// Assignment is one product's claim on an issued GTIN.
type Assignment struct {
	ID                   string
	ProductRef           string
	GTIN                 string
	ContractNumber       string
	Status               Status
	InvocationID         *string
	ErrorMessage         *string
	PackagingType        string
	NetContent           *float64
	MeasurementUnit      string
	ConsumerUnit         bool
	GPCCode              *string
	ExternalRegistration bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
	RegisteredAt         *time.Time
}

// NewAssignment creates a pending assignment for a freshly issued
// identifier. The GTIN is written here and nowhere else.
func NewAssignment(id, productRef, gtin12, contractNumber string, now time.Time) (*Assignment, error) {
	normalized, err := gtin.Normalize(gtin12)
	if err != nil {
		return nil, err
	}
	if productRef == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "product reference is required")
	}
	if contractNumber == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "contract number is required")
	}
	return &Assignment{
		ID:             id,
		ProductRef:     productRef,
		GTIN:           normalized,
		ContractNumber: contractNumber,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NewExternalAssignment backfills an identifier registered outside this
// system. It is born in the terminal registered state and is never submitted.
func NewExternalAssignment(id, productRef, gtin12, contractNumber string, now time.Time) (*Assignment, error) {
	a, err := NewAssignment(id, productRef, gtin12, contractNumber, now)
	if err != nil {
		return nil, err
	}
	a.Status = StatusRegistered
	a.ExternalRegistration = true
	a.RegisteredAt = &now
	return a, nil
}

// ApplyMetadata merges the mutable fields. The identifier and contract are
// untouched because Metadata cannot express them.
func (a *Assignment) ApplyMetadata(m Metadata, now time.Time) {
	a.PackagingType = m.PackagingType
	a.NetContent = m.NetContent
	a.MeasurementUnit = m.MeasurementUnit
	a.ConsumerUnit = m.ConsumerUnit
	a.GPCCode = m.GPCCode
	a.UpdatedAt = now
}

// MarkSubmitted stamps the invocation handle and moves the record into
// pending_registration.
func (a *Assignment) MarkSubmitted(invocationID string, now time.Time) error {
	if err := a.transition(StatusPendingRegistration); err != nil {
		return err
	}
	a.InvocationID = &invocationID
	a.ErrorMessage = nil
	a.UpdatedAt = now
	return nil
}

// MarkRegistered records a registry-confirmed success.
func (a *Assignment) MarkRegistered(now time.Time) error {
	if err := a.transition(StatusRegistered); err != nil {
		return err
	}
	a.ErrorMessage = nil
	a.RegisteredAt = &now
	a.UpdatedAt = now
	return nil
}

// MarkError records a registry rejection with the provider's message.
func (a *Assignment) MarkError(message string, now time.Time) error {
	if err := a.transition(StatusError); err != nil {
		return err
	}
	a.ErrorMessage = &message
	a.UpdatedAt = now
	return nil
}

func (a *Assignment) transition(next Status) error {
	if !a.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"assignment %s cannot move from %s to %s", a.GTIN, a.Status, next)
	}
	a.Status = next
	return nil
}
