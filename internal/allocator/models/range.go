package models

import (
	"strconv"
	"time"

	"gtind/internal/gtin"
	dErrors "gtind/pkg/domain-errors"
)

// Range is a block of consecutive GTIN values purchased from the numbering
// authority, scoped by a contract number.
//
// Invariants:
//   - StartNumber and EndNumber are 12-digit allocation-form GTINs
//   - StartNumber <= LastUsed <= EndNumber whenever LastUsed is set
//   - Capacity = EndNumber - StartNumber + 1
//   - LastUsed only advances through the allocator; administrative overrides
//     (reset, set) bypass collision checks and are logged as such
type Range struct {
	ID             int64      `json:"id"`
	ContractNumber string     `json:"contract_number"`
	StartNumber    string     `json:"start_number"`
	EndNumber      string     `json:"end_number"`
	LastUsed       *string    `json:"last_used,omitempty"`
	Capacity       int64      `json:"capacity"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewRange validates and constructs a range. Start and end may arrive in the
// 13-digit distributable form from the registry; both are normalized to the
// allocation form here.
func NewRange(contractNumber, start, end string, now time.Time) (*Range, error) {
	if contractNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contract number cannot be empty")
	}
	start12, err := gtin.Normalize(start)
	if err != nil {
		return nil, err
	}
	end12, err := gtin.Normalize(end)
	if err != nil {
		return nil, err
	}
	startN := mustNumeric(start12)
	endN := mustNumeric(end12)
	if endN < startN {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "range end precedes range start")
	}
	return &Range{
		ContractNumber: contractNumber,
		StartNumber:    start12,
		EndNumber:      end12,
		Capacity:       endN - startN + 1,
		UpdatedAt:      now,
	}, nil
}

// Contains reports whether a 12-digit value lies within [start, end].
func (r *Range) Contains(gtin12 string) bool {
	n, err := strconv.ParseInt(gtin12, 10, 64)
	if err != nil {
		return false
	}
	return n >= mustNumeric(r.StartNumber) && n <= mustNumeric(r.EndNumber)
}

// NextCandidate computes the next value the allocator would hand out, or an
// exhausted error when the range has no values left.
func (r *Range) NextCandidate() (string, error) {
	next := mustNumeric(r.StartNumber)
	if r.LastUsed != nil {
		last, err := gtin.Normalize(*r.LastUsed)
		if err != nil {
			return "", err
		}
		next = mustNumeric(last) + 1
	}
	if next > mustNumeric(r.EndNumber) {
		return "", dErrors.Newf(dErrors.CodeExhausted, "range for contract %s is exhausted", r.ContractNumber)
	}
	return pad12(next), nil
}

// Used reports how many values have been issued so far.
func (r *Range) Used() int64 {
	if r.LastUsed == nil {
		return 0
	}
	return mustNumeric(*r.LastUsed) - mustNumeric(r.StartNumber) + 1
}

func pad12(n int64) string {
	s := strconv.FormatInt(n, 10)
	for len(s) < gtin.Length12 {
		s = "0" + s
	}
	return s
}

// Pad12 left-zero-pads a numeric value to the 12-digit allocation form.
func Pad12(n int64) string { return pad12(n) }

func mustNumeric(gtin12 string) int64 {
	n, _ := strconv.ParseInt(gtin12, 10, 64)
	return n
}
