package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gtind/pkg/domain-errors"
)

var testTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestNewAssignment(t *testing.T) {
	a, err := NewAssignment("id-1", "prod-1", "8719520500014", "C-1", testTime)
	require.NoError(t, err)
	assert.Equal(t, "871952050001", a.GTIN, "13-digit input stored in allocation form")
	assert.Equal(t, StatusPending, a.Status)

	_, err = NewAssignment("id-2", "", "000000000100", "C-1", testTime)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = NewAssignment("id-3", "prod-3", "not-a-gtin", "C-1", testTime)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidLength))
}

func TestExternalAssignmentIsTerminal(t *testing.T) {
	a, err := NewExternalAssignment("id-1", "prod-1", "000000000100", "C-9", testTime)
	require.NoError(t, err)
	assert.Equal(t, StatusRegistered, a.Status)
	assert.True(t, a.ExternalRegistration)
	require.NotNil(t, a.RegisteredAt)
	assert.Equal(t, testTime, *a.RegisteredAt)
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusPendingRegistration, true},
		{StatusPending, StatusRegistered, false},
		{StatusPending, StatusError, false},
		{StatusPendingRegistration, StatusRegistered, true},
		{StatusPendingRegistration, StatusError, true},
		{StatusPendingRegistration, StatusPending, false},
		{StatusError, StatusPendingRegistration, true},
		{StatusError, StatusRegistered, false},
		{StatusRegistered, StatusPendingRegistration, true},
		{StatusRegistered, StatusError, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestLifecycleStamps(t *testing.T) {
	a, err := NewAssignment("id-1", "prod-1", "000000000100", "C-1", testTime)
	require.NoError(t, err)

	later := testTime.Add(time.Minute)
	require.NoError(t, a.MarkSubmitted("inv-1", later))
	require.NotNil(t, a.InvocationID)
	assert.Equal(t, "inv-1", *a.InvocationID)
	assert.Equal(t, later, a.UpdatedAt)

	err = a.MarkSubmitted("inv-2", later)
	require.Error(t, err, "double submit is an illegal transition")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	done := later.Add(time.Hour)
	require.NoError(t, a.MarkRegistered(done))
	require.NotNil(t, a.RegisteredAt)
	assert.Equal(t, done, *a.RegisteredAt)
	assert.Nil(t, a.ErrorMessage)
}

func TestMetadataCannotTouchIdentifier(t *testing.T) {
	a, err := NewAssignment("id-1", "prod-1", "000000000100", "C-1", testTime)
	require.NoError(t, err)

	content := 2.5
	a.ApplyMetadata(Metadata{
		PackagingType:   "Doos",
		NetContent:      &content,
		MeasurementUnit: "Kilogram (1 kg)",
		ConsumerUnit:    true,
	}, testTime.Add(time.Second))

	assert.Equal(t, "000000000100", a.GTIN)
	assert.Equal(t, "C-1", a.ContractNumber)
	assert.Equal(t, "Doos", a.PackagingType)
}
