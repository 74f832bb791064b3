package service

import (
	"testing"
	"time"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/stretchr/testify/assert"
)

func TestClassifyBoundaries(t *testing.T) {
	warning := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	sla := time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	escalation := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	task := &entity.Task{
		WarningDeadline:    &warning,
		SLADeadline:        &sla,
		EscalationDeadline: &escalation,
	}

	cases := []struct {
		now  time.Time
		want SLAClass
	}{
		{time.Date(2025, 1, 9, 23, 59, 0, 0, time.UTC), SLAGreen},
		{time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), SLAYellow},
		{time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC), SLAYellow},
		{time.Date(2025, 1, 12, 0, 1, 0, 0, time.UTC), SLAOrange},
		{time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), SLAOrange},
		{time.Date(2025, 1, 13, 0, 1, 0, 0, time.UTC), SLARed},
	}

	for _, tc := range cases {
		got := Classify(task, tc.now)
		assert.Equal(t, tc.want, got, "now=%s", tc.now)
	}
}

func TestClassifyNoSLA(t *testing.T) {
	assert.Equal(t, SLANone, Classify(&entity.Task{}, time.Now()))
}

func TestClassifyMissingWarningTier(t *testing.T) {
	sla := time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	task := &entity.Task{SLADeadline: &sla}

	// no warning deadline: everything up to the SLA is already yellow
	assert.Equal(t, SLAYellow, Classify(task, sla.Add(-time.Hour)))
	assert.Equal(t, SLAYellow, Classify(task, sla))

	// no escalation deadline: anything past the SLA stays orange
	assert.Equal(t, SLAOrange, Classify(task, sla.Add(30*24*time.Hour)))
}
