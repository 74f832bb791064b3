package service

import (
	"testing"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWorkflow() *entity.WorkflowTemplate {
	return &entity.WorkflowTemplate{
		ID:        "wf-1",
		Name:      "Workflow Commerciale Standard",
		IsDefault: true,
		Milestones: []entity.MilestoneTemplate{
			{
				ID: "mt-2", WorkflowTemplateID: "wf-1", Name: "firma incarico", Order: 2,
				SLADays: 10, WarningDays: 3, EscalationDays: 2,
				Tasks: []entity.TaskTemplate{
					{ID: "tt-3", MilestoneTemplateID: "mt-2", Name: "raccolta firme", Order: 1, EstimatedHours: 4},
				},
			},
			{
				ID: "mt-1", WorkflowTemplateID: "wf-1", Name: "invio incarico in firma", Order: 1,
				SLADays: 7, WarningDays: 2, EscalationDays: 3,
				Tasks: []entity.TaskTemplate{
					{ID: "tt-2", MilestoneTemplateID: "mt-1", Name: "preparazione incarico", Order: 2, EstimatedHours: 8},
					{ID: "tt-1", MilestoneTemplateID: "mt-1", Name: "verifica dati cliente", Order: 1, EstimatedHours: 2},
				},
			},
		},
	}
}

func TestValidateTemplateAcceptsWellFormed(t *testing.T) {
	require.NoError(t, ValidateTemplate(validWorkflow()))
}

func TestValidateTemplateRejectsSparseMilestoneOrders(t *testing.T) {
	wf := validWorkflow()
	wf.Milestones[0].Order = 3
	err := ValidateTemplate(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dense")
}

func TestValidateTemplateRejectsSparseTaskOrders(t *testing.T) {
	wf := validWorkflow()
	wf.Milestones[1].Tasks[0].Order = 5
	require.Error(t, ValidateTemplate(wf))
}

func TestValidateTemplateRejectsNonPositiveSLATiers(t *testing.T) {
	wf := validWorkflow()
	wf.Milestones[0].SLADays = 0
	require.Error(t, ValidateTemplate(wf))

	wf = validWorkflow()
	wf.Milestones[0].EscalationDays = -1
	require.Error(t, ValidateTemplate(wf))
}

func TestValidateTemplateRejectsWarningBeyondSLA(t *testing.T) {
	wf := validWorkflow()
	wf.Milestones[0].WarningDays = wf.Milestones[0].SLADays + 1
	err := ValidateTemplate(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warning_days")
}

func TestMilestonesAndTasksAreSorted(t *testing.T) {
	svc := NewTemplateService(nil)
	wf := validWorkflow()

	ms := svc.MilestonesOf(wf)
	require.Len(t, ms, 2)
	assert.Equal(t, "invio incarico in firma", ms[0].Name)
	assert.Equal(t, "firma incarico", ms[1].Name)

	ts := svc.TasksOf(&ms[0])
	require.Len(t, ts, 2)
	assert.Equal(t, "verifica dati cliente", ts[0].Name)
	assert.Equal(t, "preparazione incarico", ts[1].Name)

	// accessors return copies; the template itself is untouched
	assert.Equal(t, 2, wf.Milestones[0].Order)
}
