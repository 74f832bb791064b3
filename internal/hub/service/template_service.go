package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/sandrello1971/intelligencehub/internal/hub/repository"
)

var (
	// ErrTemplateMissing means no single default workflow is configured.
	ErrTemplateMissing = errors.New("default workflow template missing or ambiguous")
)

// TemplateService is the workflow template registry: the default
// workflow, its ordered milestones, and each milestone's ordered tasks.
type TemplateService struct {
	templateRepo *repository.TemplateRepository
}

func NewTemplateService(templateRepo *repository.TemplateRepository) *TemplateService {
	return &TemplateService{templateRepo: templateRepo}
}

// Default returns the default workflow template, validated.
// Exactly one template must be flagged default.
func (s *TemplateService) Default(ctx context.Context) (*entity.WorkflowTemplate, error) {
	n, err := s.templateRepo.CountDefaults(ctx)
	if err != nil {
		return nil, err
	}
	if n != 1 {
		return nil, ErrTemplateMissing
	}

	wt, err := s.templateRepo.FindDefault(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateMissing
		}
		return nil, err
	}
	if err := ValidateTemplate(wt); err != nil {
		return nil, err
	}
	return wt, nil
}

// MilestonesOf returns the milestones of a workflow, order ascending.
func (s *TemplateService) MilestonesOf(wt *entity.WorkflowTemplate) []entity.MilestoneTemplate {
	ms := make([]entity.MilestoneTemplate, len(wt.Milestones))
	copy(ms, wt.Milestones)
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Order < ms[j].Order })
	return ms
}

// TasksOf returns the tasks of a milestone template, order ascending.
func (s *TemplateService) TasksOf(mt *entity.MilestoneTemplate) []entity.TaskTemplate {
	ts := make([]entity.TaskTemplate, len(mt.Tasks))
	copy(ts, mt.Tasks)
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].Order < ts[j].Order })
	return ts
}

// ValidateTemplate checks registry invariants: dense 1-based orders
// for milestones and tasks, positive SLA tiers, warning within SLA.
func ValidateTemplate(wt *entity.WorkflowTemplate) error {
	if err := checkDenseOrders(milestoneOrders(wt.Milestones)); err != nil {
		return fmt.Errorf("workflow %q milestones: %w", wt.Name, err)
	}
	for i := range wt.Milestones {
		mt := &wt.Milestones[i]
		if mt.SLADays <= 0 || mt.WarningDays <= 0 || mt.EscalationDays <= 0 {
			return fmt.Errorf("milestone %q: SLA tiers must be positive", mt.Name)
		}
		if mt.WarningDays > mt.SLADays {
			return fmt.Errorf("milestone %q: warning_days exceeds sla_days", mt.Name)
		}
		if err := checkDenseOrders(taskOrders(mt.Tasks)); err != nil {
			return fmt.Errorf("milestone %q tasks: %w", mt.Name, err)
		}
	}
	return nil
}

func milestoneOrders(ms []entity.MilestoneTemplate) []int {
	out := make([]int, len(ms))
	for i, m := range ms {
		out[i] = m.Order
	}
	return out
}

func taskOrders(ts []entity.TaskTemplate) []int {
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = t.Order
	}
	return out
}

func checkDenseOrders(orders []int) error {
	sort.Ints(orders)
	for i, o := range orders {
		if o != i+1 {
			return fmt.Errorf("orders must be dense 1..%d, found %d at position %d", len(orders), o, i+1)
		}
	}
	return nil
}
