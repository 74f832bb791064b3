package service

import (
	"context"
	"time"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/sandrello1971/intelligencehub/internal/hub/repository"
)

// SLAClass is the timeliness classification of a task.
type SLAClass string

const (
	SLAGreen  SLAClass = "GREEN"
	SLAYellow SLAClass = "YELLOW"
	SLAOrange SLAClass = "ORANGE"
	SLARed    SLAClass = "RED"
	SLANone   SLAClass = "NO_SLA"
)

// SLAService classifies open tasks against their deadline tiers and
// drives the monitoring view.
type SLAService struct {
	taskRepo *repository.TaskRepository
}

func NewSLAService(taskRepo *repository.TaskRepository) *SLAService {
	return &SLAService{taskRepo: taskRepo}
}

// Classify maps a task to its SLA class at the given instant.
// Boundaries: warning ≤ now ≤ sla is YELLOW, sla < now ≤ escalation is
// ORANGE, past escalation is RED.
func Classify(task *entity.Task, now time.Time) SLAClass {
	if task.SLADeadline == nil {
		return SLANone
	}
	if task.WarningDeadline != nil && now.Before(*task.WarningDeadline) {
		return SLAGreen
	}
	if !now.After(*task.SLADeadline) {
		return SLAYellow
	}
	if task.EscalationDeadline == nil || !now.After(*task.EscalationDeadline) {
		return SLAOrange
	}
	return SLARed
}

// SLAReport is the monitoring view: per-class counts plus the ten
// most urgent tasks of each class by sla_deadline ascending.
type SLAReport struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Counts      map[SLAClass]int        `json:"counts"`
	Top         map[SLAClass][]entity.Task `json:"top"`
}

const slaReportTopN = 10

// Monitor builds the SLA report over all open tasks.
func (s *SLAService) Monitor(ctx context.Context) (*SLAReport, error) {
	now := time.Now()
	report := &SLAReport{
		GeneratedAt: now,
		Counts:      map[SLAClass]int{SLAGreen: 0, SLAYellow: 0, SLAOrange: 0, SLARed: 0, SLANone: 0},
		Top:         map[SLAClass][]entity.Task{},
	}

	withSLA, err := s.taskRepo.FindOpenWithSLA(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range withSLA {
		class := Classify(&t, now)
		report.Counts[class]++
		if len(report.Top[class]) < slaReportTopN {
			report.Top[class] = append(report.Top[class], t)
		}
	}

	withoutSLA, err := s.taskRepo.FindOpenWithoutSLA(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range withoutSLA {
		report.Counts[SLANone]++
		if len(report.Top[SLANone]) < slaReportTopN {
			report.Top[SLANone] = append(report.Top[SLANone], t)
		}
	}

	return report, nil
}
