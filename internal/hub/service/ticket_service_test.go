package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/sandrello1971/intelligencehub/internal/hub/repository"
	"github.com/sandrello1971/intelligencehub/internal/hub/testutil"
	"gorm.io/gorm"
)

// materializeFixture creates a full ticket tree through the
// materializer so transition tests run against real shapes.
func materializeFixture(t *testing.T, taskCount int) (*gorm.DB, *repository.Repositories, *TicketService, *fakeAnnotator, *MaterializationResult) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	ctx := context.Background()

	catalog := NewCatalogService(repos.Kit)
	templates := NewTemplateService(repos.Template)
	materializer := NewMaterializerService(db, catalog, templates, repos.Ticket, repos.Activity, repos.User, repos.Company, nil)

	seedKitSOF(t, db, nil)
	seedDefaultWorkflow(t, db, taskCount)
	testutil.SeedTestUser(t, db, "user-mario", 126370, "Mario Rossi")
	if err := catalog.Load(ctx); err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}

	activity := seedIntelligenceActivity(t, repos, 725155,
		"startoffice finance", "richiesta", 126370, 0)
	res := materializer.Materialize(ctx, activity)
	if !res.Created() {
		t.Fatalf("Fixture materialization failed: %v", res.Errors)
	}

	annotator := &fakeAnnotator{}
	svc := NewTicketService(db, repos.Ticket, repos.Task, repos.Activity, nil)
	svc.SetWriteback(NewWritebackService(annotator, nil))
	return db, repos, svc, annotator, &res
}

func TestUpdateTaskStatusRejectsUnknownStatus(t *testing.T) {
	_, _, svc, _, res := materializeFixture(t, 2)

	_, err := svc.UpdateTaskStatus(context.Background(), res.TaskIDs[0], "done")
	if err == nil || !strings.Contains(err.Error(), "invalid task status") {
		t.Fatalf("Expected invalid status error, got %v", err)
	}
}

func TestUpdateTaskStatusAnnotatesAndBumpsTicket(t *testing.T) {
	_, repos, svc, annotator, res := materializeFixture(t, 2)
	ctx := context.Background()

	task, err := svc.UpdateTaskStatus(ctx, res.TaskIDs[0], entity.TaskStatusInProgress)
	if err != nil {
		t.Fatalf("UpdateTaskStatus failed: %v", err)
	}
	if task.Status != entity.TaskStatusInProgress {
		t.Errorf("Expected in-progress, got %s", task.Status)
	}

	if len(annotator.notes) != 1 {
		t.Fatalf("Expected 1 transition note, got %d", len(annotator.notes))
	}
	if !strings.Contains(annotator.notes[0], "todo") || !strings.Contains(annotator.notes[0], "in-progress") {
		t.Errorf("Transition note missing statuses: %s", annotator.notes[0])
	}

	ticket, _ := repos.Ticket.FindByID(ctx, res.TicketID)
	if ticket.Status != entity.TicketStatusInProgress {
		t.Errorf("Expected ticket bumped to in-progress, got %s", ticket.Status)
	}
}

func TestUpdateTaskStatusSameStatusIsNoop(t *testing.T) {
	_, _, svc, annotator, res := materializeFixture(t, 2)

	if _, err := svc.UpdateTaskStatus(context.Background(), res.TaskIDs[0], entity.TaskStatusTodo); err != nil {
		t.Fatalf("No-op transition failed: %v", err)
	}
	if len(annotator.notes) != 0 {
		t.Errorf("No-op transition must not annotate, got %d notes", len(annotator.notes))
	}
}

func TestTicketAutoCloseWhenAllTasksDone(t *testing.T) {
	_, repos, svc, annotator, res := materializeFixture(t, 4)
	ctx := context.Background()

	// complete the first three tasks, cancel the last one
	for _, id := range res.TaskIDs[:3] {
		if _, err := svc.UpdateTaskStatus(ctx, id, entity.TaskStatusCompleted); err != nil {
			t.Fatalf("Failed to complete task: %v", err)
		}
	}

	ticket, _ := repos.Ticket.FindByID(ctx, res.TicketID)
	if ticket.Status == entity.TicketStatusClosed {
		t.Fatal("Ticket closed with one task still open")
	}

	if _, err := svc.UpdateTaskStatus(ctx, res.TaskIDs[3], entity.TaskStatusCancelled); err != nil {
		t.Fatalf("Failed to cancel last task: %v", err)
	}

	ticket, _ = repos.Ticket.FindByID(ctx, res.TicketID)
	if ticket.Status != entity.TicketStatusClosed {
		t.Fatalf("Expected closed ticket, got %s", ticket.Status)
	}
	if ticket.ClosedAt == nil {
		t.Error("Expected closed_at to be set")
	}
	if len(ticket.Milestones) != 1 || ticket.Milestones[0].Status != entity.MilestoneStatusClosed {
		t.Error("Expected the milestone to be closed with the ticket")
	}

	// exactly one completion block, exactly one CRM activity close
	completions := 0
	for _, n := range annotator.notes {
		if strings.Contains(n, "Ticket completato") {
			completions++
		}
	}
	if completions != 1 {
		t.Errorf("Expected exactly 1 completion block, got %d", completions)
	}
	if len(annotator.closed) != 1 || annotator.closed[0] != 725155 {
		t.Errorf("Expected CRM activity 725155 closed once, got %v", annotator.closed)
	}
}

func TestTicketAutoCloseFiresOnce(t *testing.T) {
	_, _, svc, annotator, res := materializeFixture(t, 1)
	ctx := context.Background()

	if _, err := svc.UpdateTaskStatus(ctx, res.TaskIDs[0], entity.TaskStatusCompleted); err != nil {
		t.Fatalf("Failed to complete task: %v", err)
	}
	// reopen and complete again: ticket is already closed, no second block
	if _, err := svc.UpdateTaskStatus(ctx, res.TaskIDs[0], entity.TaskStatusTodo); err != nil {
		t.Fatalf("Failed to reopen task: %v", err)
	}
	if _, err := svc.UpdateTaskStatus(ctx, res.TaskIDs[0], entity.TaskStatusCompleted); err != nil {
		t.Fatalf("Failed to re-complete task: %v", err)
	}

	completions := 0
	for _, n := range annotator.notes {
		if strings.Contains(n, "Ticket completato") {
			completions++
		}
	}
	if completions != 1 {
		t.Errorf("Expected completion block exactly once, got %d", completions)
	}
}

func TestDeleteTicketCascades(t *testing.T) {
	db, repos, svc, _, res := materializeFixture(t, 3)
	ctx := context.Background()

	if err := svc.Delete(ctx, res.TicketID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := repos.Ticket.FindByID(ctx, res.TicketID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ticket gone, got %v", err)
	}
	var milestones, tasks int64
	db.Model(&entity.Milestone{}).Count(&milestones)
	db.Model(&entity.Task{}).Count(&tasks)
	if milestones != 0 || tasks != 0 {
		t.Errorf("Expected cascade delete, found %d milestones and %d tasks", milestones, tasks)
	}

	// the originating activity survives, reset for re-materialization
	activity, err := repos.Activity.FindByExternalID(ctx, 725155)
	if err != nil {
		t.Fatalf("Activity must survive ticket deletion: %v", err)
	}
	if activity.MaterializationState != entity.MaterializationPending {
		t.Errorf("Expected pending state after delete, got %s", activity.MaterializationState)
	}
	pending, err := repos.Activity.FindUnmaterialized(ctx, 10)
	if err != nil {
		t.Fatalf("FindUnmaterialized failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != activity.ID {
		t.Errorf("Expected the activity back in the pipeline batch, got %d rows", len(pending))
	}
}

func TestListTicketsFilters(t *testing.T) {
	_, _, svc, _, res := materializeFixture(t, 2)
	ctx := context.Background()

	items, total, err := svc.List(ctx, 1, 20, map[string]string{"status": entity.TicketStatusOpen})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("Expected 1 open ticket, got %d", total)
	}
	if items[0].ID != res.TicketID {
		t.Errorf("Unexpected ticket %s", items[0].ID)
	}

	_, total, _ = svc.List(ctx, 1, 20, map[string]string{"status": entity.TicketStatusClosed})
	if total != 0 {
		t.Errorf("Expected 0 closed tickets, got %d", total)
	}

	_, total, _ = svc.List(ctx, 1, 20, map[string]string{"search": "SOF"})
	if total != 1 {
		t.Errorf("Expected code search hit, got %d", total)
	}
}
