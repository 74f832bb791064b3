package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/sandrello1971/intelligencehub/internal/hub/repository"
	"github.com/sandrello1971/intelligencehub/internal/hub/service"
	"github.com/sandrello1971/intelligencehub/internal/hub/testutil"
	"gorm.io/gorm"
)

func setupTicketAPI(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := service.NewTicketService(db, repos.Ticket, repos.Task, repos.Activity, nil)
	h := NewTicketHandler(svc)

	r := testutil.SetupRouter()
	api := testutil.AuthGroup(r, "/api/v1")
	tickets := api.Group("/tickets")
	{
		tickets.GET("", h.List)
		tickets.GET("/:id", h.Get)
		tickets.DELETE("/:id", h.Delete)
	}
	api.PUT("/tasks/:id/status", h.UpdateTaskStatus)
	return db, r
}

// seedTicketTree inserts a ticket with one active milestone and the
// given number of todo tasks, returning the ticket and its task ids.
func seedTicketTree(t *testing.T, db *gorm.DB, code string, taskCount int) (*entity.Ticket, []string) {
	t.Helper()
	ticket := &entity.Ticket{
		ID:         uuid.New().String()[:32],
		TicketCode: code,
		Title:      "Kit Start Office Finance",
		Status:     entity.TicketStatusOpen,
		AssignedTo: "user-mario",
	}
	if err := db.Create(ticket).Error; err != nil {
		t.Fatalf("Failed to seed ticket: %v", err)
	}
	milestone := &entity.Milestone{
		ID:       uuid.New().String()[:32],
		TicketID: ticket.ID,
		Title:    "invio incarico in firma",
		Order:    1,
		Status:   entity.MilestoneStatusActive,
	}
	if err := db.Create(milestone).Error; err != nil {
		t.Fatalf("Failed to seed milestone: %v", err)
	}
	ticket.MilestoneID = &milestone.ID
	db.Model(ticket).Update("milestone_id", milestone.ID)

	taskIDs := make([]string, 0, taskCount)
	for i := 0; i < taskCount; i++ {
		task := &entity.Task{
			ID:          uuid.New().String()[:32],
			MilestoneID: milestone.ID,
			Title:       fmt.Sprintf("attività %d", i+1),
			Order:       i + 1,
			Status:      entity.TaskStatusTodo,
		}
		if err := db.Create(task).Error; err != nil {
			t.Fatalf("Failed to seed task: %v", err)
		}
		taskIDs = append(taskIDs, task.ID)
	}
	return ticket, taskIDs
}

func TestListTicketsRequiresAuth(t *testing.T) {
	_, r := setupTicketAPI(t)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/tickets", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
}

func TestListTickets(t *testing.T) {
	db, r := setupTicketAPI(t)
	seedTicketTree(t, db, "TCK-SOF-5155-00", 2)
	seedTicketTree(t, db, "TCK-CRM-0042-00", 1)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/tickets", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Errorf("Expected 2 tickets, got %d", len(items))
	}
	pagination := data["pagination"].(map[string]interface{})
	if pagination["total"].(float64) != 2 {
		t.Errorf("Expected total 2, got %v", pagination["total"])
	}
}

func TestListTicketsStatusFilter(t *testing.T) {
	db, r := setupTicketAPI(t)
	seedTicketTree(t, db, "TCK-SOF-5155-00", 1)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/tickets?status=closed", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 0 {
		t.Errorf("Expected no closed tickets, got %d", len(items))
	}
}

func TestGetTicketWithTree(t *testing.T) {
	db, r := setupTicketAPI(t)
	ticket, _ := seedTicketTree(t, db, "TCK-SOF-5155-00", 2)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/tickets/"+ticket.ID, nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["ticket_code"] != "TCK-SOF-5155-00" {
		t.Errorf("Unexpected ticket_code %v", data["ticket_code"])
	}
	milestones := data["milestones"].([]interface{})
	if len(milestones) != 1 {
		t.Fatalf("Expected 1 milestone in tree, got %d", len(milestones))
	}
	tasks := milestones[0].(map[string]interface{})["tasks"].([]interface{})
	if len(tasks) != 2 {
		t.Errorf("Expected 2 tasks in tree, got %d", len(tasks))
	}
}

func TestGetTicketNotFound(t *testing.T) {
	_, r := setupTicketAPI(t)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/tickets/nonexistent", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40400 {
		t.Errorf("Expected code 40400, got %v", resp["code"])
	}
}

func TestDeleteTicket(t *testing.T) {
	db, r := setupTicketAPI(t)
	ticket, _ := seedTicketTree(t, db, "TCK-SOF-5155-00", 2)

	w := testutil.DoRequest(r, http.MethodDelete, "/api/v1/tickets/"+ticket.ID, nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&entity.Ticket{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected ticket deleted, found %d", count)
	}

	w = testutil.DoRequest(r, http.MethodDelete, "/api/v1/tickets/"+ticket.ID, nil, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", w.Code)
	}
}

func TestUpdateTaskStatusEndpoint(t *testing.T) {
	db, r := setupTicketAPI(t)
	ticket, taskIDs := seedTicketTree(t, db, "TCK-SOF-5155-00", 2)

	body := map[string]string{"status": entity.TaskStatusInProgress}
	w := testutil.DoRequest(r, http.MethodPut, "/api/v1/tasks/"+taskIDs[0]+"/status", body, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != entity.TaskStatusInProgress {
		t.Errorf("Expected in-progress, got %v", data["status"])
	}

	var updated entity.Ticket
	db.First(&updated, "id = ?", ticket.ID)
	if updated.Status != entity.TicketStatusInProgress {
		t.Errorf("Expected ticket bumped to in-progress, got %s", updated.Status)
	}
}

func TestUpdateTaskStatusClosesTicket(t *testing.T) {
	db, r := setupTicketAPI(t)
	ticket, taskIDs := seedTicketTree(t, db, "TCK-SOF-5155-00", 2)

	for _, id := range taskIDs {
		body := map[string]string{"status": entity.TaskStatusCompleted}
		w := testutil.DoRequest(r, http.MethodPut, "/api/v1/tasks/"+id+"/status", body, testutil.DefaultTestToken())
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
	}

	var updated entity.Ticket
	db.First(&updated, "id = ?", ticket.ID)
	if updated.Status != entity.TicketStatusClosed {
		t.Errorf("Expected auto-closed ticket, got %s", updated.Status)
	}
	if updated.ClosedAt == nil {
		t.Error("Expected closed_at to be set")
	}
}

func TestUpdateTaskStatusValidation(t *testing.T) {
	db, r := setupTicketAPI(t)
	_, taskIDs := seedTicketTree(t, db, "TCK-SOF-5155-00", 1)

	// missing status field
	w := testutil.DoRequest(r, http.MethodPut, "/api/v1/tasks/"+taskIDs[0]+"/status", map[string]string{}, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty body, got %d", w.Code)
	}

	// unknown status value
	body := map[string]string{"status": "done"}
	w = testutil.DoRequest(r, http.MethodPut, "/api/v1/tasks/"+taskIDs[0]+"/status", body, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown status, got %d", w.Code)
	}

	// unknown task id
	body = map[string]string{"status": entity.TaskStatusCompleted}
	w = testutil.DoRequest(r, http.MethodPut, "/api/v1/tasks/nonexistent/status", body, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown task, got %d", w.Code)
	}
}
