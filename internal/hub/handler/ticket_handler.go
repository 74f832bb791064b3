package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sandrello1971/intelligencehub/internal/hub/repository"
	"github.com/sandrello1971/intelligencehub/internal/hub/service"
)

// TicketHandler serves the ticket and task endpoints.
type TicketHandler struct {
	svc *service.TicketService
}

func NewTicketHandler(svc *service.TicketService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

// List handles GET /api/v1/tickets
func (h *TicketHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := map[string]string{
		"status":      c.Query("status"),
		"company_id":  c.Query("company_id"),
		"assigned_to": c.Query("assigned_to"),
		"search":      c.Query("search"),
	}

	tickets, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "failed to list tickets: "+err.Error())
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	Success(c, ListResponse{
		Items: tickets,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// Get handles GET /api/v1/tickets/:id
func (h *TicketHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "ticket id is required")
		return
	}

	ticket, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "ticket not found")
			return
		}
		InternalError(c, err.Error())
		return
	}

	Success(c, ticket)
}

// Delete handles DELETE /api/v1/tickets/:id
func (h *TicketHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "ticket id is required")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "ticket not found")
			return
		}
		InternalError(c, err.Error())
		return
	}

	Success(c, gin.H{"deleted": id})
}

type updateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateTaskStatus handles PUT /api/v1/tasks/:id/status
func (h *TicketHandler) UpdateTaskStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "task id is required")
		return
	}

	var req updateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	task, err := h.svc.UpdateTaskStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "task not found")
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Success(c, task)
}
