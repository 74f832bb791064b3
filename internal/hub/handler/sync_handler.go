package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sandrello1971/intelligencehub/internal/hub/service"
	"go.uber.org/zap"
)

// SyncHandler triggers and inspects pipeline runs.
type SyncHandler struct {
	orchestrator *service.OrchestratorService
	logger       *zap.Logger
}

func NewSyncHandler(orchestrator *service.OrchestratorService, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{orchestrator: orchestrator, logger: logger}
}

// Run handles POST /api/v1/sync/run. The run executes inline; callers
// are expected to tolerate a long response.
func (h *SyncHandler) Run(c *gin.Context) {
	if h.orchestrator == nil {
		Error(c, 50300, "sync pipeline is not configured")
		return
	}

	report, err := h.orchestrator.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			Conflict(c, "a sync run is already in progress")
			return
		}
		InternalError(c, "sync run failed: "+err.Error())
		return
	}

	Success(c, report)
}

// Logs handles GET /api/v1/sync/logs
func (h *SyncHandler) Logs(c *gin.Context) {
	if h.orchestrator == nil {
		Error(c, 50300, "sync pipeline is not configured")
		return
	}

	logs, err := h.orchestrator.RecentLogs(c.Request.Context(), 20)
	if err != nil {
		InternalError(c, "failed to list sync logs: "+err.Error())
		return
	}

	Success(c, gin.H{"items": logs})
}
