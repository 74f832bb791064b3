package service

import (
	"github.com/redis/go-redis/v9"
	"github.com/sandrello1971/intelligencehub/internal/config"
	"github.com/sandrello1971/intelligencehub/internal/hub/repository"
	"github.com/sandrello1971/intelligencehub/internal/shared/crm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services is the service collection wired for one process.
type Services struct {
	Catalog      *CatalogService
	Template     *TemplateService
	Ingest       *IngestService
	Materializer *MaterializerService
	Ticket       *TicketService
	SLA          *SLAService
	Writeback    *WritebackService
	Orchestrator *OrchestratorService
}

// NewServices builds the service collection. The CRM client is
// optional: without crm.base_url the pipeline services run without
// upstream access and writeback stays disabled.
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}

	var crmClient *crm.Client
	if cfg.CRM.BaseURL != "" {
		crmClient = crm.NewClient(crm.Config{
			BaseURL:       cfg.CRM.BaseURL,
			Username:      cfg.CRM.Username,
			Password:      cfg.CRM.Password,
			APIKey:        cfg.CRM.APIKey,
			RatePerMinute: cfg.CRM.RateLimitPerMin,
			Timeout:       cfg.CRM.RequestTimeout,
		}, logger)
	}

	catalog := NewCatalogService(repos.Kit)
	template := NewTemplateService(repos.Template)
	sla := NewSLAService(repos.Task)

	var writeback *WritebackService
	if crmClient != nil {
		writeback = NewWritebackService(crmClient, logger)
	}

	var ingest *IngestService
	if crmClient != nil {
		ingest = NewIngestService(crmClient, repos.Activity, cfg.Sync.IntelligenceSubtype, logger)
	}

	materializer := NewMaterializerService(db, catalog, template, repos.Ticket, repos.Activity, repos.User, repos.Company, logger)
	ticket := NewTicketService(db, repos.Ticket, repos.Task, repos.Activity, logger)
	if writeback != nil {
		materializer.SetWriteback(writeback)
		ticket.SetWriteback(writeback)
	}

	var orchestrator *OrchestratorService
	if ingest != nil {
		orchestrator = NewOrchestratorService(
			rdb, nil, ingest, materializer,
			repos.Activity, repos.SyncLog,
			cfg.Sync.Limit, cfg.Sync.StageGap, cfg.Sync.LockTTL,
			logger,
		)
	}

	return &Services{
		Catalog:      catalog,
		Template:     template,
		Ingest:       ingest,
		Materializer: materializer,
		Ticket:       ticket,
		SLA:          sla,
		Writeback:    writeback,
		Orchestrator: orchestrator,
	}
}
