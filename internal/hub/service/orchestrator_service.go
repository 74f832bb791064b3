package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/sandrello1971/intelligencehub/internal/hub/repository"
	"go.uber.org/zap"
)

// ErrSyncInProgress means another pipeline run holds the lock.
var ErrSyncInProgress = errors.New("sync already in progress")

// DirectorySyncer refreshes the local company and contact mirrors from
// the CRM. Both stages are best-effort: a failure degrades the run to
// partial but never stops ingestion.
type DirectorySyncer interface {
	SyncCompanies(ctx context.Context) (int, error)
	SyncContacts(ctx context.Context) (int, error)
}

// StageStats are the counters of one pipeline stage.
type StageStats struct {
	Processed int    `json:"processed"`
	Created   int    `json:"created"`
	Skipped   int    `json:"skipped"`
	Errors    int    `json:"errors"`
	Failure   string `json:"failure,omitempty"`
}

// SyncReport is the full pipeline run report, persisted as JSONB.
type SyncReport struct {
	Companies   StageStats `json:"companies"`
	Contacts    StageStats `json:"contacts"`
	Ingest      StageStats `json:"ingest"`
	Materialize StageStats `json:"materialize"`
	Outcome     string     `json:"outcome"`
}

// HasStageFailure reports whether any stage recorded a fatal failure.
// Per-record errors and skips do not count; callers deciding an exit
// code must treat any stage failure as failure even when the run made
// enough progress to be partial.
func (r *SyncReport) HasStageFailure() bool {
	return r.Companies.Failure != "" || r.Contacts.Failure != "" ||
		r.Ingest.Failure != "" || r.Materialize.Failure != ""
}

// OrchestratorService runs the sync pipeline end to end: directory
// refresh, activity ingestion, then materialization of every activity
// that has no ticket yet. A redis lock keeps runs from overlapping.
type OrchestratorService struct {
	rdb          *redis.Client
	directory    DirectorySyncer
	ingest       *IngestService
	materializer *MaterializerService
	activityRepo *repository.ActivityRepository
	syncLogRepo  *repository.SyncLogRepository
	limit        int
	stageGap     time.Duration
	lockTTL      time.Duration
	logger       *zap.Logger
}

const syncLockKey = "intelligencehub:sync:lock"

func NewOrchestratorService(
	rdb *redis.Client,
	directory DirectorySyncer,
	ingest *IngestService,
	materializer *MaterializerService,
	activityRepo *repository.ActivityRepository,
	syncLogRepo *repository.SyncLogRepository,
	limit int,
	stageGap time.Duration,
	lockTTL time.Duration,
	logger *zap.Logger,
) *OrchestratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 50
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &OrchestratorService{
		rdb:          rdb,
		directory:    directory,
		ingest:       ingest,
		materializer: materializer,
		activityRepo: activityRepo,
		syncLogRepo:  syncLogRepo,
		limit:        limit,
		stageGap:     stageGap,
		lockTTL:      lockTTL,
		logger:       logger,
	}
}

// Run executes one full pipeline pass and persists its SyncLog. It
// returns ErrSyncInProgress without touching anything when another run
// holds the lock.
func (s *OrchestratorService) Run(ctx context.Context) (*SyncReport, error) {
	release, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	started := time.Now()
	log := &entity.SyncLog{
		ID:        uuid.New().String()[:32],
		Outcome:   entity.SyncOutcomeFailed,
		StartedAt: started,
	}
	if s.syncLogRepo != nil {
		if err := s.syncLogRepo.Create(ctx, log); err != nil {
			s.logger.Warn("sync log create failed", zap.Error(err))
		}
	}

	report := &SyncReport{}

	// refresh the kit catalog so this run sees catalog edits
	if s.materializer != nil && s.materializer.catalog != nil {
		if err := s.materializer.catalog.Load(ctx); err != nil {
			s.logger.Warn("kit catalog reload failed, using cached catalog", zap.Error(err))
		}
	}

	// stage 1+2: directory refresh, best-effort
	if s.directory != nil {
		if n, err := s.directory.SyncCompanies(ctx); err != nil {
			report.Companies.Failure = err.Error()
			s.logger.Warn("company sync failed", zap.Error(err))
		} else {
			report.Companies.Processed = n
		}
		s.pause(ctx)

		if n, err := s.directory.SyncContacts(ctx); err != nil {
			report.Contacts.Failure = err.Error()
			s.logger.Warn("contact sync failed", zap.Error(err))
		} else {
			report.Contacts.Processed = n
		}
		s.pause(ctx)
	}

	// stage 3: activity ingestion. A listing failure is fatal for the
	// stage; materialization still runs over whatever is already local.
	stats, err := s.ingest.Ingest(ctx, s.limit)
	report.Ingest = StageStats{
		Processed: stats.Fetched,
		Created:   stats.Inserted,
		Skipped:   stats.Skipped,
		Errors:    stats.Errors,
	}
	if err != nil {
		report.Ingest.Failure = err.Error()
		s.logger.Error("ingest stage failed", zap.Error(err))
	}
	s.pause(ctx)

	// stage 4: materialize every activity without a ticket
	s.materializeNew(ctx, &report.Materialize)

	report.Outcome = s.outcome(report)
	s.finishLog(ctx, log, report)

	s.logger.Info("sync pipeline finished",
		zap.String("outcome", report.Outcome),
		zap.Int("ingested", report.Ingest.Created),
		zap.Int("materialized", report.Materialize.Created),
		zap.Duration("elapsed", time.Since(started)))

	return report, nil
}

// RecentLogs returns the latest persisted run records.
func (s *OrchestratorService) RecentLogs(ctx context.Context, limit int) ([]entity.SyncLog, error) {
	return s.syncLogRepo.FindRecent(ctx, limit)
}

func (s *OrchestratorService) materializeNew(ctx context.Context, st *StageStats) {
	activities, err := s.activityRepo.FindUnmaterialized(ctx, s.limit)
	if err != nil {
		st.Failure = err.Error()
		s.logger.Error("unmaterialized lookup failed", zap.Error(err))
		return
	}
	for i := range activities {
		st.Processed++
		res := s.materializer.Materialize(ctx, &activities[i])
		switch {
		case res.Created():
			st.Created++
		case res.HasCode(CodeAlreadyMaterialized), res.HasCode(CodeKitNotDetected), res.HasCode(CodeDatabaseConflict):
			st.Skipped++
		default:
			st.Errors++
		}
	}
}

// outcome folds the stage results: any fatal stage failure with no
// progress is failed, any failure or record error alongside progress
// is partial, everything clean is ok.
func (s *OrchestratorService) outcome(r *SyncReport) string {
	hadFailure := r.HasStageFailure()
	hadErrors := r.Ingest.Errors > 0 || r.Materialize.Errors > 0
	progressed := r.Ingest.Created > 0 || r.Ingest.Skipped > 0 || r.Materialize.Created > 0

	if r.Ingest.Failure != "" && !progressed {
		return entity.SyncOutcomeFailed
	}
	if hadFailure || hadErrors {
		return entity.SyncOutcomePartial
	}
	return entity.SyncOutcomeOK
}

func (s *OrchestratorService) finishLog(ctx context.Context, log *entity.SyncLog, report *SyncReport) {
	if s.syncLogRepo == nil {
		return
	}
	now := time.Now()
	log.Outcome = report.Outcome
	log.FinishedAt = &now
	if raw, err := json.Marshal(report); err == nil {
		log.Report = string(raw)
	}
	if err := s.syncLogRepo.Update(ctx, log); err != nil {
		s.logger.Warn("sync log update failed", zap.Error(err))
	}
}

// acquireLock takes the redis run lock. With no redis configured the
// pipeline runs unguarded, which is fine for one-shot CLI use.
func (s *OrchestratorService) acquireLock(ctx context.Context) (func(), error) {
	if s.rdb == nil {
		return func() {}, nil
	}
	ok, err := s.rdb.SetNX(ctx, syncLockKey, time.Now().Format(time.RFC3339), s.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	return func() {
		if err := s.rdb.Del(context.Background(), syncLockKey).Err(); err != nil {
			s.logger.Warn("sync lock release failed", zap.Error(err))
		}
	}, nil
}

func (s *OrchestratorService) pause(ctx context.Context) {
	if s.stageGap <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(s.stageGap):
	}
}
