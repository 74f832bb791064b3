package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/sandrello1971/intelligencehub/internal/hub/repository"
	"github.com/sandrello1971/intelligencehub/internal/shared/crm"
	"go.uber.org/zap"
)

// ActivityReader is the slice of the CRM client the ingestor uses.
type ActivityReader interface {
	ListActivityIDs(ctx context.Context, limit int, since time.Time) ([]int64, error)
	GetActivity(ctx context.Context, externalID int64) (*crm.ActivityRecord, error)
}

// IngestStats are the counters of one ingestion batch.
type IngestStats struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// IngestService pulls recent CRM activities, keeps only the
// intelligence subtype, and inserts each one exactly once.
type IngestService struct {
	reader       ActivityReader
	activityRepo *repository.ActivityRepository
	subtype      int64
	logger       *zap.Logger
}

func NewIngestService(reader ActivityReader, activityRepo *repository.ActivityRepository, subtype int64, logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		reader:       reader,
		activityRepo: activityRepo,
		subtype:      subtype,
		logger:       logger,
	}
}

// overFetchFactor compensates for the unreliable server-side subtype
// filter: the id list is pulled 5x larger than the accept limit.
const overFetchFactor = 5

// Ingest pulls up to limit intelligence activities. Individual record
// failures are counted and the batch continues; only a failed id
// listing aborts the stage.
func (s *IngestService) Ingest(ctx context.Context, limit int) (IngestStats, error) {
	var stats IngestStats

	// zero since: the upstream default recency window is wide enough,
	// dedupe by external_id makes re-reads harmless
	ids, err := s.reader.ListActivityIDs(ctx, limit*overFetchFactor, time.Time{})
	if err != nil {
		return stats, err
	}

	now := time.Now()
	for _, id := range ids {
		if stats.Inserted+stats.Skipped >= limit {
			break
		}

		rec, err := s.reader.GetActivity(ctx, id)
		if err != nil {
			if errors.Is(err, crm.ErrAuthFailed) {
				return stats, err
			}
			stats.Errors++
			s.logger.Warn("activity fetch failed, skipping record",
				zap.Int64("external_id", id), zap.Error(err))
			continue
		}
		stats.Fetched++

		if rec.SubTypeID != s.subtype {
			continue
		}

		existing, err := s.activityRepo.FindByExternalID(ctx, rec.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			stats.Errors++
			s.logger.Warn("activity lookup failed", zap.Int64("external_id", rec.ID), zap.Error(err))
			continue
		}
		if existing != nil {
			stats.Skipped++
			if err := s.activityRepo.TouchLastSynced(ctx, rec.ID, now); err != nil {
				s.logger.Warn("last_synced refresh failed", zap.Int64("external_id", rec.ID), zap.Error(err))
			}
			continue
		}

		activity := normalizeActivity(rec, now)
		if err := s.activityRepo.Create(ctx, activity); err != nil {
			stats.Errors++
			s.logger.Warn("activity insert failed",
				zap.Int64("external_id", rec.ID), zap.Error(err))
			continue
		}
		stats.Inserted++
		s.logger.Info("activity ingested",
			zap.Int64("external_id", rec.ID),
			zap.String("subject", rec.Subject))
	}

	return stats, nil
}

// normalizeActivity maps a CRM wire record to the local mirror.
func normalizeActivity(rec *crm.ActivityRecord, now time.Time) *entity.Activity {
	a := &entity.Activity{
		ID:                   uuid.New().String()[:32],
		ExternalID:           rec.ID,
		SubTypeID:            rec.SubTypeID,
		Subject:              rec.Subject,
		Description:          rec.Description,
		OwnerCRMID:           rec.OwnerID,
		CompanyCRMID:         rec.CompanyID,
		Status:               normalizeStatus(rec.Status),
		Priority:             normalizePriority(rec.Priority),
		MaterializationState: entity.MaterializationPending,
		LastSynced:           now,
	}
	if t, err := time.Parse(time.RFC3339, rec.ActivityDate); err == nil {
		a.ActivityDate = &t
	}
	return a
}

func normalizeStatus(code int) string {
	switch code {
	case crm.StatusInProgress:
		return entity.ActivityStatusInProgress
	case crm.StatusCompleted:
		return entity.ActivityStatusCompleted
	default:
		return entity.ActivityStatusActive
	}
}

func normalizePriority(code int) string {
	switch code {
	case 0:
		return entity.PriorityLow
	case 2:
		return entity.PriorityHigh
	default:
		return entity.PriorityMedium
	}
}
