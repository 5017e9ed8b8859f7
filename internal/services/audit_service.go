package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"lastseat/server/internal/logging"
	"lastseat/server/internal/models"
	"lastseat/server/internal/tasks"
)

// TaskEnqueuer is the slice of asynq.Client the audit service needs. Narrowed
// to an interface so tests can capture enqueued tasks.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// IAuditService defines the interface for the append-only audit log.
type IAuditService interface {
	// Record never fails the caller: the primary mutation an entry describes
	// has already succeeded, so audit delivery is handled here, not by the
	// caller.
	Record(ctx context.Context, entry *models.AuditEntry)
	List(ctx context.Context, limit int64) ([]models.AuditEntry, error)
}

const auditCollection = "audit_log"

// maxAuditListLimit caps the audit viewer at the most recent entries.
const maxAuditListLimit = 100

// auditService implements IAuditService.
type auditService struct {
	db       *mongo.Database
	enqueuer TaskEnqueuer
	logger   *zap.Logger
}

// NewAuditService creates a new AuditService. enqueuer may be nil, in which
// case failed writes are only logged (used by tests without Redis).
func NewAuditService(database *mongo.Database, enqueuer TaskEnqueuer) IAuditService {
	return &auditService{
		db:       database,
		enqueuer: enqueuer,
		logger:   logging.Get().Named("audit"),
	}
}

// Record appends an audit entry. A failed insert is not dropped: the entry is
// handed to the background queue, which retries until the write lands.
func (s *auditService) Record(ctx context.Context, entry *models.AuditEntry) {
	entry.GenIDIfEmpty()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Collection(auditCollection).InsertOne(ctx, entry)
	if err == nil {
		return
	}
	s.logger.Warn("audit write failed, deferring to queue",
		zap.String("action", string(entry.Action)),
		zap.String("entity_id", entry.EntityID),
		zap.Error(err))

	if s.enqueuer == nil {
		s.logger.Error("audit entry lost: no task queue configured", zap.String("entity_id", entry.EntityID))
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		s.logger.Error("audit entry lost: marshal failed", zap.Error(err))
		return
	}
	_, err = s.enqueuer.Enqueue(
		asynq.NewTask(tasks.TypeAuditRecord, payload),
		asynq.Queue("critical"),
		asynq.MaxRetry(20),
	)
	if err != nil {
		s.logger.Error("audit entry lost: enqueue failed", zap.Error(err))
	}
}

// List returns the most recent audit entries, newest first, capped at 100.
func (s *auditService) List(ctx context.Context, limit int64) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > maxAuditListLimit {
		limit = maxAuditListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.db.Collection(auditCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.AuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("error decoding audit entries: %w", err)
	}
	return entries, nil
}
