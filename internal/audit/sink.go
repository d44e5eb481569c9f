// Package audit writes the immutable trail of distribution and claim changes.
package audit

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"profitshare/internal/distribution"
	"profitshare/internal/models"
)

// DBSink inserts audit records into the audit_logs table.
type DBSink struct {
	db *gorm.DB
}

func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

func (s *DBSink) Record(ctx context.Context, rec distribution.AuditRecord) error {
	row := models.AuditLog{
		ID:          rec.ID,
		Actor:       rec.Actor,
		Action:      rec.Action,
		EntityType:  rec.EntityType,
		EntityID:    rec.EntityID,
		BeforeState: models.JSONMap(rec.BeforeState),
		AfterState:  models.JSONMap(rec.AfterState),
		CreatedAt:   rec.Timestamp.UTC(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// Publisher publishes a JSON message to a queue.
type Publisher interface {
	Publish(ctx context.Context, queueName string, message interface{}) error
}

// QueueSink publishes audit records to a message queue for downstream
// consumers such as compliance exports.
type QueueSink struct {
	publisher Publisher
	queue     string
}

func NewQueueSink(publisher Publisher, queue string) *QueueSink {
	return &QueueSink{publisher: publisher, queue: queue}
}

func (s *QueueSink) Record(ctx context.Context, rec distribution.AuditRecord) error {
	return s.publisher.Publish(ctx, s.queue, rec)
}

// LogSink writes audit records as structured log lines.
type LogSink struct {
	logger logrus.FieldLogger
}

func NewLogSink(logger logrus.FieldLogger) *LogSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(_ context.Context, rec distribution.AuditRecord) error {
	s.logger.WithFields(logrus.Fields{
		"audit_id":    rec.ID,
		"actor":       rec.Actor,
		"action":      rec.Action,
		"entity_type": rec.EntityType,
		"entity_id":   rec.EntityID,
		"before":      rec.BeforeState,
		"after":       rec.AfterState,
		"timestamp":   rec.Timestamp,
	}).Info("audit")
	return nil
}

// MultiSink sends every record to all sinks and joins their errors.
type MultiSink []distribution.AuditSink

func (m MultiSink) Record(ctx context.Context, rec distribution.AuditRecord) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ distribution.AuditSink = (*DBSink)(nil)
	_ distribution.AuditSink = (*QueueSink)(nil)
	_ distribution.AuditSink = (*LogSink)(nil)
	_ distribution.AuditSink = MultiSink(nil)
)
