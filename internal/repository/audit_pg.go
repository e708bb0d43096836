package repository

import (
	"context"

	"github.com/blip-health/blipgate/internal/model"
	"gorm.io/gorm"
)

type PostgresAuditSink struct {
	db *gorm.DB
}

func NewPostgresAuditSink(db *gorm.DB) *PostgresAuditSink {
	return &PostgresAuditSink{db: db}
}

// Migrate creates the audit_events table if needed.
func (r *PostgresAuditSink) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&model.AuditEvent{})
}

func (r *PostgresAuditSink) Name() string {
	return "postgres"
}

func (r *PostgresAuditSink) Deliver(ctx context.Context, event *model.AuditEvent) error {
	if event == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *PostgresAuditSink) List(ctx context.Context, limit int) ([]*model.AuditEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var events []*model.AuditEvent
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
