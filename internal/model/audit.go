package model

import (
	"time"
)

// AuditAction selects the message template of an audit event.
type AuditAction string

const (
	AuditView          AuditAction = "view"
	AuditDelete        AuditAction = "delete"
	AuditDeleteAttempt AuditAction = "delete_attempt"
	AuditCreate        AuditAction = "create"
	AuditScreening     AuditAction = "screening"
	AuditUpdate        AuditAction = "update"
	AuditUpdateAttempt AuditAction = "update_attempt"
)

// AuditRequest is queued by the request path; the actor name is resolved later,
// off the request goroutine.
type AuditRequest struct {
	RequestID     string
	Authorization string
	Action        AuditAction
	Path          string
	ResourceID    string
	CreatedAt     time.Time
}

// AuditEvent is a formatted, actor-attributed event handed to the sinks.
type AuditEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	RequestID string    `json:"request_id" gorm:"size:36;index"`
	Message   string    `json:"message" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
