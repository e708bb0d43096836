package service

import (
	"context"
	"sync"
	"time"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/blip-health/blipgate/internal/pkg/logger"
	"github.com/blip-health/blipgate/internal/pkg/metrics"
	"github.com/google/uuid"
)

// AuditSink receives formatted events. Delivery is best effort.
type AuditSink interface {
	Name() string
	Deliver(ctx context.Context, event *model.AuditEvent) error
}

// AuditRepo is a sink that can also read back recent events.
type AuditRepo interface {
	List(ctx context.Context, limit int) ([]*model.AuditEvent, error)
}

// NameResolver names the caller of an audited request.
type NameResolver interface {
	DisplayName(ctx context.Context, authorization string) model.CallerIdentity
}

type AuditOptions struct {
	QueueSize  int
	Workers    int
	BufferSize int
	Timeout    time.Duration
}

// AuditService formats and ships audit events off the request goroutine. A
// full queue drops the event instead of blocking the caller.
type AuditService struct {
	logChan chan model.AuditRequest
	names   NameResolver
	sinks   []AuditSink
	repo    AuditRepo
	buffer  *auditBuffer
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once
}

func NewAuditService(opts AuditOptions, names NameResolver, repo AuditRepo, sinks ...AuditSink) *AuditService {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1000
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	svc := &AuditService{
		logChan: make(chan model.AuditRequest, opts.QueueSize),
		names:   names,
		sinks:   sinks,
		repo:    repo,
		buffer:  newAuditBuffer(opts.BufferSize),
		timeout: opts.Timeout,
	}
	for i := 0; i < opts.Workers; i++ {
		svc.wg.Add(1)
		go svc.processLogs()
	}
	return svc
}

// Log enqueues req and reports whether it was accepted.
func (s *AuditService) Log(req model.AuditRequest) bool {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	select {
	case s.logChan <- req:
		metrics.AuditEvents.WithLabelValues("queued").Inc()
		return true
	default:
		metrics.AuditEvents.WithLabelValues("dropped").Inc()
		logger.Warn("audit queue full, dropping event", "request_id", req.RequestID, "action", string(req.Action))
		return false
	}
}

// List returns the newest events, preferring the persistent repo.
func (s *AuditService) List(ctx context.Context, limit int) ([]*model.AuditEvent, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx, limit)
		if err == nil {
			return records, nil
		}
		logger.Warn("audit repo list failed, using in-memory buffer", "error", err)
	}
	return s.buffer.List(limit), nil
}

func (s *AuditService) processLogs() {
	defer s.wg.Done()
	for req := range s.logChan {
		s.handle(req)
	}
}

func (s *AuditService) handle(req model.AuditRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	who := s.names.DisplayName(ctx, req.Authorization)
	if !who.HasDisplayName() {
		metrics.AuditEvents.WithLabelValues("skipped").Inc()
		logger.Debug("audit event skipped, caller unresolved", "request_id", req.RequestID)
		return
	}
	msg, ok := FormatAuditMessage(who.DisplayName, req)
	if !ok {
		metrics.AuditEvents.WithLabelValues("skipped").Inc()
		return
	}

	event := &model.AuditEvent{
		ID:        uuid.NewString(),
		RequestID: req.RequestID,
		Message:   msg,
		CreatedAt: req.CreatedAt,
	}
	s.buffer.Add(event)

	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			metrics.AuditEvents.WithLabelValues("failed").Inc()
			logger.Warn("audit sink delivery failed", "sink", sink.Name(), "request_id", req.RequestID, "error", err)
			continue
		}
		metrics.AuditEvents.WithLabelValues("delivered").Inc()
	}
}

// Close stops accepting events and waits for queued ones to drain.
func (s *AuditService) Close() {
	s.once.Do(func() {
		close(s.logChan)
	})
	s.wg.Wait()
}

// FormatAuditMessage renders the human-readable line for req. It returns false
// when the action carries nothing to report, e.g. a create without an id.
func FormatAuditMessage(who string, req model.AuditRequest) (string, bool) {
	switch req.Action {
	case model.AuditView:
		return who + " requested to view " + req.Path, true
	case model.AuditDelete:
		return who + " deleted " + req.Path, true
	case model.AuditDeleteAttempt:
		return who + " attempted to delete " + req.Path, true
	case model.AuditCreate:
		if req.ResourceID == "" {
			return "", false
		}
		return who + " created " + req.Path + " " + req.ResourceID, true
	case model.AuditScreening:
		return who + " created a screening for patient " + req.ResourceID, true
	case model.AuditUpdate:
		return who + " updated " + req.Path, true
	case model.AuditUpdateAttempt:
		return who + " attempted to update " + req.Path, true
	default:
		return "", false
	}
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditEvent
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditEvent, 0, maxSize),
	}
}

func (b *auditBuffer) Add(event *model.AuditEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, event)
		return
	}
	b.records[b.nextIndex] = event
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List returns up to limit events, newest first.
func (b *auditBuffer) List(limit int) []*model.AuditEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	total := len(b.records)
	results := make([]*model.AuditEvent, 0, min(limit, total))
	for i := 0; i < total && len(results) < limit; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		if b.records[idx] != nil {
			results = append(results, b.records[idx])
		}
	}
	return results
}
