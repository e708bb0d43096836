package repository

import (
	"context"
	"encoding/json"

	"github.com/blip-health/blipgate/internal/model"
)

// RedisAuditSink keeps a capped list of recent audit events, newest first.
type RedisAuditSink struct {
	client  *RedisClient
	listKey string
	listMax int
}

func NewRedisAuditSink(client *RedisClient, listKey string, listMax int) *RedisAuditSink {
	if listKey == "" {
		listKey = "blipgate:audit"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisAuditSink{
		client:  client,
		listKey: listKey,
		listMax: listMax,
	}
}

func (r *RedisAuditSink) Name() string {
	return "redis"
}

func (r *RedisAuditSink) Deliver(ctx context.Context, event *model.AuditEvent) error {
	if event == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pipe := r.client.Client.TxPipeline()
	pipe.LPush(ctx, r.listKey, payload)
	pipe.LTrim(ctx, r.listKey, 0, int64(r.listMax-1))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisAuditSink) List(ctx context.Context, limit int) ([]*model.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if r.listMax > 0 && limit > r.listMax {
		limit = r.listMax
	}
	items, err := r.client.Client.LRange(ctx, r.listKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	results := make([]*model.AuditEvent, 0, len(items))
	for _, raw := range items {
		var event model.AuditEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			continue
		}
		results = append(results, &event)
	}
	return results, nil
}
