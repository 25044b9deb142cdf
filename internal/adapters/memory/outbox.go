package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/ports"
)

type Outbox struct {
	mu      sync.Mutex
	records map[uuid.UUID]*ports.OutboxRecord
	order   []uuid.UUID
}

func NewOutbox() *Outbox {
	return &Outbox{records: map[uuid.UUID]*ports.OutboxRecord{}}
}

func (o *Outbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.records[event.EventID]; !exists {
		o.order = append(o.order, event.EventID)
	}
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	o.records[event.EventID] = &ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt,
	}
	return nil
}

func (o *Outbox) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, errors.New("claim token is required")
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now().UTC()
	pending := make([]*ports.OutboxRecord, 0, len(o.records))
	for _, id := range o.order {
		rec := o.records[id]
		if rec.PublishedAt != nil || rec.DeadLetteredAt != nil {
			continue
		}
		if rec.ClaimUntil != nil && !rec.ClaimUntil.Before(now) {
			continue
		}
		pending = append(pending, rec)
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}

	out := make([]ports.OutboxRecord, 0, len(pending))
	for _, rec := range pending {
		token, until := claimToken, claimUntil
		rec.ClaimToken, rec.ClaimUntil = &token, &until
		out = append(out, *rec)
	}
	return out, nil
}

func (o *Outbox) MarkPublished(_ context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	return o.release(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.PublishedAt = &at
	})
}

func (o *Outbox) MarkFailed(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return o.release(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.RetryCount++
		rec.LastError, rec.LastErrorAt = &errMsg, &at
	})
}

func (o *Outbox) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return o.release(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.RetryCount++
		rec.LastError, rec.LastErrorAt = &errMsg, &at
		rec.DeadLetteredAt = &at
	})
}

func (o *Outbox) release(outboxID uuid.UUID, claimToken string, apply func(*ports.OutboxRecord)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.records[outboxID]
	if !ok || rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
		return nil
	}
	apply(rec)
	rec.ClaimToken, rec.ClaimUntil = nil, nil
	return nil
}

// Records returns a copy of every stored record, oldest first. Records with
// equal timestamps keep their enqueue order.
func (o *Outbox) Records() []ports.OutboxRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ports.OutboxRecord, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, *o.records[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
