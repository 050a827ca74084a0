package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/MagnunAVF/affiliate-tracker/internal"
	"github.com/MagnunAVF/affiliate-tracker/internal/metrics"
)

// EventInput is one front-end interaction event.
type EventInput struct {
	Type        string `json:"type" validate:"required,oneof=page_view refer_hit cta_click coupon_apply pwa_install"`
	URL         string `json:"url,omitempty" validate:"omitempty,url"`
	ProductID   *int64 `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	ReferSlugID *int64 `json:"refer_slug_id,omitempty" validate:"omitempty,gt=0"`
	CouponID    *int64 `json:"coupon_id,omitempty" validate:"omitempty,gt=0"`
}

type AuditWriter interface {
	InsertAuditEntries(ctx context.Context, entries []internal.AuditEntry) error
}

// EventRecorder is a best-effort analytics sink: a batch is written in one
// transaction and lost as a whole on failure.
type EventRecorder struct {
	audit    AuditWriter
	validate *validator.Validate
	salt     string
	maxBatch int
}

func NewEventRecorder(audit AuditWriter, validate *validator.Validate, salt string, maxBatch int) *EventRecorder {
	return &EventRecorder{audit: audit, validate: validate, salt: salt, maxBatch: maxBatch}
}

// Record validates and stores the batch, returning how many events were written.
func (r *EventRecorder) Record(ctx context.Context, events []EventInput, ip string) (int, error) {
	if len(events) == 0 {
		return 0, invalid(fmt.Errorf("at least one event is required"))
	}
	if r.maxBatch > 0 && len(events) > r.maxBatch {
		return 0, invalid(fmt.Errorf("batch of %d exceeds limit of %d", len(events), r.maxBatch))
	}

	ipHash := HashIP(r.salt, ip)
	entries := make([]internal.AuditEntry, 0, len(events))
	for i, ev := range events {
		if err := r.validate.Struct(ev); err != nil {
			return 0, invalid(fmt.Errorf("event %d: %w", i, err))
		}
		details, err := json.Marshal(ev)
		if err != nil {
			return 0, fmt.Errorf("encode event %d: %w", i, err)
		}
		targetType, targetID := eventTarget(ev)
		entries = append(entries, internal.AuditEntry{
			Action:     "event_" + ev.Type,
			TargetType: targetType,
			TargetID:   targetID,
			Details:    string(details),
			IPHash:     ipHash,
		})
	}

	if err := r.audit.InsertAuditEntries(ctx, entries); err != nil {
		return 0, fmt.Errorf("record %d events: %w", len(entries), err)
	}
	metrics.EventsLoggedTotal.Add(float64(len(entries)))
	return len(entries), nil
}

// eventTarget picks the first id present: product, then refer slug, then coupon.
func eventTarget(ev EventInput) (*string, *string) {
	var kind string
	var id *int64
	switch {
	case ev.ProductID != nil:
		kind, id = "product", ev.ProductID
	case ev.ReferSlugID != nil:
		kind, id = "refer_slug", ev.ReferSlugID
	case ev.CouponID != nil:
		kind, id = "coupon", ev.CouponID
	default:
		return nil, nil
	}
	target := strconv.FormatInt(*id, 10)
	return &kind, &target
}
