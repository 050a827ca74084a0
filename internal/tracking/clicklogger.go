package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/MagnunAVF/affiliate-tracker/internal"
)

// ClickInput carries the request facts of one redirect. Strings must be
// owned copies: the logger runs after the request buffers are recycled.
type ClickInput struct {
	ClickID     int64
	SlugID      int64
	OfferID     int64
	IP          string
	UserAgent   string
	Referer     string
	Country     string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	At          time.Time
}

type ClickLogger interface {
	LogClick(ctx context.Context, in ClickInput) error
}

// NewClickEvent normalizes a ClickInput into the stored row: IP hashed,
// headers truncated, missing UTM values left NULL.
func NewClickEvent(in ClickInput, salt string) internal.ClickEvent {
	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	return internal.ClickEvent{
		ID:             in.ClickID,
		ReferralSlugID: in.SlugID,
		OfferID:        in.OfferID,
		IPHash:         HashIP(salt, in.IP),
		UserAgent:      truncate(in.UserAgent, maxHeaderLen),
		Referer:        truncate(in.Referer, maxHeaderLen),
		Country:        truncate(in.Country, 8),
		UTMSource:      optional(truncate(in.UTMSource, 255)),
		UTMMedium:      optional(truncate(in.UTMMedium, 255)),
		UTMCampaign:    optional(truncate(in.UTMCampaign, 255)),
		CreatedAt:      at.UTC(),
	}
}

type ClickWriter interface {
	InsertClick(ctx context.Context, ev *internal.ClickEvent) error
}

// StoreClickLogger writes the click with a single insert.
type StoreClickLogger struct {
	clicks ClickWriter
	salt   string
}

func NewStoreClickLogger(clicks ClickWriter, salt string) *StoreClickLogger {
	return &StoreClickLogger{clicks: clicks, salt: salt}
}

func (l *StoreClickLogger) LogClick(ctx context.Context, in ClickInput) error {
	ev := NewClickEvent(in, l.salt)
	return l.clicks.InsertClick(ctx, &ev)
}

type ClickPublisher interface {
	PublishClick(ctx context.Context, ev internal.ClickEvent) error
}

// QueueClickLogger hands the normalized click to a broker; the click worker
// persists it. The IP is hashed before it leaves the process.
type QueueClickLogger struct {
	pub  ClickPublisher
	salt string
}

func NewQueueClickLogger(pub ClickPublisher, salt string) *QueueClickLogger {
	return &QueueClickLogger{pub: pub, salt: salt}
}

func (l *QueueClickLogger) LogClick(ctx context.Context, in ClickInput) error {
	if err := l.pub.PublishClick(ctx, NewClickEvent(in, l.salt)); err != nil {
		return fmt.Errorf("publish click %d: %w", in.ClickID, err)
	}
	return nil
}
