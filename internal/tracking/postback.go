package tracking

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MagnunAVF/affiliate-tracker/internal"
	"github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/metrics"
	"github.com/MagnunAVF/affiliate-tracker/internal/postback"
	"github.com/MagnunAVF/affiliate-tracker/internal/store"
)

type ConversionStore interface {
	FindClick(ctx context.Context, id int64) (*internal.ClickEvent, error)
	OfferExists(ctx context.Context, id int64) (bool, error)
	UpsertConversion(ctx context.Context, rec *internal.ConversionRecord) error
}

type PostbackRequest struct {
	Vendor string
	Secret string
	Body   []byte
}

type PostbackResult struct {
	Vendor     string
	OrderID    string
	Status     internal.ConversionStatus
	Attributed bool
}

// PostbackIngestor records conversions reported by affiliate networks.
// Delivery is at-least-once; replays converge on the latest payload through
// the storage upsert.
type PostbackIngestor struct {
	secrets map[string]string
	mappers *postback.Registry
	store   ConversionStore
}

func NewPostbackIngestor(secrets map[string]string, mappers *postback.Registry, s ConversionStore) *PostbackIngestor {
	normalized := make(map[string]string, len(secrets))
	for vendor, secret := range secrets {
		normalized[strings.ToLower(vendor)] = secret
	}
	return &PostbackIngestor{secrets: normalized, mappers: mappers, store: s}
}

func (p *PostbackIngestor) Ingest(ctx context.Context, req PostbackRequest) (PostbackResult, error) {
	vendor := strings.ToLower(strings.TrimSpace(req.Vendor))
	log := logger.FromContext(ctx).With("vendor", vendor)

	if !p.authorized(vendor, req.Secret) {
		metrics.PostbacksTotal.WithLabelValues("unknown", "unauthorized").Inc()
		log.Warn("postback rejected: invalid or missing secret")
		return PostbackResult{}, ErrUnauthorized
	}

	conv, err := p.mappers.Lookup(vendor).Map(req.Body)
	if err != nil {
		metrics.PostbacksTotal.WithLabelValues(vendor, "invalid").Inc()
		log.Warn("postback payload rejected", "err", err)
		return PostbackResult{}, err
	}
	log = log.With("order_id", conv.OrderID)
	if !conv.StatusKnown {
		log.Warn("unrecognized vendor status, recording as pending", "vendor_status", conv.VendorStatus)
	}

	clickID, offerID, err := p.attribute(ctx, conv)
	if err != nil {
		if errors.Is(err, ErrOfferUndetermined) {
			metrics.PostbacksTotal.WithLabelValues(vendor, "invalid").Inc()
			log.Warn("postback without resolvable offer", "click_id", conv.ClickID)
		} else {
			metrics.PostbacksTotal.WithLabelValues(vendor, "error").Inc()
		}
		return PostbackResult{}, err
	}

	rec := &internal.ConversionRecord{
		ClickID:      clickID,
		OfferID:      offerID,
		VendorName:   vendor,
		OrderID:      conv.OrderID,
		Commission:   conv.Commission,
		Currency:     conv.Currency,
		Status:       conv.Status,
		VendorStatus: conv.VendorStatus,
		RawPayload:   string(req.Body),
	}
	if err := p.store.UpsertConversion(ctx, rec); err != nil {
		metrics.PostbacksTotal.WithLabelValues(vendor, "error").Inc()
		return PostbackResult{}, err
	}

	outcome := "attributed"
	if clickID == nil {
		outcome = "unattributed"
	}
	metrics.PostbacksTotal.WithLabelValues(vendor, outcome).Inc()
	log.Info("conversion recorded", "status", conv.Status, "attributed", clickID != nil)

	return PostbackResult{
		Vendor:     vendor,
		OrderID:    conv.OrderID,
		Status:     conv.Status,
		Attributed: clickID != nil,
	}, nil
}

func (p *PostbackIngestor) authorized(vendor, secret string) bool {
	expected, ok := p.secrets[vendor]
	if !ok || expected == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(secret)) == 1
}

// attribute links the conversion to its click when possible. Without a
// click the payload has to name an existing offer.
func (p *PostbackIngestor) attribute(ctx context.Context, conv postback.Conversion) (*int64, int64, error) {
	log := logger.FromContext(ctx)

	if conv.ClickID != "" {
		id, err := strconv.ParseInt(conv.ClickID, 10, 64)
		if err != nil {
			log.Warn("postback click id is not numeric", "click_id", conv.ClickID)
		} else {
			click, err := p.store.FindClick(ctx, id)
			switch {
			case err == nil:
				return &click.ID, click.OfferID, nil
			case errors.Is(err, store.ErrNotFound):
				log.Warn("postback for unknown click", "click_id", id)
			default:
				return nil, 0, fmt.Errorf("look up click %d: %w", id, err)
			}
		}
	}

	if conv.OfferID == 0 {
		return nil, 0, ErrOfferUndetermined
	}
	ok, err := p.store.OfferExists(ctx, conv.OfferID)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, ErrOfferUndetermined
	}
	return nil, conv.OfferID, nil
}
