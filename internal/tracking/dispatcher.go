package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MagnunAVF/affiliate-tracker/internal/metrics"
)

type IDGenerator interface {
	NextID() (int64, error)
}

type RedirectRequest struct {
	Slug        string
	IP          string
	UserAgent   string
	Referer     string
	Country     string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

// Dispatcher resolves a slug and schedules the click write. Its latency is
// the resolve step only; the click is written by a detached task.
type Dispatcher struct {
	resolver *Resolver
	clicks   ClickLogger
	detacher *Detacher
	ids      IDGenerator
}

func NewDispatcher(resolver *Resolver, clicks ClickLogger, detacher *Detacher, ids IDGenerator) *Dispatcher {
	return &Dispatcher{resolver: resolver, clicks: clicks, detacher: detacher, ids: ids}
}

// Dispatch returns the URL to redirect to. A nil error means the click has
// been scheduled, not that it was written.
func (d *Dispatcher) Dispatch(ctx context.Context, req RedirectRequest) (string, error) {
	dest, err := d.resolver.Resolve(ctx, req.Slug)
	if errors.Is(err, ErrSlugNotFound) {
		metrics.RedirectsTotal.WithLabelValues("not_found").Inc()
		return "", err
	}
	if err != nil {
		metrics.RedirectsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	in := ClickInput{
		SlugID:      dest.SlugID,
		OfferID:     dest.OfferID,
		IP:          req.IP,
		UserAgent:   req.UserAgent,
		Referer:     req.Referer,
		Country:     req.Country,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
		At:          time.Now(),
	}
	d.detacher.Go(ctx, "log_click", func(ctx context.Context) error {
		return d.logClick(ctx, req.Slug, in)
	})

	metrics.RedirectsTotal.WithLabelValues("redirected").Inc()
	return dest.URL, nil
}

func (d *Dispatcher) logClick(ctx context.Context, slug string, in ClickInput) error {
	id, err := d.ids.NextID()
	if err != nil {
		metrics.ClicksTotal.WithLabelValues("dropped").Inc()
		return fmt.Errorf("allocate click id for slug %q: %w", slug, err)
	}
	in.ClickID = id

	if err := d.clicks.LogClick(ctx, in); err != nil {
		metrics.ClicksTotal.WithLabelValues("dropped").Inc()
		return fmt.Errorf("log click for slug %q: %w", slug, err)
	}
	metrics.ClicksTotal.WithLabelValues("logged").Inc()
	return nil
}
