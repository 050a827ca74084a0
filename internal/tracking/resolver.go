package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/MagnunAVF/affiliate-tracker/internal"
	"github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/metrics"
	"github.com/MagnunAVF/affiliate-tracker/internal/store"
)

type SlugStore interface {
	FindActiveDestination(ctx context.Context, slug string) (store.Destination, error)
	FindActiveDestinationByID(ctx context.Context, slugID int64, slug string) (store.Destination, error)
	FindSlug(ctx context.Context, slug string) (*internal.ReferralSlug, error)
}

// SlugCache remembers which slug id a public slug names. It never holds the
// active flag or the URL.
type SlugCache interface {
	Get(ctx context.Context, slug string) (int64, bool, error)
	Set(ctx context.Context, slug string, slugID int64) error
	Invalidate(ctx context.Context, slug string) error
}

// Resolver maps a public slug to its active offer destination. The database
// decides every outcome: the optional cache only skips the slug lookup by
// name, and any cache failure falls back to the full query.
type Resolver struct {
	slugs SlugStore
	cache SlugCache
}

func NewResolver(slugs SlugStore, cache SlugCache) *Resolver {
	return &Resolver{slugs: slugs, cache: cache}
}

func (r *Resolver) Resolve(ctx context.Context, slug string) (store.Destination, error) {
	if slug == "" {
		return store.Destination{}, ErrSlugNotFound
	}
	log := logger.FromContext(ctx).With("slug", slug)

	if r.cache != nil {
		if d, ok := r.resolveCached(ctx, slug); ok {
			return d, nil
		}
	}

	d, err := r.slugs.FindActiveDestination(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		r.logMiss(ctx, slug)
		return store.Destination{}, ErrSlugNotFound
	}
	if err != nil {
		return store.Destination{}, fmt.Errorf("resolve slug %q: %w", slug, err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, slug, d.SlugID); err != nil {
			log.Warn("slug cache write failed", "err", err)
		}
	}
	return d, nil
}

// resolveCached checks the cached slug id against the database. A stale
// entry (slug deactivated or renamed elsewhere) is evicted and reported as
// a miss so the caller runs the full lookup.
func (r *Resolver) resolveCached(ctx context.Context, slug string) (store.Destination, bool) {
	log := logger.FromContext(ctx).With("slug", slug)

	slugID, ok, err := r.cache.Get(ctx, slug)
	switch {
	case err != nil:
		metrics.SlugCacheTotal.WithLabelValues("error").Inc()
		log.Warn("slug cache read failed", "err", err)
		return store.Destination{}, false
	case !ok:
		metrics.SlugCacheTotal.WithLabelValues("miss").Inc()
		return store.Destination{}, false
	}

	d, err := r.slugs.FindActiveDestinationByID(ctx, slugID, slug)
	if err == nil {
		metrics.SlugCacheTotal.WithLabelValues("hit").Inc()
		return d, true
	}
	metrics.SlugCacheTotal.WithLabelValues("stale").Inc()
	if !errors.Is(err, store.ErrNotFound) {
		log.Warn("cached slug lookup failed", "slug_id", slugID, "err", err)
	}
	if err := r.cache.Invalidate(ctx, slug); err != nil {
		log.Warn("slug cache invalidation failed", "err", err)
	}
	return store.Destination{}, false
}

// logMiss tells inactive slugs from unknown ones, for operators only.
func (r *Resolver) logMiss(ctx context.Context, slug string) {
	log := logger.FromContext(ctx).With("slug", slug)
	rs, err := r.slugs.FindSlug(ctx, slug)
	switch {
	case err == nil && !rs.IsActive:
		log.Warn("refer slug inactive", "slug_id", rs.ID)
	case err == nil:
		log.Warn("refer slug has no offer destination", "slug_id", rs.ID, "offer_id", rs.OfferID)
	case errors.Is(err, store.ErrNotFound):
		log.Warn("refer slug not found")
	default:
		log.Warn("refer slug lookup failed", "err", err)
	}
}
