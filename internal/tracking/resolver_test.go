package tracking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MagnunAVF/affiliate-tracker/internal/store"
	"github.com/MagnunAVF/affiliate-tracker/internal/store/storetest"
	"github.com/MagnunAVF/affiliate-tracker/internal/tracking"
)

func TestResolveActiveSlug(t *testing.T) {
	s := storetest.New(t)
	rs, offer := storetest.SeedSlug(t, s, "abc123", "https://vendor.example/p/42?ref=x", true)
	r := tracking.NewResolver(s, nil)

	d, err := r.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if d.URL != "https://vendor.example/p/42?ref=x" || d.SlugID != rs.ID || d.OfferID != offer.ID {
		t.Fatalf("unexpected destination: %+v", d)
	}
}

func TestResolveInactiveAndUnknownAreNotFound(t *testing.T) {
	s := storetest.New(t)
	storetest.SeedSlug(t, s, "retired", "https://vendor.example/p/1", false)
	r := tracking.NewResolver(s, nil)

	for _, slug := range []string{"retired", "never-existed", ""} {
		if _, err := r.Resolve(context.Background(), slug); !errors.Is(err, tracking.ErrSlugNotFound) {
			t.Fatalf("slug %q: expected ErrSlugNotFound, got %v", slug, err)
		}
	}
}

func TestResolveCachesSlugID(t *testing.T) {
	s := storetest.New(t)
	rs, _ := storetest.SeedSlug(t, s, "abc123", "https://vendor.example/p/42", true)
	cache := newMemCache()
	r := tracking.NewResolver(s, cache)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "abc123"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	id, ok, _ := cache.Get(ctx, "abc123")
	if !ok || id != rs.ID {
		t.Fatalf("expected slug id %d cached, got %d (%v)", rs.ID, id, ok)
	}

	d, err := r.Resolve(ctx, "abc123")
	if err != nil {
		t.Fatalf("resolve cached: %v", err)
	}
	if d.SlugID != rs.ID || d.URL != "https://vendor.example/p/42" {
		t.Fatalf("unexpected destination: %+v", d)
	}
}

// Slugs and offers are owned by the catalog, so they change without going
// through SlugAdmin and nothing evicts the cache entry.
func TestResolveWarmCacheSeesCatalogChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivated", func(t *testing.T) {
		s := storetest.New(t)
		rs, _ := storetest.SeedSlug(t, s, "abc123", "https://vendor.example/p/42", true)
		cache := newMemCache()
		r := tracking.NewResolver(s, cache)

		if _, err := r.Resolve(ctx, "abc123"); err != nil {
			t.Fatalf("warm: %v", err)
		}
		if err := s.UpdateSlug(ctx, rs.ID, map[string]any{"is_active": false}); err != nil {
			t.Fatalf("deactivate: %v", err)
		}
		if _, err := r.Resolve(ctx, "abc123"); !errors.Is(err, tracking.ErrSlugNotFound) {
			t.Fatalf("inactive slug resolved from a warm cache: %v", err)
		}
		if _, ok, _ := cache.Get(ctx, "abc123"); ok {
			t.Fatalf("stale cache entry not evicted")
		}
	})

	t.Run("url changed", func(t *testing.T) {
		db := storetest.Open(t)
		s := store.New(db)
		_, offer := storetest.SeedSlug(t, s, "abc123", "https://vendor.example/p/42", true)
		r := tracking.NewResolver(s, newMemCache())

		if _, err := r.Resolve(ctx, "abc123"); err != nil {
			t.Fatalf("warm: %v", err)
		}
		err := db.Model(offer).Update("affiliate_url", "https://vendor.example/p/43").Error
		if err != nil {
			t.Fatalf("update offer: %v", err)
		}
		d, err := r.Resolve(ctx, "abc123")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if d.URL != "https://vendor.example/p/43" {
			t.Fatalf("expected current offer url, got %q", d.URL)
		}
	})

	t.Run("renamed", func(t *testing.T) {
		s := storetest.New(t)
		rs, _ := storetest.SeedSlug(t, s, "abc123", "https://vendor.example/p/42", true)
		r := tracking.NewResolver(s, newMemCache())

		if _, err := r.Resolve(ctx, "abc123"); err != nil {
			t.Fatalf("warm: %v", err)
		}
		if err := s.UpdateSlug(ctx, rs.ID, map[string]any{"public_slug": "def456"}); err != nil {
			t.Fatalf("rename: %v", err)
		}
		if _, err := r.Resolve(ctx, "abc123"); !errors.Is(err, tracking.ErrSlugNotFound) {
			t.Fatalf("old slug name still resolves: %v", err)
		}
		if _, err := r.Resolve(ctx, "def456"); err != nil {
			t.Fatalf("new slug name: %v", err)
		}
	})
}

func TestResolveFallsBackWhenCacheFails(t *testing.T) {
	s := storetest.New(t)
	storetest.SeedSlug(t, s, "abc123", "https://vendor.example/p/42", true)
	cache := newMemCache()
	cache.failGet = true
	r := tracking.NewResolver(s, cache)

	d, err := r.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("expected database fallback, got %v", err)
	}
	if d.URL != "https://vendor.example/p/42" {
		t.Fatalf("unexpected url %q", d.URL)
	}
}
