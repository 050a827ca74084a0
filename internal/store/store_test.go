package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MagnunAVF/affiliate-tracker/internal"
	"github.com/MagnunAVF/affiliate-tracker/internal/store"
	"github.com/MagnunAVF/affiliate-tracker/internal/store/storetest"
)

func TestFindActiveDestination(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	active, offer := storetest.SeedSlug(t, s, "abc123", "https://vendor.example/p/42?ref=x", true)
	storetest.SeedSlug(t, s, "gone", "https://vendor.example/p/1", false)

	d, err := s.FindActiveDestination(ctx, "abc123")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if d.SlugID != active.ID || d.OfferID != offer.ID || d.URL != "https://vendor.example/p/42?ref=x" {
		t.Fatalf("unexpected destination: %+v", d)
	}

	if _, err := s.FindActiveDestination(ctx, "gone"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for inactive slug, got %v", err)
	}
	if _, err := s.FindActiveDestination(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown slug, got %v", err)
	}
}

func TestFindActiveDestinationByID(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	active, _ := storetest.SeedSlug(t, s, "abc123", "https://vendor.example/p/42", true)
	gone, _ := storetest.SeedSlug(t, s, "gone", "https://vendor.example/p/1", false)

	d, err := s.FindActiveDestinationByID(ctx, active.ID, "abc123")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if d.SlugID != active.ID || d.URL != "https://vendor.example/p/42" {
		t.Fatalf("unexpected destination: %+v", d)
	}

	if _, err := s.FindActiveDestinationByID(ctx, gone.ID, "gone"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for inactive slug, got %v", err)
	}
	if _, err := s.FindActiveDestinationByID(ctx, active.ID, "renamed"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found when the name no longer matches, got %v", err)
	}
}

func TestUpsertConversionKeepsSingleRow(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	clickID := int64(77)

	first := &internal.ConversionRecord{
		ClickID: &clickID, OfferID: 1, VendorName: "daraz", OrderID: "O-1",
		Commission: 120.5, Currency: "NPR", Status: internal.ConversionApproved, RawPayload: `{"a":1}`,
	}
	if err := s.UpsertConversion(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &internal.ConversionRecord{
		OfferID: 2, VendorName: "daraz", OrderID: "O-1",
		Commission: 0, Currency: "USD", Status: internal.ConversionRejected, RawPayload: `{"a":2}`,
		UpdatedAt: time.Now().Add(time.Minute),
	}
	if err := s.UpsertConversion(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	n, err := s.CountConversions(ctx, "daraz", "O-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one conversion row, got %d", n)
	}

	got, err := s.FindConversion(ctx, "daraz", "O-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != internal.ConversionRejected || got.Commission != 0 || got.RawPayload != `{"a":2}` {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.ClickID == nil || *got.ClickID != clickID || got.OfferID != 1 || got.Currency != "NPR" {
		t.Fatalf("original attribution overwritten: %+v", got)
	}
}

func TestInsertClicksSkipsExistingIDs(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	events := []internal.ClickEvent{
		{ID: 1, ReferralSlugID: 1, OfferID: 1, IPHash: "h1"},
		{ID: 2, ReferralSlugID: 1, OfferID: 1, IPHash: "h2"},
	}
	if err := s.InsertClicks(ctx, events); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := s.InsertClicks(ctx, events); err != nil {
		t.Fatalf("redelivered batch: %v", err)
	}
	n, err := s.CountClicksBySlug(ctx, 1)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 clicks, got %d", n)
	}
}

func TestUpdateSlugMissing(t *testing.T) {
	s := storetest.New(t)
	err := s.UpdateSlug(context.Background(), 999, map[string]any{"is_active": false})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOverview(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	rs, offer := storetest.SeedSlug(t, s, "abc123", "https://vendor.example/p/42", true)

	for i := int64(1); i <= 3; i++ {
		if err := s.InsertClick(ctx, &internal.ClickEvent{ID: i, ReferralSlugID: rs.ID, OfferID: offer.ID, IPHash: "h"}); err != nil {
			t.Fatalf("insert click: %v", err)
		}
	}
	for _, order := range []string{"O-1", "O-2"} {
		rec := &internal.ConversionRecord{OfferID: offer.ID, VendorName: "daraz", OrderID: order, Commission: 10, Currency: "NPR", Status: internal.ConversionApproved, RawPayload: "{}"}
		if err := s.UpsertConversion(ctx, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	ov, err := s.Overview(ctx, 20)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if ov.TotalClicks != 3 {
		t.Fatalf("expected 3 clicks, got %d", ov.TotalClicks)
	}
	if len(ov.TopSlugs) != 1 || ov.TopSlugs[0].PublicSlug != "abc123" || ov.TopSlugs[0].Clicks != 3 {
		t.Fatalf("unexpected top slugs: %+v", ov.TopSlugs)
	}
	if len(ov.Conversions) != 1 || ov.Conversions[0].Count != 2 || ov.Conversions[0].Commission != 20 {
		t.Fatalf("unexpected conversions: %+v", ov.Conversions)
	}
}
