// Package storetest opens throwaway in-memory databases for tests.
package storetest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MagnunAVF/affiliate-tracker/internal"
	"github.com/MagnunAVF/affiliate-tracker/internal/store"
)

// New returns a migrated store backed by a private in-memory sqlite database.
func New(t testing.TB) *store.Store {
	t.Helper()
	return store.New(Open(t))
}

// Open returns the migrated gorm handle behind New, for tests that change
// catalog rows directly.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := store.Open("sqlite", dsn, gormlogger.Default.LogMode(gormlogger.Silent))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps the in-memory database alive and writes serialized
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewFile returns a migrated store on a sqlite file with a pool of conns
// connections, for tests that need real concurrent writers. Writers wait on
// the file lock instead of failing with SQLITE_BUSY.
func NewFile(t testing.TB, conns int) *store.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tracker.db")
	dsn := path + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	db, err := store.Open("sqlite", dsn, gormlogger.Default.LogMode(gormlogger.Silent))
	if err != nil {
		t.Fatalf("open sqlite file: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { sqlDB.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(db)
}

// SeedSlug creates an offer and a slug pointing at it.
func SeedSlug(t testing.TB, s *store.Store, slug, url string, active bool) (*internal.ReferralSlug, *internal.Offer) {
	t.Helper()
	ctx := context.Background()

	offer := &internal.Offer{ProductID: 1, VendorName: "daraz", AffiliateURL: url, Price: 99.5, Currency: "NPR", IsAvailable: true}
	if err := s.CreateOffer(ctx, offer); err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	rs := &internal.ReferralSlug{PublicSlug: slug, OfferID: offer.ID, IsActive: active}
	if err := s.CreateSlug(ctx, rs); err != nil {
		t.Fatalf("seed slug: %v", err)
	}
	return rs, offer
}
