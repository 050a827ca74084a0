package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/MagnunAVF/affiliate-tracker/internal"
)

// InsertAuditEntries is all-or-nothing.
func (s *Store) InsertAuditEntries(ctx context.Context, entries []internal.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("insert %d audit entries: %w", len(entries), err)
		}
		return nil
	})
}
