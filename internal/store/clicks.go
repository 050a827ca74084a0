package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MagnunAVF/affiliate-tracker/internal"
)

func (s *Store) InsertClick(ctx context.Context, ev *internal.ClickEvent) error {
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("insert click %d: %w", ev.ID, err)
	}
	return nil
}

// InsertClicks writes a batch in one transaction. Rows whose id already
// exists are skipped, so a redelivered batch is a no-op.
func (s *Store) InsertClicks(ctx context.Context, events []internal.ClickEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&events).Error
		if err != nil {
			return fmt.Errorf("insert %d clicks: %w", len(events), err)
		}
		return nil
	})
}

func (s *Store) FindClick(ctx context.Context, id int64) (*internal.ClickEvent, error) {
	var ev internal.ClickEvent
	if err := s.db.WithContext(ctx).First(&ev, id).Error; err != nil {
		return nil, translate(err)
	}
	return &ev, nil
}

func (s *Store) CountClicksBySlug(ctx context.Context, slugID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&internal.ClickEvent{}).Where("referral_slug_id = ?", slugID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count clicks for slug %d: %w", slugID, err)
	}
	return count, nil
}
