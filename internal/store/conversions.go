package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/MagnunAVF/affiliate-tracker/internal"
)

// UpsertConversion inserts the record or, when (vendor_name, order_id) already
// exists, overwrites the statuses, commission, raw payload and updated_at in the
// same statement. The click reference and creation data of the first insert
// are kept. Concurrent calls serialize on the unique index.
func (s *Store) UpsertConversion(ctx context.Context, rec *internal.ConversionRecord) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vendor_name"}, {Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "vendor_status", "commission", "raw_payload", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("upsert conversion %s/%s: %w", rec.VendorName, rec.OrderID, err)
	}
	return nil
}

func (s *Store) FindConversion(ctx context.Context, vendor, orderID string) (*internal.ConversionRecord, error) {
	var rec internal.ConversionRecord
	err := s.db.WithContext(ctx).Where("vendor_name = ? AND order_id = ?", vendor, orderID).First(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (s *Store) CountConversions(ctx context.Context, vendor, orderID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&internal.ConversionRecord{}).
		Where("vendor_name = ? AND order_id = ?", vendor, orderID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count conversions %s/%s: %w", vendor, orderID, err)
	}
	return count, nil
}
