package store

import (
	"context"
	"fmt"

	"github.com/MagnunAVF/affiliate-tracker/internal"
)

type SlugClicks struct {
	SlugID     int64  `json:"slug_id"`
	PublicSlug string `json:"public_slug"`
	Clicks     int64  `json:"clicks"`
}

type ConversionSummary struct {
	Status     internal.ConversionStatus `json:"status"`
	Count      int64                     `json:"count"`
	Commission float64                   `json:"commission"`
}

type Overview struct {
	TotalClicks int64               `json:"total_clicks"`
	TopSlugs    []SlugClicks        `json:"top_slugs"`
	Conversions []ConversionSummary `json:"conversions"`
}

func (s *Store) Overview(ctx context.Context, topN int) (Overview, error) {
	var ov Overview
	db := s.db.WithContext(ctx)

	if err := db.Model(&internal.ClickEvent{}).Count(&ov.TotalClicks).Error; err != nil {
		return Overview{}, fmt.Errorf("count clicks: %w", err)
	}

	err := db.Table("click_events AS c").
		Select("c.referral_slug_id AS slug_id, rs.public_slug, COUNT(*) AS clicks").
		Joins("JOIN referral_slugs rs ON rs.id = c.referral_slug_id").
		Group("c.referral_slug_id, rs.public_slug").
		Order("clicks DESC").
		Limit(topN).
		Scan(&ov.TopSlugs).Error
	if err != nil {
		return Overview{}, fmt.Errorf("top slugs: %w", err)
	}

	err = db.Model(&internal.ConversionRecord{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(commission), 0) AS commission").
		Group("status").
		Order("status").
		Scan(&ov.Conversions).Error
	if err != nil {
		return Overview{}, fmt.Errorf("conversion summary: %w", err)
	}
	return ov, nil
}
