package store

import (
	"context"
	"fmt"

	"github.com/MagnunAVF/affiliate-tracker/internal"
)

// Destination is what a public slug resolves to.
type Destination struct {
	SlugID  int64  `json:"slug_id"`
	OfferID int64  `json:"offer_id"`
	URL     string `json:"url"`
}

type SlugListing struct {
	ID          int64   `json:"id"`
	PublicSlug  string  `json:"public_slug"`
	OfferID     int64   `json:"product_offer_id"`
	CampaignTag *string `json:"campaign_tag"`
	IsActive    bool    `json:"is_active"`
	VendorName  string  `json:"vendor_name"`
}

func (s *Store) FindActiveDestination(ctx context.Context, slug string) (Destination, error) {
	var d Destination
	res := s.db.WithContext(ctx).
		Table("referral_slugs AS rs").
		Select("rs.id AS slug_id, o.id AS offer_id, o.affiliate_url AS url").
		Joins("JOIN offers o ON o.id = rs.offer_id").
		Where("rs.public_slug = ? AND rs.is_active = ?", slug, true).
		Limit(1).
		Scan(&d)
	if res.Error != nil {
		return Destination{}, fmt.Errorf("resolve slug %q: %w", slug, res.Error)
	}
	if res.RowsAffected == 0 || d.URL == "" {
		return Destination{}, ErrNotFound
	}
	return d, nil
}

// FindActiveDestinationByID is the cache-hit path: the slug id comes from the
// cache, the active flag and the offer URL always come from the database.
func (s *Store) FindActiveDestinationByID(ctx context.Context, slugID int64, slug string) (Destination, error) {
	var d Destination
	res := s.db.WithContext(ctx).
		Table("referral_slugs AS rs").
		Select("rs.id AS slug_id, o.id AS offer_id, o.affiliate_url AS url").
		Joins("JOIN offers o ON o.id = rs.offer_id").
		Where("rs.id = ? AND rs.public_slug = ? AND rs.is_active = ?", slugID, slug, true).
		Limit(1).
		Scan(&d)
	if res.Error != nil {
		return Destination{}, fmt.Errorf("resolve slug %d: %w", slugID, res.Error)
	}
	if res.RowsAffected == 0 || d.URL == "" {
		return Destination{}, ErrNotFound
	}
	return d, nil
}

// FindSlug looks a slug up regardless of its active flag.
func (s *Store) FindSlug(ctx context.Context, slug string) (*internal.ReferralSlug, error) {
	var rs internal.ReferralSlug
	if err := s.db.WithContext(ctx).Where("public_slug = ?", slug).First(&rs).Error; err != nil {
		return nil, translate(err)
	}
	return &rs, nil
}

func (s *Store) FindSlugByID(ctx context.Context, id int64) (*internal.ReferralSlug, error) {
	var rs internal.ReferralSlug
	if err := s.db.WithContext(ctx).First(&rs, id).Error; err != nil {
		return nil, translate(err)
	}
	return &rs, nil
}

func (s *Store) ListSlugs(ctx context.Context, limit int) ([]SlugListing, error) {
	var out []SlugListing
	err := s.db.WithContext(ctx).
		Table("referral_slugs AS rs").
		Select("rs.id, rs.public_slug, rs.offer_id, rs.campaign_tag, rs.is_active, o.vendor_name").
		Joins("JOIN offers o ON o.id = rs.offer_id").
		Order("rs.created_at DESC, rs.id DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list referral slugs: %w", err)
	}
	return out, nil
}

func (s *Store) CreateSlug(ctx context.Context, rs *internal.ReferralSlug) error {
	if err := s.db.WithContext(ctx).Create(rs).Error; err != nil {
		return fmt.Errorf("create referral slug: %w", translate(err))
	}
	return nil
}

func (s *Store) UpdateSlug(ctx context.Context, id int64, changes map[string]any) error {
	res := s.db.WithContext(ctx).Model(&internal.ReferralSlug{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return fmt.Errorf("update referral slug %d: %w", id, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) OfferExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&internal.Offer{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check offer %d: %w", id, err)
	}
	return count > 0, nil
}

func (s *Store) CreateOffer(ctx context.Context, o *internal.Offer) error {
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	return nil
}
