package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/MagnunAVF/affiliate-tracker/internal"
	"github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/store"
)

const slugListLimit = 50

type SlugAdminStore interface {
	ListSlugs(ctx context.Context, limit int) ([]store.SlugListing, error)
	FindSlug(ctx context.Context, slug string) (*internal.ReferralSlug, error)
	FindSlugByID(ctx context.Context, id int64) (*internal.ReferralSlug, error)
	CreateSlug(ctx context.Context, rs *internal.ReferralSlug) error
	UpdateSlug(ctx context.Context, id int64, changes map[string]any) error
	OfferExists(ctx context.Context, id int64) (bool, error)
}

type CreateSlugInput struct {
	PublicSlug  string  `json:"public_slug" validate:"omitempty,min=3,max=50,slug"`
	OfferID     int64   `json:"product_offer_id" validate:"required,gt=0"`
	CampaignTag *string `json:"campaign_tag" validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
}

type UpdateSlugInput struct {
	PublicSlug  *string `json:"public_slug" validate:"omitempty,min=3,max=50,slug"`
	OfferID     *int64  `json:"product_offer_id" validate:"omitempty,gt=0"`
	CampaignTag *string `json:"campaign_tag" validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
}

// SlugAdmin is the operator side of referral slugs. Slugs are deactivated,
// never deleted, and every change evicts the cached destination.
type SlugAdmin struct {
	store    SlugAdminStore
	cache    SlugCache
	ids      IDGenerator
	validate *validator.Validate
}

func NewSlugAdmin(s SlugAdminStore, cache SlugCache, ids IDGenerator, validate *validator.Validate) *SlugAdmin {
	return &SlugAdmin{store: s, cache: cache, ids: ids, validate: validate}
}

func (a *SlugAdmin) List(ctx context.Context) ([]store.SlugListing, error) {
	return a.store.ListSlugs(ctx, slugListLimit)
}

func (a *SlugAdmin) Create(ctx context.Context, in CreateSlugInput) (*internal.ReferralSlug, error) {
	if err := a.validate.Struct(in); err != nil {
		return nil, invalid(err)
	}
	if err := a.checkOffer(ctx, in.OfferID); err != nil {
		return nil, err
	}

	slug := in.PublicSlug
	if slug == "" {
		id, err := a.ids.NextID()
		if err != nil {
			return nil, fmt.Errorf("generate slug: %w", err)
		}
		slug = internal.EncodeID(uint64(id))
	}
	if err := a.checkSlugFree(ctx, slug, 0); err != nil {
		return nil, err
	}

	rs := &internal.ReferralSlug{
		PublicSlug:  slug,
		OfferID:     in.OfferID,
		CampaignTag: in.CampaignTag,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if err := a.store.CreateSlug(ctx, rs); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrSlugConflict
		}
		return nil, err
	}
	a.evict(ctx, slug)
	return rs, nil
}

func (a *SlugAdmin) Update(ctx context.Context, id int64, in UpdateSlugInput) (*internal.ReferralSlug, error) {
	if err := a.validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	current, err := a.store.FindSlugByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSlugNotFound
	}
	if err != nil {
		return nil, err
	}

	changes := make(map[string]any)
	if in.PublicSlug != nil && *in.PublicSlug != current.PublicSlug {
		if err := a.checkSlugFree(ctx, *in.PublicSlug, id); err != nil {
			return nil, err
		}
		changes["public_slug"] = *in.PublicSlug
	}
	if in.OfferID != nil {
		if err := a.checkOffer(ctx, *in.OfferID); err != nil {
			return nil, err
		}
		changes["offer_id"] = *in.OfferID
	}
	if in.CampaignTag != nil {
		changes["campaign_tag"] = *in.CampaignTag
	}
	if in.IsActive != nil {
		changes["is_active"] = *in.IsActive
	}
	if len(changes) == 0 {
		return nil, invalid(errors.New("no fields provided for update"))
	}

	if err := a.store.UpdateSlug(ctx, id, changes); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrSlugNotFound
		case errors.Is(err, store.ErrDuplicate):
			return nil, ErrSlugConflict
		}
		return nil, err
	}

	a.evict(ctx, current.PublicSlug)
	if slug, ok := changes["public_slug"].(string); ok {
		a.evict(ctx, slug)
	}
	return a.store.FindSlugByID(ctx, id)
}

// Deactivate is the only way to retire a slug.
func (a *SlugAdmin) Deactivate(ctx context.Context, id int64) error {
	inactive := false
	_, err := a.Update(ctx, id, UpdateSlugInput{IsActive: &inactive})
	return err
}

func (a *SlugAdmin) checkOffer(ctx context.Context, offerID int64) error {
	ok, err := a.store.OfferExists(ctx, offerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrOfferNotFound, offerID)
	}
	return nil
}

func (a *SlugAdmin) checkSlugFree(ctx context.Context, slug string, selfID int64) error {
	existing, err := a.store.FindSlug(ctx, slug)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == selfID:
		return nil
	default:
		return ErrSlugConflict
	}
}

func (a *SlugAdmin) evict(ctx context.Context, slug string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(ctx, slug); err != nil {
		logger.FromContext(ctx).Warn("slug cache invalidation failed", "slug", slug, "err", err)
	}
}
