package tracking

import "errors"

var (
	// ErrSlugNotFound covers unknown and inactive slugs alike.
	ErrSlugNotFound = errors.New("referral slug not found")

	ErrUnauthorized      = errors.New("postback credential rejected")
	ErrOfferUndetermined = errors.New("cannot determine product offer")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSlugConflict      = errors.New("public slug already exists")
	ErrOfferNotFound     = errors.New("product offer not found")
)
