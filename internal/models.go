package internal

import (
	"time"
)

// Offer is a vendor listing for a product. The catalog owns it; the tracking
// side only reads it.
type Offer struct {
	ID           int64   `gorm:"primaryKey"`
	ProductID    int64   `gorm:"index;not null"`
	VendorName   string  `gorm:"type:varchar(100);not null"`
	AffiliateURL string  `gorm:"type:text;not null"`
	Price        float64 `gorm:"not null"`
	Currency     string  `gorm:"type:varchar(3)"`
	IsAvailable  bool    `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReferralSlug is the public alias served under /refer/:slug. Slugs are
// deactivated, never deleted, so old clicks keep a valid reference.
type ReferralSlug struct {
	ID          int64   `gorm:"primaryKey"`
	PublicSlug  string  `gorm:"type:varchar(50);uniqueIndex;not null"`
	OfferID     int64   `gorm:"index;not null"`
	CampaignTag *string `gorm:"type:varchar(100)"`
	IsActive    bool    `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ClickEvent is append-only. IDs are assigned before the insert so a
// redelivered queue message maps to the same row.
type ClickEvent struct {
	ID             int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ReferralSlugID int64     `gorm:"index;not null" json:"referral_slug_id"`
	OfferID        int64     `gorm:"index;not null" json:"offer_id"`
	IPHash         string    `gorm:"column:ip_hash;type:varchar(64);not null" json:"ip_hash"`
	UserAgent      string    `gorm:"type:varchar(500)" json:"user_agent"`
	Referer        string    `gorm:"type:varchar(500)" json:"referer"`
	Country        string    `gorm:"type:varchar(8)" json:"country"`
	UTMSource      *string   `gorm:"column:utm_source;type:varchar(255)" json:"utm_source,omitempty"`
	UTMMedium      *string   `gorm:"column:utm_medium;type:varchar(255)" json:"utm_medium,omitempty"`
	UTMCampaign    *string   `gorm:"column:utm_campaign;type:varchar(255)" json:"utm_campaign,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (ClickEvent) TableName() string {
	return "click_events"
}

type ConversionStatus string

const (
	ConversionPending  ConversionStatus = "pending"
	ConversionApproved ConversionStatus = "approved"
	ConversionRejected ConversionStatus = "rejected"
)

// ConversionRecord is unique per (vendor_name, order_id). Repeated postbacks
// for the same order update status, commission and payload in place.
// Status is the normalized value; VendorStatus keeps the string the network
// sent, and statuses no alias covers are stored as pending.
type ConversionRecord struct {
	ID           int64            `gorm:"primaryKey"`
	ClickID      *int64           `gorm:"index"`
	OfferID      int64            `gorm:"index;not null"`
	VendorName   string           `gorm:"type:varchar(100);not null;uniqueIndex:ux_conversions_vendor_order,priority:1"`
	OrderID      string           `gorm:"type:varchar(191);not null;uniqueIndex:ux_conversions_vendor_order,priority:2"`
	Commission   float64          `gorm:"not null"`
	Currency     string           `gorm:"type:varchar(3);not null"`
	Status       ConversionStatus `gorm:"type:varchar(20);not null;index"`
	VendorStatus string           `gorm:"type:varchar(64)"`
	RawPayload   string           `gorm:"type:text;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ConversionRecord) TableName() string {
	return "conversions"
}

// AuditEntry stores one front-end interaction event.
type AuditEntry struct {
	ID         int64   `gorm:"primaryKey"`
	Action     string  `gorm:"type:varchar(64);index;not null"`
	TargetType *string `gorm:"type:varchar(32)"`
	TargetID   *string `gorm:"type:varchar(64)"`
	Details    string  `gorm:"type:text"`
	IPHash     string  `gorm:"column:ip_hash;type:varchar(64)"`
	CreatedAt  time.Time
}

func (AuditEntry) TableName() string {
	return "audit_logs"
}
