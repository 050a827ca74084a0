package postback

import (
	"strings"

	"github.com/MagnunAVF/affiliate-tracker/internal"
)

var statusAliases = map[string]internal.ConversionStatus{
	"pending":   internal.ConversionPending,
	"open":      internal.ConversionPending,
	"hold":      internal.ConversionPending,
	"on_hold":   internal.ConversionPending,
	"approved":  internal.ConversionApproved,
	"confirmed": internal.ConversionApproved,
	"completed": internal.ConversionApproved,
	"paid":      internal.ConversionApproved,
	"rejected":  internal.ConversionRejected,
	"declined":  internal.ConversionRejected,
	"cancelled": internal.ConversionRejected,
	"canceled":  internal.ConversionRejected,
	"refunded":  internal.ConversionRejected,
	"void":      internal.ConversionRejected,
}

// NormalizeStatus maps a vendor status onto pending/approved/rejected.
func NormalizeStatus(raw string) (internal.ConversionStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "_")
	s, ok := statusAliases[key]
	return s, ok
}
