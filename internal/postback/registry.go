package postback

import "strings"

const (
	VendorDaraz   = "daraz"
	VendorGeneric = "generic"
)

// Registry picks the Mapper for a vendor path segment.
type Registry struct {
	mappers  map[string]Mapper
	fallback Mapper
}

// NewRegistry registers the built-in vendors. defaultCurrency applies to the
// generic layout; Daraz reports in NPR unless told otherwise.
func NewRegistry(defaultCurrency string) *Registry {
	generic := Fields{
		ClickID:         []string{"click_id", "subid", "subid1"},
		OrderID:         []string{"order_id", "transaction_id"},
		Commission:      []string{"commission", "payout"},
		Currency:        []string{"currency"},
		Status:          []string{"status"},
		OfferID:         []string{"offer_id", "product_offer_id"},
		DefaultCurrency: defaultCurrency,
	}
	r := &Registry{mappers: make(map[string]Mapper), fallback: generic}
	r.Register(VendorGeneric, generic)
	r.Register(VendorDaraz, Fields{
		ClickID:         []string{"subid1"},
		OrderID:         []string{"order_id"},
		Commission:      []string{"commission"},
		Currency:        []string{"currency"},
		Status:          []string{"status"},
		OfferID:         []string{"offer_id", "product_offer_id"},
		DefaultCurrency: "NPR",
	})
	return r
}

func (r *Registry) Register(vendor string, m Mapper) {
	r.mappers[strings.ToLower(vendor)] = m
}

func (r *Registry) Lookup(vendor string) Mapper {
	if m, ok := r.mappers[strings.ToLower(vendor)]; ok {
		return m
	}
	return r.fallback
}
