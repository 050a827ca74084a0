package postback

import (
	"errors"
	"math"
	"testing"

	"github.com/MagnunAVF/affiliate-tracker/internal"
)

func TestDarazMapping(t *testing.T) {
	r := NewRegistry("USD")
	c, err := r.Lookup("Daraz").Map([]byte(`{"order_id":"O-1","commission":"120.5","status":"Approved","subid1":12345}`))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if c.OrderID != "O-1" || c.Commission != 120.5 || c.Status != internal.ConversionApproved {
		t.Fatalf("unexpected conversion: %+v", c)
	}
	if c.ClickID != "12345" {
		t.Fatalf("expected numeric subid1 as string, got %q", c.ClickID)
	}
	if c.Currency != "NPR" {
		t.Fatalf("expected NPR default, got %q", c.Currency)
	}
	if c.OfferID != 0 {
		t.Fatalf("expected no offer id, got %d", c.OfferID)
	}
}

func TestGenericMappingWithOffer(t *testing.T) {
	r := NewRegistry("usd")
	c, err := r.Lookup("unknown-network").Map([]byte(`{"transaction_id":"T-9","payout":3,"status":"cancelled","offer_id":42,"currency":"eur"}`))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if c.OrderID != "T-9" || c.Commission != 3 || c.Status != internal.ConversionRejected {
		t.Fatalf("unexpected conversion: %+v", c)
	}
	if c.OfferID != 42 || c.Currency != "EUR" {
		t.Fatalf("unexpected offer/currency: %+v", c)
	}
}

func TestMappingValidationErrors(t *testing.T) {
	r := NewRegistry("USD")
	m := r.Lookup(VendorGeneric)

	cases := map[string]struct {
		body  string
		field string
	}{
		"not an object":      {`[1,2]`, "body"},
		"missing order":      {`{"commission":1,"status":"pending"}`, "order_id"},
		"missing commission": {`{"order_id":"A","status":"pending"}`, "commission"},
		"negative":           {`{"order_id":"A","commission":-1,"status":"pending"}`, "commission"},
		"text commission":    {`{"order_id":"A","commission":"lots","status":"pending"}`, "commission"},
		"missing status":     {`{"order_id":"A","commission":1}`, "status"},
		"bad currency":       {`{"order_id":"A","commission":1,"status":"paid","currency":"EURO"}`, "currency"},
		"fractional offer":   {`{"order_id":"A","commission":1,"status":"paid","offer_id":1.5}`, "offer_id"},
		"offer overflow":     {`{"order_id":"A","commission":1,"status":"paid","offer_id":9223372036854775808}`, "offer_id"},
		"zero offer":         {`{"order_id":"A","commission":1,"status":"paid","offer_id":"0"}`, "offer_id"},
	}
	for name, tc := range cases {
		_, err := m.Map([]byte(tc.body))
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
		if ve.Field != tc.field {
			t.Fatalf("%s: expected field %q, got %q", name, tc.field, ve.Field)
		}
	}
}

func TestUnknownStatusMapsToPending(t *testing.T) {
	r := NewRegistry("USD")
	c, err := r.Lookup(VendorDaraz).Map([]byte(`{"order_id":"O-2","commission":5,"status":"Shipped"}`))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if c.Status != internal.ConversionPending || c.StatusKnown || c.VendorStatus != "Shipped" {
		t.Fatalf("unexpected status mapping: %+v", c)
	}

	c, err = r.Lookup(VendorDaraz).Map([]byte(`{"order_id":"O-3","commission":5,"status":"paid"}`))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if c.Status != internal.ConversionApproved || !c.StatusKnown || c.VendorStatus != "paid" {
		t.Fatalf("unexpected status mapping: %+v", c)
	}
}

func TestOfferIDKeepsFullPrecision(t *testing.T) {
	r := NewRegistry("USD")
	for _, body := range []string{
		`{"order_id":"A","commission":1,"status":"paid","offer_id":9223372036854775807}`,
		`{"order_id":"A","commission":1,"status":"paid","offer_id":"9223372036854775807"}`,
	} {
		c, err := r.Lookup(VendorGeneric).Map([]byte(body))
		if err != nil {
			t.Fatalf("map %s: %v", body, err)
		}
		if c.OfferID != math.MaxInt64 {
			t.Fatalf("expected max int64 offer id, got %d", c.OfferID)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]internal.ConversionStatus{
		"PENDING":   internal.ConversionPending,
		"on hold":   internal.ConversionPending,
		"confirmed": internal.ConversionApproved,
		"Refunded":  internal.ConversionRejected,
	}
	for in, want := range cases {
		got, ok := NormalizeStatus(in)
		if !ok || got != want {
			t.Fatalf("NormalizeStatus(%q) = %q/%v, want %q", in, got, ok, want)
		}
	}
	if _, ok := NormalizeStatus("shipped"); ok {
		t.Fatalf("expected unknown status to be rejected")
	}
}
