// Package postback turns vendor-specific conversion payloads into one typed
// shape. Each affiliate network gets a Mapper; unknown vendors fall back to
// the generic field layout.
package postback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MagnunAVF/affiliate-tracker/internal"
)

const maxOrderIDLen = 191

const maxVendorStatusLen = 64

// Conversion is a validated postback. ClickID is the raw tracking value and
// may be empty; OfferID is zero when the payload does not carry one.
// VendorStatus is the status as the network sent it. When StatusKnown is
// false it matched no alias and Status defaults to pending.
type Conversion struct {
	ClickID      string
	OrderID      string
	Commission   float64
	Currency     string
	Status       internal.ConversionStatus
	VendorStatus string
	StatusKnown  bool
	OfferID      int64
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid postback field %q: %s", e.Field, e.Reason)
}

type Mapper interface {
	Map(body []byte) (Conversion, error)
}

// Fields describes where a vendor puts each value. Every entry lists
// accepted keys in lookup order.
type Fields struct {
	ClickID         []string
	OrderID         []string
	Commission      []string
	Currency        []string
	Status          []string
	OfferID         []string
	DefaultCurrency string
}

func (f Fields) Map(body []byte) (Conversion, error) {
	payload, err := decodeObject(body)
	if err != nil {
		return Conversion{}, err
	}

	var c Conversion

	c.ClickID, err = stringField(payload, f.ClickID)
	if err != nil {
		return Conversion{}, err
	}

	c.OrderID, err = stringField(payload, f.OrderID)
	if err != nil {
		return Conversion{}, err
	}
	if c.OrderID == "" {
		return Conversion{}, &ValidationError{Field: first(f.OrderID), Reason: "required"}
	}
	if len(c.OrderID) > maxOrderIDLen {
		return Conversion{}, &ValidationError{Field: first(f.OrderID), Reason: "too long"}
	}

	commission, ok, err := numberField(payload, f.Commission)
	if err != nil {
		return Conversion{}, err
	}
	if !ok {
		return Conversion{}, &ValidationError{Field: first(f.Commission), Reason: "required"}
	}
	if commission < 0 || math.IsInf(commission, 0) || math.IsNaN(commission) {
		return Conversion{}, &ValidationError{Field: first(f.Commission), Reason: "must be a non-negative number"}
	}
	c.Commission = commission

	rawStatus, err := stringField(payload, f.Status)
	if err != nil {
		return Conversion{}, err
	}
	if rawStatus == "" {
		return Conversion{}, &ValidationError{Field: first(f.Status), Reason: "required"}
	}
	if len(rawStatus) > maxVendorStatusLen {
		return Conversion{}, &ValidationError{Field: first(f.Status), Reason: "too long"}
	}
	c.VendorStatus = rawStatus
	c.Status, c.StatusKnown = NormalizeStatus(rawStatus)
	if !c.StatusKnown {
		c.Status = internal.ConversionPending
	}

	currency, err := stringField(payload, f.Currency)
	if err != nil {
		return Conversion{}, err
	}
	if currency == "" {
		currency = f.DefaultCurrency
	}
	currency = strings.ToUpper(currency)
	if len(currency) != 3 {
		return Conversion{}, &ValidationError{Field: first(f.Currency), Reason: "must be a 3-letter code"}
	}
	c.Currency = currency

	c.OfferID, err = idField(payload, f.OfferID)
	if err != nil {
		return Conversion{}, err
	}

	return c, nil
}

func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, &ValidationError{Field: "body", Reason: "must be a JSON object"}
	}
	if payload == nil {
		return nil, &ValidationError{Field: "body", Reason: "must be a JSON object"}
	}
	return payload, nil
}

// stringField accepts strings and numbers (order ids and sub ids are often
// sent as integers).
func stringField(payload map[string]any, keys []string) (string, error) {
	for _, k := range keys {
		v, ok := payload[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t), nil
		case json.Number:
			return t.String(), nil
		default:
			return "", &ValidationError{Field: k, Reason: "must be a string"}
		}
	}
	return "", nil
}

// numberField accepts JSON numbers and numeric strings. Empty strings count
// as absent.
func numberField(payload map[string]any, keys []string) (float64, bool, error) {
	for _, k := range keys {
		v, ok := payload[k]
		if !ok || v == nil {
			continue
		}
		var raw string
		switch t := v.(type) {
		case json.Number:
			raw = t.String()
		case string:
			raw = strings.TrimSpace(t)
			if raw == "" {
				continue
			}
		default:
			return 0, false, &ValidationError{Field: k, Reason: "must be numeric"}
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false, &ValidationError{Field: k, Reason: "must be numeric"}
		}
		return f, true, nil
	}
	return 0, false, nil
}

// idField reads a positive integer id from a JSON number or numeric string.
// It parses the literal text so ids beyond float64 precision stay exact.
func idField(payload map[string]any, keys []string) (int64, error) {
	for _, k := range keys {
		v, ok := payload[k]
		if !ok || v == nil {
			continue
		}
		var raw string
		switch t := v.(type) {
		case json.Number:
			raw = t.String()
		case string:
			raw = strings.TrimSpace(t)
			if raw == "" {
				continue
			}
		default:
			return 0, &ValidationError{Field: k, Reason: "must be a positive integer"}
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, &ValidationError{Field: k, Reason: "must be a positive integer"}
		}
		return id, nil
	}
	return 0, nil
}

func first(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
