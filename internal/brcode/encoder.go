// Package brcode builds EMV Merchant Presented QR payloads ("BRCode") for PIX.
package brcode

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	idPayloadFormat     = "00"
	idPointOfInitiation = "01"
	idMerchantAccount   = "26"
	idMerchantCategory  = "52"
	idCurrency          = "53"
	idAmount            = "54"
	idCountryCode       = "58"
	idMerchantName      = "59"
	idMerchantCity      = "60"
	idAdditionalData    = "62"
	idCRC               = "63"

	idAccountGUI = "00"
	idAccountKey = "01"
	idReference  = "05"

	payloadFormat   = "01"
	initStatic      = "11"
	initDynamic     = "12"
	pixGUI          = "br.gov.bcb.pix"
	categoryCode    = "0000"
	currencyBRL     = "986"
	countryCode     = "BR"
	emptyReference  = "***"
	crcHeader       = idCRC + "04"
	maxKeyLen       = 77
	maxNameLen      = 25
	maxCityLen      = 15
	maxReferenceLen = 25
	maxAmountLen    = 13
)

var (
	ErrMissingKey      = errors.New("brcode: merchant key is required")
	ErrInvalidKey      = errors.New("brcode: merchant key must be printable ASCII of at most 77 characters")
	ErrMissingName     = errors.New("brcode: merchant name is required")
	ErrMissingCity     = errors.New("brcode: merchant city is required")
	ErrNegativeAmount  = errors.New("brcode: amount must not be negative")
	ErrAmountPrecision = errors.New("brcode: amount has more than two decimal places")
	ErrAmountTooLarge  = errors.New("brcode: amount exceeds field length")
)

// Merchant is the static receiver configuration embedded in every payload.
type Merchant struct {
	Key  string
	Name string
	City string
}

// Encoder produces payloads for one merchant. It is immutable and safe for
// concurrent use.
type Encoder struct {
	merchantAccount string
	name            string
	city            string
}

// NewEncoder validates and normalises the merchant configuration.
func NewEncoder(m Merchant) (*Encoder, error) {
	key := strings.TrimSpace(m.Key)
	if key == "" {
		return nil, ErrMissingKey
	}
	if len(key) > maxKeyLen || !printableASCII(key) {
		return nil, ErrInvalidKey
	}
	name := normalize(m.Name, maxNameLen)
	if name == "" {
		return nil, ErrMissingName
	}
	city := normalize(m.City, maxCityLen)
	if city == "" {
		return nil, ErrMissingCity
	}
	return &Encoder{
		merchantAccount: tlv(idAccountGUI, pixGUI) + tlv(idAccountKey, key),
		name:            name,
		city:            city,
	}, nil
}

// Encode builds the payload for amount and reference. A zero amount yields a
// reusable static code without an amount field. The reference is reduced to
// ASCII alphanumerics and truncated to 25 characters.
func (e *Encoder) Encode(amount decimal.Decimal, reference string) (string, error) {
	if amount.IsNegative() {
		return "", ErrNegativeAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return "", ErrAmountPrecision
	}

	var b strings.Builder
	b.WriteString(tlv(idPayloadFormat, payloadFormat))
	if amount.IsPositive() {
		b.WriteString(tlv(idPointOfInitiation, initDynamic))
	} else {
		b.WriteString(tlv(idPointOfInitiation, initStatic))
	}
	b.WriteString(tlv(idMerchantAccount, e.merchantAccount))
	b.WriteString(tlv(idMerchantCategory, categoryCode))
	b.WriteString(tlv(idCurrency, currencyBRL))
	if amount.IsPositive() {
		formatted := amount.StringFixed(2)
		if len(formatted) > maxAmountLen {
			return "", ErrAmountTooLarge
		}
		b.WriteString(tlv(idAmount, formatted))
	}
	b.WriteString(tlv(idCountryCode, countryCode))
	b.WriteString(tlv(idMerchantName, e.name))
	b.WriteString(tlv(idMerchantCity, e.city))
	b.WriteString(tlv(idAdditionalData, tlv(idReference, SanitizeReference(reference))))
	b.WriteString(crcHeader)

	body := b.String()
	return body + Checksum(body), nil
}

// SanitizeReference returns the reference as it will be embedded.
func SanitizeReference(reference string) string {
	var b strings.Builder
	for _, r := range reference {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
		if b.Len() == maxReferenceLen {
			break
		}
	}
	if b.Len() == 0 {
		return emptyReference
	}
	return b.String()
}

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// normalize strips diacritics, drops non-printable or non-ASCII runes,
// collapses whitespace and truncates to limit characters.
func normalize(s string, limit int) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	var b strings.Builder
	for _, r := range stripped {
		if r >= 0x20 && r < 0x7F {
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if len(out) > limit {
		out = strings.TrimSpace(out[:limit])
	}
	return out
}

func printableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] >= 0x7F {
			return false
		}
	}
	return true
}
