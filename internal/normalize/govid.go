package normalize

import (
	"strings"

	"github.com/verihire/onboard/internal/domain"
)

// govIDTail is how many trailing characters of an identity document go on
// the registration wire. Shorter values are sent whole.
const govIDTail = 4

// Alternate patch keys probed when the country's primary document field is
// empty. Renderers occasionally post under legacy names; the engine accepts
// them rather than losing the value.
var govIDFallbacks = map[domain.Country][]string{
	domain.CountryUS: {"social_security_number", "ssn_last4"},
	domain.CountryIN: {"pan", "pan_no"},
	domain.CountryGB: {"national_insurance_number"},
	domain.CountryCA: {"social_insurance_number"},
	domain.CountryAU: {"tax_file_number"},
}

// Generic keys tried last, for any country.
var govIDGenericKeys = []string{"gov_id", "government_id"}

// GovID extracts the wire form of the locale-selected identity document:
// the last 4 characters, alphanumeric for letter-bearing documents (PAN,
// NINO) and digits-only for numeric ones (SSN, SIN, TFN). Returns "" when
// no candidate field holds a value; the caller logs that as a data-quality
// issue, not a failure.
func GovID(form domain.FormState) string {
	value, _ := form.Documents.ForCountry(form.Country)
	if value == "" {
		value = fallbackGovID(form)
	}
	if value == "" {
		return ""
	}

	cleaned := cleanGovID(value, form.Country)
	if len(cleaned) <= govIDTail {
		return cleaned
	}
	return cleaned[len(cleaned)-govIDTail:]
}

func fallbackGovID(form domain.FormState) string {
	if form.Extra == nil {
		return ""
	}
	for _, key := range govIDFallbacks[form.Country] {
		if s, ok := form.Extra[key].(string); ok && s != "" {
			return s
		}
	}
	for _, key := range govIDGenericKeys {
		if s, ok := form.Extra[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// cleanGovID strips separators. Numeric documents keep digits only;
// alphanumeric documents keep letters and digits, upper-cased.
func cleanGovID(value string, country domain.Country) string {
	alphanumeric := country == domain.CountryIN || country == domain.CountryGB

	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case alphanumeric && r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case alphanumeric && r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// countryAlpha3 maps supported alpha-2 locale codes to the alpha-3 form
// used on the registration wire.
var countryAlpha3 = map[domain.Country]string{
	domain.CountryUS: "USA",
	domain.CountryIN: "IND",
	domain.CountryGB: "GBR",
	domain.CountryCA: "CAN",
	domain.CountryAU: "AUS",
}

// CountryAlpha3 converts an alpha-2 locale code to its alpha-3 wire form.
// Unknown codes pass through unchanged so the backend sees what the user
// picked.
func CountryAlpha3(c domain.Country) string {
	if a3, ok := countryAlpha3[c]; ok {
		return a3
	}
	return string(c)
}
