package normalize

import (
	"testing"

	"github.com/verihire/onboard/internal/domain"
)

func TestGovID(t *testing.T) {
	tests := []struct {
		name string
		form domain.FormState
		want string
	}{
		{
			name: "IN PAN keeps alphanumeric tail",
			form: domain.FormState{
				Country:   domain.CountryIN,
				Documents: domain.IdentityDocuments{PAN: "ABCDE1234F"},
			},
			want: "234F",
		},
		{
			name: "US SSN strips separators",
			form: domain.FormState{
				Country:   domain.CountryUS,
				Documents: domain.IdentityDocuments{SSN: "123-45-6789"},
			},
			want: "6789",
		},
		{
			name: "shorter than tail uses full value",
			form: domain.FormState{
				Country:   domain.CountryIN,
				Documents: domain.IdentityDocuments{PAN: "AB"},
			},
			want: "AB",
		},
		{
			name: "PAN lower case is upper cased",
			form: domain.FormState{
				Country:   domain.CountryIN,
				Documents: domain.IdentityDocuments{PAN: "abcde1234f"},
			},
			want: "234F",
		},
		{
			name: "US digits only after stripping",
			form: domain.FormState{
				Country:   domain.CountryUS,
				Documents: domain.IdentityDocuments{SSN: "123 45 6789"},
			},
			want: "6789",
		},
		{
			name: "GB NINO",
			form: domain.FormState{
				Country:   domain.CountryGB,
				Documents: domain.IdentityDocuments{NINO: "QQ 12 34 56 C"},
			},
			want: "456C",
		},
		{
			name: "fallback key when primary empty",
			form: domain.FormState{
				Country: domain.CountryUS,
				Extra:   map[string]any{"social_security_number": "123-45-6789"},
			},
			want: "6789",
		},
		{
			name: "generic fallback key",
			form: domain.FormState{
				Country: domain.CountryIN,
				Extra:   map[string]any{"gov_id": "XYZAB9876K"},
			},
			want: "876K",
		},
		{
			name: "absent everywhere gives empty",
			form: domain.FormState{Country: domain.CountryUS},
			want: "",
		},
		{
			name: "unknown country gives empty",
			form: domain.FormState{
				Country:   domain.Country("FR"),
				Documents: domain.IdentityDocuments{SSN: "123-45-6789"},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GovID(tt.form); got != tt.want {
				t.Errorf("GovID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCountryAlpha3(t *testing.T) {
	tests := []struct {
		in   domain.Country
		want string
	}{
		{domain.CountryUS, "USA"},
		{domain.CountryIN, "IND"},
		{domain.CountryGB, "GBR"},
		{domain.CountryCA, "CAN"},
		{domain.CountryAU, "AUS"},
		{domain.Country("DE"), "DE"},
	}

	for _, tt := range tests {
		if got := CountryAlpha3(tt.in); got != tt.want {
			t.Errorf("CountryAlpha3(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
