package domain

import "strings"

// Role identifies which onboarding flow a signup session follows.
type Role string

const (
	RoleTechie        Role = "techie"
	RoleHiringManager Role = "hiring_manager"
	RoleCompany       Role = "company"
	RoleSchool        Role = "school"
)

// ParseRole converts a raw string to a Role, returning an error for
// unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleTechie, RoleHiringManager, RoleCompany, RoleSchool:
		return r, nil
	}
	return "", Errorf(EINVALID, "domain.parse_role", "unknown role: %q", s)
}

// Country is an ISO-3166 alpha-2 locale code. It selects the date format
// (US is month-first, everyone else day-first) and which identity document
// the personal-information step collects.
type Country string

const (
	CountryUS Country = "US"
	CountryIN Country = "IN"
	CountryGB Country = "GB"
	CountryCA Country = "CA"
	CountryAU Country = "AU"
)

// NormalizeCountry upper-cases and trims a raw country code. Unknown codes
// are passed through; downstream document selection treats them as having
// no gated identity document.
func NormalizeCountry(s string) Country {
	return Country(strings.ToUpper(strings.TrimSpace(s)))
}

// MonthFirst reports whether dates entered under this locale read
// month/day/year rather than day/month/year.
func (c Country) MonthFirst() bool {
	return c == CountryUS
}

// Form field keys. These are the canonical names used in update patches,
// field-error maps, and the JSON rendering boundary. Keep them in sync with
// the FormState json tags.
const (
	FieldRole              = "role"
	FieldCountry           = "country"
	FieldFirstName         = "first_name"
	FieldLastName          = "last_name"
	FieldEmail             = "email"
	FieldPhone             = "phone"
	FieldSkipPhone         = "skip_phone"
	FieldDOB               = "dob"
	FieldPassword          = "password"
	FieldConfirmPassword   = "confirm_password"
	FieldAddress           = "address"
	FieldWorkAuthorization = "work_authorization"
	FieldSSN               = "ssn"
	FieldPAN               = "pan_number"
	FieldNINO              = "nino"
	FieldSIN               = "sin"
	FieldTFN               = "tfn"
)

// IdentityDocuments holds the country-gated identity values. At most one
// field is populated at a time; applying a patch that sets one clears the
// others.
type IdentityDocuments struct {
	SSN  string `json:"ssn,omitempty"`        // US social security number
	PAN  string `json:"pan_number,omitempty"` // IN permanent account number
	NINO string `json:"nino,omitempty"`       // GB national insurance number
	SIN  string `json:"sin,omitempty"`        // CA social insurance number
	TFN  string `json:"tfn,omitempty"`        // AU tax file number
}

// ForCountry returns the document value gated by the given country, plus
// the field key it was read from. Unknown countries yield ("", "").
func (d IdentityDocuments) ForCountry(c Country) (value, field string) {
	switch c {
	case CountryUS:
		return d.SSN, FieldSSN
	case CountryIN:
		return d.PAN, FieldPAN
	case CountryGB:
		return d.NINO, FieldNINO
	case CountryCA:
		return d.SIN, FieldSIN
	case CountryAU:
		return d.TFN, FieldTFN
	}
	return "", ""
}

// set assigns one document field and clears the rest.
func (d *IdentityDocuments) set(field, value string) bool {
	switch field {
	case FieldSSN:
		*d = IdentityDocuments{SSN: value}
	case FieldPAN:
		*d = IdentityDocuments{PAN: value}
	case FieldNINO:
		*d = IdentityDocuments{NINO: value}
	case FieldSIN:
		*d = IdentityDocuments{SIN: value}
	case FieldTFN:
		*d = IdentityDocuments{TFN: value}
	default:
		return false
	}
	return true
}

// Experience is one work-experience record. Entries are addressed by slice
// index during the session and by RemoteID once the step's save action has
// persisted them upstream.
type Experience struct {
	RemoteID    string `json:"id,omitempty"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Current     bool   `json:"current,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education is one education record, same addressing rules as Experience.
type Education struct {
	RemoteID     string `json:"id,omitempty"`
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	StartYear    string `json:"start_year"`
	EndYear      string `json:"end_year,omitempty"`
}

// Organization holds company/school details for the non-techie roles.
type Organization struct {
	RemoteID string `json:"id,omitempty"`
	Name     string `json:"name"`
	Website  string `json:"website,omitempty"`
	Size     string `json:"size,omitempty"`
	Industry string `json:"industry,omitempty"`
	Address  string `json:"address,omitempty"`
}

// FormState is the single accumulated record of everything the user has
// entered across one signup session. It is treated as a value: transitions
// clone it, apply changes, and commit the copy.
type FormState struct {
	Role    Role    `json:"role"`
	Country Country `json:"country"`

	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	SkipPhone       bool   `json:"skip_phone,omitempty"`
	DOB             string `json:"dob"`
	Password        string `json:"password,omitempty"`
	ConfirmPassword string `json:"confirm_password,omitempty"`

	Address           string `json:"address,omitempty"`
	WorkAuthorization string `json:"work_authorization,omitempty"`

	Documents IdentityDocuments `json:"documents"`

	Experience []Experience `json:"experience,omitempty"`
	Education  []Education  `json:"education,omitempty"`

	Organization Organization `json:"organization,omitempty"`

	// Captured from network responses during the gate step. AccessToken
	// doubles as the idempotency guard: registration never fires while one
	// is present.
	UserID      string `json:"user_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	AuthError   string `json:"auth_error,omitempty"`

	// Extra keeps patch keys the struct has no field for, so renderers can
	// round-trip custom step data without the engine caring about it.
	Extra map[string]any `json:"extra,omitempty"`
}

// Patch is a shallow set of field updates keyed by the canonical field
// names above.
type Patch map[string]any

// Clone returns a deep copy of the form state.
func (f FormState) Clone() FormState {
	out := f
	if f.Experience != nil {
		out.Experience = append([]Experience(nil), f.Experience...)
	}
	if f.Education != nil {
		out.Education = append([]Education(nil), f.Education...)
	}
	if f.Extra != nil {
		out.Extra = make(map[string]any, len(f.Extra))
		for k, v := range f.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// HasToken reports whether a session token has already been captured.
func (f FormState) HasToken() bool {
	return f.AccessToken != ""
}

// Apply shallow-merges a patch into a copy of the form state and returns
// the copy. Unknown keys land in Extra. Setting any identity-document field
// clears the other documents.
func (f FormState) Apply(patch Patch) FormState {
	out := f.Clone()
	for key, raw := range patch {
		switch key {
		case FieldRole:
			if r, err := ParseRole(asString(raw)); err == nil {
				out.Role = r
			}
		case FieldCountry:
			out.Country = NormalizeCountry(asString(raw))
		case FieldFirstName:
			out.FirstName = asString(raw)
		case FieldLastName:
			out.LastName = asString(raw)
		case FieldEmail:
			out.Email = strings.TrimSpace(asString(raw))
		case FieldPhone:
			out.Phone = asString(raw)
		case FieldSkipPhone:
			out.SkipPhone = asBool(raw)
		case FieldDOB:
			out.DOB = asString(raw)
		case FieldPassword:
			out.Password = asString(raw)
		case FieldConfirmPassword:
			out.ConfirmPassword = asString(raw)
		case FieldAddress:
			out.Address = asString(raw)
		case FieldWorkAuthorization:
			out.WorkAuthorization = asString(raw)
		case FieldSSN, FieldPAN, FieldNINO, FieldSIN, FieldTFN:
			out.Documents.set(key, asString(raw))
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]any)
			}
			out.Extra[key] = raw
		}
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
