package validate

import (
	"errors"
	"testing"

	"github.com/verihire/onboard/internal/domain"
)

func validPersonalForm() domain.FormState {
	return domain.FormState{
		Role:            domain.RoleTechie,
		Country:         domain.CountryUS,
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane@example.com",
		Phone:           "503-555-1234",
		Password:        "Longenough1!",
		ConfirmPassword: "Longenough1!",
	}
}

func TestPersonalInfo_Pass(t *testing.T) {
	if errs := PersonalInfo(validPersonalForm()); errs != nil {
		t.Fatalf("expected pass, got %v", errs)
	}
}

func TestPersonalInfo_ShortCircuits(t *testing.T) {
	// Everything is wrong; only the first rule in the fixed order should
	// be reported.
	form := domain.FormState{
		FirstName: "J4ne",
		LastName:  "",
		Email:     "not-an-email",
		Password:  "weak",
	}

	errs := PersonalInfo(form)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", errs)
	}
	if _, ok := errs[domain.FieldFirstName]; !ok {
		t.Errorf("expected first_name error first, got %v", errs)
	}
}

func TestPersonalInfo_Order(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*domain.FormState)
		wantField string
	}{
		{"first name missing", func(f *domain.FormState) { f.FirstName = "  " }, domain.FieldFirstName},
		{"first name non-letter", func(f *domain.FormState) { f.FirstName = "Jane2" }, domain.FieldFirstName},
		{"last name missing", func(f *domain.FormState) { f.LastName = "" }, domain.FieldLastName},
		{"last name non-letter", func(f *domain.FormState) { f.LastName = "Do-e" }, domain.FieldLastName},
		{"email missing", func(f *domain.FormState) { f.Email = "" }, domain.FieldEmail},
		{"email malformed", func(f *domain.FormState) { f.Email = "jane@@example" }, domain.FieldEmail},
		{"phone missing", func(f *domain.FormState) { f.Phone = "" }, domain.FieldPhone},
		{"password missing", func(f *domain.FormState) { f.Password = ""; f.ConfirmPassword = "" }, domain.FieldPassword},
		{"password weak", func(f *domain.FormState) { f.Password = "short1!" }, domain.FieldPassword},
		{"confirmation mismatch", func(f *domain.FormState) { f.ConfirmPassword = "Different1!" }, domain.FieldConfirmPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validPersonalForm()
			tt.mutate(&form)

			errs := PersonalInfo(form)
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %v", errs)
			}
			if _, ok := errs[tt.wantField]; !ok {
				t.Errorf("expected error on %q, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestPersonalInfo_SkipPhone(t *testing.T) {
	form := validPersonalForm()
	form.Phone = ""
	form.SkipPhone = true

	if errs := PersonalInfo(form); errs != nil {
		t.Fatalf("expected pass with skip_phone, got %v", errs)
	}
}

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		wantErr  error
	}{
		{"short1!", ErrPasswordTooShort},
		{"longenough1", ErrPasswordNoUpper},
		{"LONGENOUGH1!", ErrPasswordNoLower},
		{"Longenough!!", ErrPasswordNoDigit},
		{"Longenough11", ErrPasswordNoSymbol},
		{"Longenough1!", nil},
		{"Sup3r-Secret", nil},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := CheckPasswordStrength(tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckPasswordStrength(%q) = %v, want %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestExperienceEntry_AggregatesAll(t *testing.T) {
	errs := ExperienceEntry(domain.Experience{}, domain.CountryUS)
	for _, field := range []string{"title", "company", "start_date", "end_date"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected %q violation, got %v", field, errs)
		}
	}
}

func TestExperienceEntry_CurrentRoleNeedsNoEnd(t *testing.T) {
	exp := domain.Experience{
		Title:     "Engineer",
		Company:   "Acme",
		StartDate: "02/13/2020",
		Current:   true,
	}
	if errs := ExperienceEntry(exp, domain.CountryUS); errs != nil {
		t.Fatalf("expected pass, got %v", errs)
	}
}

func TestExperienceEntry_BadDate(t *testing.T) {
	exp := domain.Experience{
		Title:     "Engineer",
		Company:   "Acme",
		StartDate: "14/13/2020",
		Current:   true,
	}
	errs := ExperienceEntry(exp, domain.CountryUS)
	if _, ok := errs["start_date"]; !ok {
		t.Errorf("expected start_date violation, got %v", errs)
	}
}

func TestEducationEntry(t *testing.T) {
	errs := EducationEntry(domain.Education{StartYear: "1850"})
	for _, field := range []string{"school", "degree", "start_year"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected %q violation, got %v", field, errs)
		}
	}

	ok := domain.Education{School: "MIT", Degree: "BSc", StartYear: "2015", EndYear: "2019"}
	if errs := EducationEntry(ok); errs != nil {
		t.Fatalf("expected pass, got %v", errs)
	}
}

func TestOrganization(t *testing.T) {
	errs := Organization(domain.Organization{Website: "not a url"})
	if _, ok := errs["name"]; !ok {
		t.Errorf("expected name violation, got %v", errs)
	}
	if _, ok := errs["website"]; !ok {
		t.Errorf("expected website violation, got %v", errs)
	}

	ok := domain.Organization{Name: "Acme", Website: "https://acme.example.com"}
	if errs := Organization(ok); errs != nil {
		t.Fatalf("expected pass, got %v", errs)
	}
}

func TestDocument(t *testing.T) {
	missing := domain.FormState{Country: domain.CountryUS}
	errs := Document(missing)
	if _, ok := errs[domain.FieldSSN]; !ok {
		t.Errorf("expected ssn violation, got %v", errs)
	}

	present := domain.FormState{
		Country:   domain.CountryIN,
		Documents: domain.IdentityDocuments{PAN: "ABCDE1234F"},
	}
	if errs := Document(present); errs != nil {
		t.Fatalf("expected pass, got %v", errs)
	}

	// Locale without a gated document.
	other := domain.FormState{Country: domain.Country("DE")}
	if errs := Document(other); errs != nil {
		t.Fatalf("expected pass for ungated locale, got %v", errs)
	}
}
