package flow

import (
	"testing"

	"github.com/verihire/onboard/internal/domain"
)

func stepIDs(f domain.Flow) []string {
	ids := make([]string, 0, f.Len())
	for _, s := range f.Steps {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestBuild_StepOrder(t *testing.T) {
	tests := []struct {
		role domain.Role
		want []string
	}{
		{domain.RoleTechie, []string{StepPersonal, StepExperience, StepEducation, StepReview}},
		{domain.RoleHiringManager, []string{StepPersonal, StepOrganization, StepReview}},
		{domain.RoleCompany, []string{StepPersonal, StepOrganization, StepReview}},
		{domain.RoleSchool, []string{StepPersonal, StepOrganization, StepReview}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			f, err := Build(tt.role, domain.CountryUS)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}

			got := stepIDs(f)
			if len(got) != len(tt.want) {
				t.Fatalf("steps = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("step %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuild_UnknownRole(t *testing.T) {
	_, err := Build(domain.Role("recruiter"), domain.CountryUS)
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("expected EINVALID, got %v", err)
	}
}

func TestBuild_Strategies(t *testing.T) {
	f, err := Build(domain.RoleTechie, domain.CountryIN)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if s := f.Step(0).Strategy; s != domain.StrategyValidateAndRegister {
		t.Errorf("personal strategy = %q", s)
	}
	if s := f.Step(1).Strategy; s != domain.StrategyTrustChildSave {
		t.Errorf("experience strategy = %q", s)
	}
	if s := f.Step(f.Len() - 1).Strategy; s != domain.StrategyValidateOnly {
		t.Errorf("review strategy = %q", s)
	}
}

func TestPersonalValidator_IncludesDocumentCheck(t *testing.T) {
	f, err := Build(domain.RoleTechie, domain.CountryUS)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	validate := f.Step(0).Validate

	form := domain.FormState{
		Country:         domain.CountryUS,
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane@example.com",
		Phone:           "555-0100",
		Password:        "Sup3r-Secret",
		ConfirmPassword: "Sup3r-Secret",
	}

	errs := validate(form)
	if errs[domain.FieldSSN] == "" {
		t.Fatalf("expected ssn error for US form without document, got %v", errs)
	}

	// Personal checks run first; a missing email masks the document error.
	incomplete := form
	incomplete.Email = ""
	errs = validate(incomplete)
	if _, ok := errs[domain.FieldEmail]; !ok {
		t.Errorf("expected email error first, got %v", errs)
	}
	if _, ok := errs[domain.FieldSSN]; ok {
		t.Errorf("document error should not surface before personal checks pass: %v", errs)
	}

	form.Documents.SSN = "123-45-6789"
	if errs := validate(form); len(errs) != 0 {
		t.Errorf("complete form failed validation: %v", errs)
	}
}

func TestPersonalValidator_NoDocumentForUnknownCountry(t *testing.T) {
	f, err := Build(domain.RoleHiringManager, domain.NormalizeCountry("de"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	validate := f.Step(0).Validate

	form := domain.FormState{
		Country:         domain.NormalizeCountry("de"),
		FirstName:       "Hans",
		LastName:        "Meier",
		Email:           "hans@example.com",
		Phone:           "555-0100",
		Password:        "Sup3r-Secret",
		ConfirmPassword: "Sup3r-Secret",
	}

	if errs := validate(form); len(errs) != 0 {
		t.Errorf("expected pass for locale without gated document, got %v", errs)
	}
}
