// Package validate holds the per-step validators the sequencer runs before
// a forward transition. Validators are pure: they read the accumulated form
// state and return a field→message map (nil means pass), never an error and
// never a panic.
package validate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/verihire/onboard/internal/domain"
	"github.com/verihire/onboard/internal/normalize"
)

// Shared validator instance. Only tag-level Var checks are used, so one
// instance is safe for concurrent sessions.
var v = validator.New(validator.WithRequiredStructEnabled())

// PersonalInfo validates the personal-information step. Checks run in a
// fixed order and stop at the first failure, so the user is shown one
// problem at a time:
//
//	first name, last name, email, phone, password strength, confirmation
func PersonalInfo(form domain.FormState) domain.FieldErrors {
	if msg := checkName(form.FirstName, "First name"); msg != "" {
		return domain.FieldErrors{domain.FieldFirstName: msg}
	}
	if msg := checkName(form.LastName, "Last name"); msg != "" {
		return domain.FieldErrors{domain.FieldLastName: msg}
	}

	if form.Email == "" {
		return domain.FieldErrors{domain.FieldEmail: "Email is required"}
	}
	if err := v.Var(form.Email, "email"); err != nil {
		return domain.FieldErrors{domain.FieldEmail: "Enter a valid email address"}
	}

	if !form.SkipPhone && strings.TrimSpace(form.Phone) == "" {
		return domain.FieldErrors{domain.FieldPhone: "Phone number is required"}
	}

	if form.Password == "" {
		return domain.FieldErrors{domain.FieldPassword: "Password is required"}
	}
	if err := CheckPasswordStrength(form.Password); err != nil {
		return domain.FieldErrors{domain.FieldPassword: capitalize(err.Error())}
	}

	if form.Password != form.ConfirmPassword {
		return domain.FieldErrors{domain.FieldConfirmPassword: "Passwords do not match"}
	}

	return nil
}

// checkName enforces presence and letters-only names. Returns "" on pass.
func checkName(name, label string) string {
	if strings.TrimSpace(name) == "" {
		return label + " is required"
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return label + " may only contain letters"
		}
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ExperienceEntry validates one work-experience record on its save action.
// Unlike the personal step this aggregates every violation at once, since
// the save dialog shows all fields together.
func ExperienceEntry(exp domain.Experience, country domain.Country) domain.FieldErrors {
	errs := domain.FieldErrors{}

	if strings.TrimSpace(exp.Title) == "" {
		errs["title"] = "Job title is required"
	}
	if strings.TrimSpace(exp.Company) == "" {
		errs["company"] = "Company is required"
	}
	if exp.StartDate == "" {
		errs["start_date"] = "Start date is required"
	} else if normalize.Date(exp.StartDate, country) == "" {
		errs["start_date"] = "Enter a valid start date"
	}
	if !exp.Current {
		if exp.EndDate == "" {
			errs["end_date"] = "End date is required unless this is your current role"
		} else if normalize.Date(exp.EndDate, country) == "" {
			errs["end_date"] = "Enter a valid end date"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// EducationEntry validates one education record on its save action,
// aggregating all violations.
func EducationEntry(edu domain.Education) domain.FieldErrors {
	errs := domain.FieldErrors{}

	if strings.TrimSpace(edu.School) == "" {
		errs["school"] = "School is required"
	}
	if strings.TrimSpace(edu.Degree) == "" {
		errs["degree"] = "Degree is required"
	}
	if msg := checkYear(edu.StartYear, true); msg != "" {
		errs["start_year"] = msg
	}
	if msg := checkYear(edu.EndYear, false); msg != "" {
		errs["end_year"] = msg
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func checkYear(year string, required bool) string {
	if year == "" {
		if required {
			return "Year is required"
		}
		return ""
	}
	n, err := strconv.Atoi(year)
	if err != nil || n < 1900 || n > 2100 {
		return fmt.Sprintf("Enter a year between %d and %d", 1900, 2100)
	}
	return ""
}

// Organization validates company/school details on their save action,
// aggregating all violations.
func Organization(org domain.Organization) domain.FieldErrors {
	errs := domain.FieldErrors{}

	if strings.TrimSpace(org.Name) == "" {
		errs["name"] = "Name is required"
	}
	if org.Website != "" {
		if err := v.Var(org.Website, "url"); err != nil {
			errs["website"] = "Enter a valid URL"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Document validates the country-gated identity document for the active
// locale. Called by the personal step's flow variant for countries that
// require a document before registration.
func Document(form domain.FormState) domain.FieldErrors {
	value, field := form.Documents.ForCountry(form.Country)
	if field == "" {
		// No gated document for this locale.
		return nil
	}
	if strings.TrimSpace(value) == "" {
		return domain.FieldErrors{field: "Identity document is required"}
	}
	return nil
}
