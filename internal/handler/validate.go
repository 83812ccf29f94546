package handler

import (
	"github.com/verihire/onboard/internal/domain"
	"github.com/verihire/onboard/internal/session"
	"github.com/verihire/onboard/internal/validate"
)

// Entry save actions validate before the service stores anything, so the
// trust-child-save steps can advance without re-checking.

func validateExperience(rec *session.Record, exp domain.Experience) domain.FieldErrors {
	return validate.ExperienceEntry(exp, rec.Country)
}

func validateEducation(edu domain.Education) domain.FieldErrors {
	return validate.EducationEntry(edu)
}

func validateOrganization(org domain.Organization) domain.FieldErrors {
	return validate.Organization(org)
}
