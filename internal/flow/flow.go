// Package flow builds the ordered step list for a role/country
// combination. The flow is assembled once per session; strategies and
// validators are bound to each step at build time, so navigation dispatches
// on the descriptor instead of inspecting step ids.
package flow

import (
	"github.com/verihire/onboard/internal/domain"
	"github.com/verihire/onboard/internal/validate"
)

// Step ids. Stable across releases: they are used in direct-navigation
// links and as metric labels.
const (
	StepPersonal     = "personal"
	StepExperience   = "experience"
	StepEducation    = "education"
	StepOrganization = "organization"
	StepReview       = "review"
)

// Build assembles the flow for the given role and country. The personal
// step is always first and carries the registration side effect; what
// follows depends on the role.
func Build(role domain.Role, country domain.Country) (domain.Flow, error) {
	personal := domain.StepDescriptor{
		ID:       StepPersonal,
		Label:    "Personal information",
		Strategy: domain.StrategyValidateAndRegister,
		Validate: personalValidator(),
	}

	review := domain.StepDescriptor{
		ID:       StepReview,
		Label:    "Review and finish",
		Strategy: domain.StrategyValidateOnly,
	}

	var steps []domain.StepDescriptor
	switch role {
	case domain.RoleTechie:
		steps = []domain.StepDescriptor{
			personal,
			{
				ID:       StepExperience,
				Label:    "Work experience",
				Strategy: domain.StrategyTrustChildSave,
			},
			{
				ID:       StepEducation,
				Label:    "Education",
				Strategy: domain.StrategyTrustChildSave,
			},
			review,
		}
	case domain.RoleHiringManager, domain.RoleCompany, domain.RoleSchool:
		steps = []domain.StepDescriptor{
			personal,
			{
				ID:       StepOrganization,
				Label:    organizationLabel(role),
				Strategy: domain.StrategyValidateOnly,
				Validate: func(f domain.FormState) domain.FieldErrors {
					return validate.Organization(f.Organization)
				},
			},
			review,
		}
	default:
		return domain.Flow{}, domain.Errorf(domain.EINVALID, "flow.build", "unknown role: %q", role)
	}

	return domain.Flow{
		Role:    role,
		Country: country,
		Steps:   steps,
	}, nil
}

// personalValidator composes the personal-information checks with the
// country-gated identity document check. Personal checks short-circuit and
// run first; the document check only fires once they pass.
func personalValidator() domain.StepValidator {
	return func(f domain.FormState) domain.FieldErrors {
		if errs := validate.PersonalInfo(f); len(errs) > 0 {
			return errs
		}
		return validate.Document(f)
	}
}

func organizationLabel(role domain.Role) string {
	if role == domain.RoleSchool {
		return "School details"
	}
	return "Company details"
}
