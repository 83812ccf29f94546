package domain

// AdvanceStrategy selects what the sequencer does when the user advances
// out of a step. The strategy is bound when the flow is built, so advancing
// dispatches on a tag instead of matching step ids at runtime.
type AdvanceStrategy string

const (
	// StrategyValidateOnly runs the step's validator and, on success,
	// moves to the next step. No side effects.
	StrategyValidateOnly AdvanceStrategy = "validate_only"

	// StrategyValidateAndRegister runs the validator and then the
	// registration side effect before committing the move. Used for the
	// personal-information gate step.
	StrategyValidateAndRegister AdvanceStrategy = "validate_and_register"

	// StrategyTrustChildSave advances unconditionally. The step's own save
	// action has already validated and persisted its entries, so the
	// transition trusts that invariant rather than re-checking it.
	StrategyTrustChildSave AdvanceStrategy = "trust_child_save"
)

// StepValidator checks the accumulated form state for one step. A nil or
// empty result means the step passes. Validators never panic and never
// perform I/O.
type StepValidator func(FormState) FieldErrors

// StepDescriptor describes one screen of the wizard. Descriptors are
// immutable once the flow is built; a step's position in the flow slice is
// its index.
type StepDescriptor struct {
	// ID is the stable identifier used for direct navigation.
	ID string

	// Label is the display name shown by the rendering layer.
	Label string

	// Strategy selects the advance behavior for this step.
	Strategy AdvanceStrategy

	// Validate gates forward transitions for validating strategies.
	// May be nil, in which case the step always passes.
	Validate StepValidator
}

// Flow is the ordered step list for one role/country combination.
type Flow struct {
	Role    Role
	Country Country
	Steps   []StepDescriptor
}

// Len returns the number of steps.
func (f Flow) Len() int { return len(f.Steps) }

// IndexOf returns the position of the named step, or -1 when absent.
func (f Flow) IndexOf(stepID string) int {
	for i, s := range f.Steps {
		if s.ID == stepID {
			return i
		}
	}
	return -1
}

// Step returns the descriptor at index i. Callers must keep i in bounds;
// the sequencer's navigation invariants guarantee that.
func (f Flow) Step(i int) StepDescriptor { return f.Steps[i] }
