package domain

// NavigationState is the sequencer-owned view of where a session is in its
// flow. It only changes through sequencer transitions; the rendering layer
// receives copies.
type NavigationState struct {
	// ActiveStepIndex is the current position, 0 <= index < flow.Len().
	ActiveStepIndex int `json:"active_step_index"`

	// Errors holds field-level messages from the last blocked transition
	// plus the reserved SubmitErrorKey slot for side-effect failures.
	// Cleared on successful transitions and on edits of the named fields.
	Errors FieldErrors `json:"errors,omitempty"`

	// Loading is true exactly while one side-effecting call is in flight.
	Loading bool `json:"loading"`

	// Completed becomes true once the terminal step's side effect has
	// succeeded. Terminal: no transition leaves it.
	Completed bool `json:"completed"`
}

// ClearFieldErrors removes error entries for the given field keys,
// returning a copy. Used when an edit patch touches fields that currently
// carry errors.
func (n NavigationState) ClearFieldErrors(keys []string) NavigationState {
	if len(n.Errors) == 0 || len(keys) == 0 {
		return n
	}
	out := n
	out.Errors = n.Errors.Clone()
	for _, k := range keys {
		delete(out.Errors, k)
	}
	if len(out.Errors) == 0 {
		out.Errors = nil
	}
	return out
}
