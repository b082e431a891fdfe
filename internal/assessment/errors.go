package assessment

import (
	"fmt"
	"strings"
)

// InvalidSelectionError reports a candidate that is not in the option set
// legal for the current tier. The context is never modified when it is
// returned.
type InvalidSelectionError struct {
	Tier      Tier
	Candidate string
	Legal     []string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("%s: selection %q not recognized (legal: %s)", e.Tier, e.Candidate, strings.Join(e.Legal, ", "))
}

// UserMessage is the text shown to the person answering the interview.
func (e *InvalidSelectionError) UserMessage() string {
	return "selection not recognized, please choose again"
}

// PreconditionError reports an operation invoked before an upstream field was
// populated or on the wrong tier. It is a sequencing bug in the caller.
type PreconditionError struct {
	Tier  Tier
	Field string
	Op    string
}

func (e *PreconditionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s not allowed at this tier", e.Tier, e.Op)
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: required field %s is not set", e.Tier, e.Field)
	}
	return fmt.Sprintf("%s: %s requires %s", e.Tier, e.Op, e.Field)
}
