package domain

import "fmt"

// OutcomeKind tags the classification of a response.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeValidationFailure
	OutcomeAuthFailure
	OutcomeOtherFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidationFailure:
		return "validation_failure"
	case OutcomeAuthFailure:
		return "auth_failure"
	case OutcomeOtherFailure:
		return "other_failure"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome is the classified result of a request. Callers switch on Kind.
// Redirect is the navigation target the failure calls for, if any:
// the login page after an auth failure, the logout route after other failures.
type Outcome struct {
	Kind       OutcomeKind
	Response   *Response
	Violations []FieldError
	Entity     *EntityError
	Redirect   string
}

// Err converts a failed outcome into the error taxonomy; it is nil on success.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeValidationFailure:
		if o.Entity != nil {
			return o.Entity
		}
		return NewHTTPError(StatusEntityError, o.Response.PayloadMap(), defaultEntityErrorMessage)
	default:
		return NewHTTPError(o.Response.Status, o.Response.PayloadMap(), "")
	}
}
