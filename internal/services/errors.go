package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidState     = errors.New("invalid state")
	ErrNotFound         = errors.New("not found")
	ErrProcessorFailure = errors.New("processor failure")
	ErrConfiguration    = errors.New("configuration error")
)

// Kind names the taxonomy bucket an error belongs to.
type Kind string

const (
	KindInvalidArgument  Kind = "invalid_argument"
	KindInvalidState     Kind = "invalid_state"
	KindNotFound         Kind = "not_found"
	KindProcessorFailure Kind = "processor_failure"
	KindConfiguration    Kind = "configuration"
	KindUnknown          Kind = "unknown"
)

// ServiceError carries the structured context attached by Wrap.
type ServiceError struct {
	Marker    error
	Component string
	Operation string
	Message   string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Component, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *ServiceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Cause}
}

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrProcessorFailure
	}
	return &ServiceError{
		Marker:    marker,
		Component: strings.TrimSpace(component),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// InvalidArgument is shorthand for Wrap(ErrInvalidArgument, ...) without a cause.
func InvalidArgument(component, operation, message string) error {
	return Wrap(ErrInvalidArgument, component, operation, message, nil)
}

// InvalidState is shorthand for Wrap(ErrInvalidState, ...) without a cause.
func InvalidState(component, operation, message string) error {
	return Wrap(ErrInvalidState, component, operation, message, nil)
}

// NotFound is shorthand for Wrap(ErrNotFound, ...) without a cause.
func NotFound(component, operation, message string) error {
	return Wrap(ErrNotFound, component, operation, message, nil)
}

// ErrorDetails is a flattened view of an error for logs and step records.
type ErrorDetails struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Cause     error
}

// Details extracts the structured context of err. Errors not produced by Wrap
// are reported with KindUnknown and their own message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: KindOf(err), Message: err.Error()}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		details.Component = svcErr.Component
		details.Operation = svcErr.Operation
		details.Cause = svcErr.Cause
		if svcErr.Message != "" {
			details.Message = svcErr.Message
		}
		if svcErr.Cause != nil && svcErr.Message == "" {
			details.Message = svcErr.Cause.Error()
		}
	}
	return details
}

// KindOf maps err onto the error taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrProcessorFailure):
		return KindProcessorFailure
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

// IsStructural reports whether err is one of the synchronous caller errors
// that must never be recorded on a step.
func IsStructural(err error) bool {
	switch KindOf(err) {
	case KindInvalidArgument, KindInvalidState, KindNotFound:
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component != "" {
		parts = append(parts, component)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// Summary joins the messages along err's wrap chain without markers or
// component prefixes, e.g. "face_swapper failed: cuda out of memory".
func Summary(err error) string {
	if err == nil {
		return ""
	}
	var parts []string
	current := err
	for current != nil {
		svcErr, ok := current.(*ServiceError)
		if !ok {
			parts = append(parts, strings.TrimSpace(current.Error()))
			break
		}
		if svcErr.Message != "" {
			parts = append(parts, svcErr.Message)
		}
		current = svcErr.Cause
	}
	if len(parts) == 0 {
		return err.Error()
	}
	return strings.Join(parts, ": ")
}
