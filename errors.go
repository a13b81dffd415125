package loom

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeUnresolvedDependency
	ErrCodeUnresolvedGenericParameter
	ErrCodeCycleDetected
	ErrCodeInvalidProvider
	ErrCodeProviderInvocation
	ErrCodeResourceAcquisition
	ErrCodeResourceRelease
	ErrCodeContextConsumed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:                    "UNKNOWN",
	ErrCodeUnresolvedDependency:       "UNRESOLVED_DEPENDENCY",
	ErrCodeUnresolvedGenericParameter: "UNRESOLVED_GENERIC_PARAMETER",
	ErrCodeCycleDetected:              "CYCLE_DETECTED",
	ErrCodeInvalidProvider:            "INVALID_PROVIDER",
	ErrCodeProviderInvocation:         "PROVIDER_INVOCATION",
	ErrCodeResourceAcquisition:        "RESOURCE_ACQUISITION",
	ErrCodeResourceRelease:            "RESOURCE_RELEASE",
	ErrCodeContextConsumed:            "CONTEXT_CONSUMED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Error is the structured error type returned by graph construction and
// resolution. Code identifies the failure class, Provider the diagnostic
// name of the provider involved, and Param the parameter that triggered
// the failure, when one exists.
type Error struct {
	Code     ErrorCode
	Message  string
	Provider string
	Param    string
	Cause    error
	Chain    []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Provider != "" {
		b.WriteString(fmt.Sprintf(" provider=%q:", e.Provider))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

func (e *Error) WithParam(param string) *Error {
	e.Param = param
	return e
}

func (e *Error) WithChain(chain []string) *Error {
	e.Chain = chain
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func errUnresolvedDependency(param, owner string) *Error {
	return newError(
		ErrCodeUnresolvedDependency,
		fmt.Sprintf("dependency %q of provider %q cannot be resolved", param, owner),
		nil,
	).WithProvider(owner).WithParam(param)
}

func errUnresolvedGenericParameter(placeholder, param, parent string) *Error {
	return newError(
		ErrCodeUnresolvedGenericParameter,
		fmt.Sprintf("unknown generic argument %q: provide a concrete type for parameter %q of %q", placeholder, param, parent),
		nil,
	).WithProvider(parent).WithParam(param)
}

func errCycleDetected(chain []string) *Error {
	return newError(
		ErrCodeCycleDetected,
		fmt.Sprintf("circular dependency detected: %s", strings.Join(chain, " -> ")),
		nil,
	).WithChain(chain)
}

func errInvalidProvider(name, reason string) *Error {
	return newError(
		ErrCodeInvalidProvider,
		reason,
		nil,
	).WithProvider(name)
}

func errProviderInvocation(name string, cause error) *Error {
	return newError(
		ErrCodeProviderInvocation,
		"provider returned error",
		cause,
	).WithProvider(name)
}

func errResourceAcquisition(name string, cause error) *Error {
	return newError(
		ErrCodeResourceAcquisition,
		"failed to acquire scoped resource",
		cause,
	).WithProvider(name)
}

func errResourceRelease(name string, cause error) *Error {
	return newError(
		ErrCodeResourceRelease,
		"failed to release scoped resource",
		cause,
	).WithProvider(name)
}

func errContextConsumed() *Error {
	return newError(
		ErrCodeContextConsumed,
		"resolution context already consumed; build a new one per resolution",
		nil,
	)
}

func IsUnresolvedDependency(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeUnresolvedDependency
}

func IsUnresolvedGenericParameter(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeUnresolvedGenericParameter
}

func IsCycleDetected(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeCycleDetected
}

func IsInvalidProvider(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeInvalidProvider
}

func IsProviderInvocation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeProviderInvocation
}

func IsResourceAcquisition(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeResourceAcquisition
}

func IsResourceRelease(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeResourceRelease
}

func IsContextConsumed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeContextConsumed
}
