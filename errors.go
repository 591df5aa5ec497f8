package scopedi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel errors. Typed errors below wrap these so callers can use errors.Is.
var (
	ErrServiceNotFound     = errors.New("service not found")
	ErrServiceTypeNil      = errors.New("service type cannot be nil")
	ErrAlreadyRegistered   = errors.New("service already registered")
	ErrCircularDependency  = errors.New("circular dependency detected")
	ErrScopeRequired       = errors.New("scoped service requires a scope")
	ErrConstructorNil      = errors.New("constructor cannot be nil")
	ErrCollectionBuilt     = errors.New("collection has already been built")
	ErrProviderNil         = errors.New("service provider cannot be nil")
	ErrProviderDisposed    = errors.New("service provider has been disposed")
	ErrScopeDisposed       = errors.New("scope has been disposed")
	ErrScopeNotInContext   = errors.New("no scope found in context")
	ErrConstructorPanicked = errors.New("constructor panicked")
)

var (
	_ error = LifetimeError{}
	_ error = AlreadyRegisteredError{}
	_ error = ResolutionError{}
	_ error = CircularDependencyError{}
	_ error = ScopeRequiredError{}
	_ error = TypeMismatchError{}
	_ error = ReflectionAnalysisError{}
	_ error = ConstructorError{}
	_ error = ConstructorPanicError{}
	_ error = ModuleError{}
	_ error = DisposalError{}
)

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid service lifetime: %v", e.Value)
}

// AlreadyRegisteredError is returned when a contract type is registered twice.
// Registrations are never overwritten.
type AlreadyRegisteredError struct {
	ServiceType reflect.Type
	Existing    Lifetime
	Attempted   Lifetime
}

func (e AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("service %s already registered as %s, cannot register again as %s",
		formatType(e.ServiceType), e.Existing, e.Attempted)
}

func (e AlreadyRegisteredError) Unwrap() error {
	return ErrAlreadyRegistered
}

// ResolutionError is returned when a requested service has no definition.
type ResolutionError struct {
	ServiceType reflect.Type
	Cause       error
	Available   []reflect.Type
}

func (e ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("unable to resolve unregistered service %s", formatType(e.ServiceType)))

	if e.Cause != nil && !errors.Is(e.Cause, ErrServiceNotFound) {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if similar := findSimilarTypes(e.ServiceType, e.Available); len(similar) > 0 {
		b.WriteString("\n\nDid you mean one of these?\n")
		for _, t := range similar {
			b.WriteString(fmt.Sprintf("  • %s\n", formatType(t)))
		}
	}

	return b.String()
}

func (e ResolutionError) Unwrap() error {
	if e.Cause == nil {
		return ErrServiceNotFound
	}
	return e.Cause
}

// findSimilarTypes finds registered types with a similar name.
func findSimilarTypes(target reflect.Type, available []reflect.Type) []reflect.Type {
	if target == nil || len(available) == 0 {
		return nil
	}

	targetName := strings.ToLower(shortName(target))

	var similar []reflect.Type
	for _, t := range available {
		if t == nil || t == target {
			continue
		}

		name := strings.ToLower(shortName(t))
		if name == targetName || strings.Contains(name, targetName) || strings.Contains(targetName, name) {
			similar = append(similar, t)
		}

		if len(similar) >= 5 {
			break
		}
	}

	return similar
}

func shortName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// CircularDependencyError is returned when a service is requested while it is
// still being constructed further up the same resolution.
type CircularDependencyError struct {
	// Requested is the service whose request closed the cycle.
	Requested reflect.Type

	// Innermost is the service under construction when the request was made.
	Innermost reflect.Type

	// Path lists the services under construction, outermost first.
	Path []reflect.Type
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("circular dependency detected between services %s and %s:\n\n",
		formatType(e.Requested), formatType(e.Innermost)))

	for _, t := range e.Path {
		b.WriteString(fmt.Sprintf("    %s\n", formatType(t)))
		b.WriteString("      ↓\n")
	}
	b.WriteString(fmt.Sprintf("    %s (cycle)\n", formatType(e.Requested)))

	return b.String()
}

func (e CircularDependencyError) Unwrap() error {
	return ErrCircularDependency
}

// ScopeRequiredError is returned when a Scoped service is requested from the
// root provider.
type ScopeRequiredError struct {
	ServiceType reflect.Type
}

func (e ScopeRequiredError) Error() string {
	return fmt.Sprintf("unable to resolve Scoped service %s from the root provider: create a scope first with provider.CreateScope and resolve from scope.Provider()",
		formatType(e.ServiceType))
}

func (e ScopeRequiredError) Unwrap() error {
	return ErrScopeRequired
}

// TypeMismatchError indicates a type assertion or assignability check failed.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// ReflectionAnalysisError reports a constructor with an unusable shape.
type ReflectionAnalysisError struct {
	Constructor any
	Cause       error
}

func (e ReflectionAnalysisError) Error() string {
	return fmt.Sprintf("invalid constructor %T: %v", e.Constructor, e.Cause)
}

func (e ReflectionAnalysisError) Unwrap() error {
	return e.Cause
}

// ConstructorError wraps an error returned while constructing a service,
// either from the factory itself or from resolving one of its dependencies.
type ConstructorError struct {
	ServiceType reflect.Type
	Lifetime    Lifetime
	Cause       error
}

func (e ConstructorError) Error() string {
	return fmt.Sprintf("failed to construct %s %s: %v", e.Lifetime, formatType(e.ServiceType), e.Cause)
}

func (e ConstructorError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a factory panicked.
type ConstructorPanicError struct {
	ServiceType reflect.Type
	Panic       any
	Stack       []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("constructor for %s panicked: %v", formatType(e.ServiceType), e.Panic))
	if len(e.Stack) > 0 {
		b.WriteString("\n\nStack trace:\n")
		b.Write(e.Stack)
	}
	return b.String()
}

func (e ConstructorPanicError) Unwrap() error {
	return ErrConstructorPanicked
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// DisposalError aggregates errors from closing instances.
type DisposalError struct {
	Context string // "provider" or "scope"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// IsNotFound reports whether err was caused by an unregistered service.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrServiceNotFound)
}

// IsCircular reports whether err was caused by a circular dependency.
func IsCircular(err error) bool {
	return errors.Is(err, ErrCircularDependency)
}

// IsScopeRequired reports whether err was caused by resolving a Scoped
// service from the root provider.
func IsScopeRequired(err error) bool {
	return errors.Is(err, ErrScopeRequired)
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
