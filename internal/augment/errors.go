package augment

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrConfiguration classifies errors caused by an invalid Config.
	ErrConfiguration = errors.New("invalid augmentation configuration")

	// ErrInvariant classifies errors caused by breaking the calling contract.
	ErrInvariant = errors.New("augmentation invariant violated")

	// ErrTransformation classifies errors raised while applying a transformation.
	ErrTransformation = errors.New("transformation failed")
)

// ConfigurationError lists every problem found while validating a Config.
type ConfigurationError struct {
	Issues []string
}

func (e *ConfigurationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return ErrConfiguration.Error()
	case 1:
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Issues[0])
	}
	return fmt.Sprintf("%s:\n  - %s", ErrConfiguration, strings.Join(e.Issues, "\n  - "))
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) addf(format string, args ...any) {
	e.Issues = append(e.Issues, fmt.Sprintf(format, args...))
}

func (e *ConfigurationError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

// InvariantError reports a call that the pipeline refuses to serve.
type InvariantError struct {
	Op  string
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvariant, e.Op, e.Msg)
}

// Is reports whether target is ErrInvariant.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// TransformationError wraps a failure raised by the named transformation.
type TransformationError struct {
	Name string
	Err  error
}

// NewTransformationError wraps err with the transformation name.
func NewTransformationError(name string, err error) *TransformationError {
	return &TransformationError{Name: name, Err: err}
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("transformation %q: %v", e.Name, e.Err)
}

func (e *TransformationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransformation.
func (e *TransformationError) Is(target error) bool {
	return target == ErrTransformation
}
