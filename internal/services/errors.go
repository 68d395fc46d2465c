package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIntegrity marks catalog-integrity failures: cyclic ancestry,
	// dangling merge references, duplicate logical names. Fatal for the
	// affected machine only.
	ErrIntegrity = errors.New("catalog integrity error")
	// ErrValidation marks bad caller input.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks lookups for entities absent from the catalog.
	ErrNotFound = errors.New("not found")
	// ErrIO marks failures reading supplied files or archive entries.
	ErrIO = errors.New("io error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsMachineScoped reports whether an error should be attached to a single
// machine's report rather than aborting the whole run.
func IsMachineScoped(err error) bool {
	return errors.Is(err, ErrIntegrity) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrIO)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
