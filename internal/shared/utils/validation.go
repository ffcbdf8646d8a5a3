package utils

import (
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

// String length limits
const (
	MaxNameLength = 256
)

// ValidateName checks an entity name: non-empty and at most MaxNameLength
// bytes. Violations are BadParam.
func ValidateName(name, fieldName string) error {
	if name == "" {
		return status.Errorf(status.BadParam, "%s must not be empty", fieldName)
	}
	if len(name) > MaxNameLength {
		return status.Errorf(status.BadParam, "%s is %d bytes, maximum is %d", fieldName, len(name), MaxNameLength)
	}
	return nil
}

// ValidateNames validates every name and reports the first name that
// appears twice as DuplicateName.
func ValidateNames(names []string, fieldName string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if err := ValidateName(name, fieldName); err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return status.Errorf(status.DuplicateName, "%s %q given more than once", fieldName, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// RequireValue rejects an empty mandatory attribute with Null.
func RequireValue(value, fieldName string) error {
	if value == "" {
		return status.Errorf(status.Null, "%s must not be empty", fieldName)
	}
	return nil
}
