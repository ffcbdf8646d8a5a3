package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want status.Code
	}{
		{"simple", "pool1", status.OK},
		{"max length", strings.Repeat("a", MaxNameLength), status.OK},
		{"empty", "", status.BadParam},
		{"too long", strings.Repeat("a", MaxNameLength+1), status.BadParam},
		{"multibyte counted in bytes", strings.Repeat("é", MaxNameLength/2+1), status.BadParam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.CodeOf(ValidateName(tt.in, "name")))
		})
	}
}

func TestValidateNames(t *testing.T) {
	assert.NoError(t, ValidateNames([]string{"sda", "sdb"}, "device"))
	assert.NoError(t, ValidateNames(nil, "device"))

	err := ValidateNames([]string{"sda", "sdb", "sda"}, "device")
	assert.Equal(t, status.DuplicateName, status.CodeOf(err))
	assert.Contains(t, err.Error(), `"sda"`)

	err = ValidateNames([]string{"sda", ""}, "device")
	assert.Equal(t, status.BadParam, status.CodeOf(err))
}

func TestRequireValue(t *testing.T) {
	assert.NoError(t, RequireValue("/mnt/v1", "mount point"))
	assert.Equal(t, status.Null, status.CodeOf(RequireValue("", "quota")))
}
