package password

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultPolicy() *Policy {
	return NewPolicy(PolicyConfig{
		MinLength:      8,
		MaxLength:      72,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		MinEntropyBits: 40,
	})
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name           string
		password       string
		wantErr        bool
		wantViolations []string
	}{
		{
			name:     "strong password accepted",
			password: "Tr0ub4dor&3!",
			wantErr:  false,
		},
		{
			name:           "common weak word rejected",
			password:       "password123",
			wantErr:        true,
			wantViolations: []string{"contains a common weak word"},
		},
		{
			name:           "repeated characters rejected",
			password:       "Aaaaa0bcd",
			wantErr:        true,
			wantViolations: []string{"contains repeated characters"},
		},
		{
			name:           "sequential digits rejected",
			password:       "Xk1234mnoP",
			wantErr:        true,
			wantViolations: []string{"contains sequential digits"},
		},
		{
			name:     "all violations reported at once",
			password: "aa",
			wantErr:  true,
			wantViolations: []string{
				"too short",
				"missing uppercase letter",
				"missing digit",
				"not enough entropy",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := defaultPolicy().Validate(tt.password)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var perr *PolicyError
			require.True(t, errors.As(err, &perr))
			for _, v := range tt.wantViolations {
				assert.Contains(t, perr.Violations, v)
			}
		})
	}
}

func TestPolicy_Validate_DescendingDigits(t *testing.T) {
	err := defaultPolicy().Validate("Xq9876plmR")
	require.Error(t, err)
	var perr *PolicyError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Violations, "contains sequential digits")
}
