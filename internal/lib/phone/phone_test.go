package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(Config{
		AllowedCallingCodes: []int{7, 86},
		DefaultRegion:       "RU",
	})
}

func TestNormalizer_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{
			name: "chinese mobile with dashes",
			raw:  "+86-138-0013-8000",
			want: "+8613800138000",
		},
		{
			name: "chinese mobile with spaces",
			raw:  "+86 138 0013 8000",
			want: "+8613800138000",
		},
		{
			name: "chinese mobile compact",
			raw:  "+8613800138000",
			want: "+8613800138000",
		},
		{
			name: "russian mobile in national format",
			raw:  "8 (912) 345-67-89",
			want: "+79123456789",
		},
		{
			name:    "unsupported calling code",
			raw:     "+1 415 555 2671",
			wantErr: ErrUnsupportedRegion,
		},
		{
			name:    "garbage input",
			raw:     "not a phone",
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "too short to be valid",
			raw:     "+86 123",
			wantErr: ErrInvalidFormat,
		},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizer_EmptyAllowListAcceptsAnyRegion(t *testing.T) {
	n := NewNormalizer(Config{DefaultRegion: "US"})
	got, err := n.Normalize("+1 415 555 2671")
	require.NoError(t, err)
	assert.Equal(t, "+14155552671", got)
}
