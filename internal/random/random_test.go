package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLetters(t *testing.T) {
	tests := []struct {
		name   string
		length uint
	}{
		{
			name:   "zero length",
			length: 0,
		},
		{
			name:   "20 length",
			length: 20,
		},
		{
			name:   "256 length",
			length: 256,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Letters(tt.length)
			require.NoError(t, err)
			require.Len(t, got, int(tt.length))
			for _, r := range got {
				require.True(t, strings.ContainsRune(string(allowedLetters), r), "unexpected rune %q", r)
			}
		})
	}
}

func TestLetters_unique(t *testing.T) {
	first, err := Letters(20)
	require.NoError(t, err)
	second, err := Letters(20)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}
