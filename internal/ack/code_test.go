package ack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRandomCode verifies codes have the fixed length and numeric alphabet.
func TestRandomCode(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		code := randomCode()
		require.Len(t, code, codeLength)

		for _, r := range code {
			require.GreaterOrEqual(t, r, '0')
			require.LessOrEqual(t, r, '9')
		}
	}
}
