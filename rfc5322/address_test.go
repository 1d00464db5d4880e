package rfc5322

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecureAddress(t *testing.T) {
	addr, err := NewSecureAddress("Alice", "", "alice@example.com", "deadBEEF0123456789abcdef")
	require.NoError(t, err)

	assert.Equal(t, "Alice", addr.Name())
	assert.Equal(t, "", addr.Route())
	assert.Equal(t, "alice@example.com", addr.Address())

	// The fingerprint is stored verbatim; no case normalization.
	assert.Equal(t, "deadBEEF0123456789abcdef", addr.Fingerprint())
}

func TestNewSecureAddressRejectsInvalidFingerprint(t *testing.T) {
	tests := []struct {
		name        string
		fingerprint string
	}{
		{name: "empty", fingerprint: ""},
		{name: "non-hex letter", fingerprint: "12G4"},
		{name: "space", fingerprint: "dead beef"},
		{name: "punctuation", fingerprint: "de:ad:be:ef"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewSecureAddress("Alice", "", "alice@example.com", test.fingerprint)
			require.ErrorIs(t, err, ErrInvalidFingerprint)
		})
	}
}
