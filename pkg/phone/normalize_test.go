package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize("(212) 555-1234", "US")
	require.NoError(t, err)
	assert.Equal(t, "+12125551234", got)

	got, err = Normalize("+12125551234", "")
	require.NoError(t, err)
	assert.Equal(t, "+12125551234", got)

	got, err = Normalize("212.555.1234", "US")
	require.NoError(t, err)
	assert.Equal(t, "+12125551234", got)

	_, err = Normalize("", "US")
	assert.Error(t, err)

	_, err = Normalize("123", "US")
	assert.Error(t, err)

	_, err = Normalize("not a number", "US")
	assert.Error(t, err)
}

func TestCanonicalKeyCollapsesFormats(t *testing.T) {
	variants := []string{
		"+12125551234",
		"(212) 555-1234",
		"212-555-1234",
		"1-212-555-1234",
		"212.555.1234",
	}
	want := CanonicalKey(variants[0], "US")
	for _, v := range variants[1:] {
		assert.Equal(t, want, CanonicalKey(v, "US"), "variant %q", v)
	}
}

func TestCanonicalKeyDigitFallback(t *testing.T) {
	// Exchange codes starting with 1 fail validation, so these hit the
	// digits-only fallback and must still share one key.
	assert.Equal(t, CanonicalKey("5551234567", "US"), CanonicalKey("(555) 123-4567", "US"))
	assert.NotEqual(t, CanonicalKey("5551234567", "US"), CanonicalKey("5551234568", "US"))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("(212) 555-1234", "US"))
	assert.False(t, IsValid("12", "US"))
	assert.False(t, IsValid("", "US"))
}
