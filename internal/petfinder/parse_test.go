package petfinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Adult", cleanText("  Adult  "))
	assert.Equal(t, "Housetrained", cleanText("Housetrained**"))
	assert.Equal(t, "Black & White", cleanText(" Black & White* "))
	assert.Equal(t, "", cleanText("   "))
	assert.Equal(t, "", cleanText("***"))
}

func TestParseBoolean(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want bool
	}{
		{"", false},
		{"Yes", true},
		{"yes", true},
		{"True", true},
		{"✓", true},
		{"No", false},
		{"false", false},
		{"✗", false},
		// Negative markers win even when a positive one is present.
		{"yes and no", false},
		// Unmatched non-empty text without a marker counts as true.
		{"good with kids", true},
		// A stray "n" anywhere reads as negative.
		{"Spayed/Neutered", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseBoolean(tc.text), "text %q", tc.text)
	}
}

func TestNameFromHeading(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Rex", nameFromHeading("About Rex"))
	assert.Equal(t, "Rex", nameFromHeading("  about   Rex "))
	assert.Equal(t, "Rex", nameFromHeading("Rex"))
	assert.Equal(t, "", nameFromHeading("About"))
	assert.Equal(t, "", nameFromHeading(""))
}

func TestCanonicalLink(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"https://www.petfinder.com/dog/rex-123/ny/new-york/details/",
		canonicalLink("/dog/rex-123/ny/new-york/details/"))
	assert.Equal(t,
		"https://www.petfinder.com/dog/rex-123/",
		canonicalLink("https://www.petfinder.com/dog/rex-123/"))
}
