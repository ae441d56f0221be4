package naming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		expected string
	}{
		{name: "recto folio is padded", label: "7r", expected: "BOOK.007r.tif"},
		{name: "verso folio is padded", label: "12v", expected: "BOOK.012v.tif"},
		{name: "three digit folio unchanged", label: "123v", expected: "BOOK.123v.tif"},
		{name: "leading zeros normalised", label: "0007r", expected: "BOOK.007r.tif"},
		{name: "wide folio keeps digits", label: "1234r", expected: "BOOK.1234r.tif"},
		{name: "fol. prefix dropped", label: "fol. 7r", expected: "BOOK.007r.tif"},
		{name: "fol. dropped in any case", label: "FOL. 7v", expected: "BOOK.007v.tif"},
		{name: "blank marker dropped", label: "7v (blank)", expected: "BOOK.007v.tif"},
		{name: "front outside cover", label: "front outside cover", expected: "BOOK.binding.frontcover.tif"},
		{name: "back outside cover", label: "back outside cover", expected: "BOOK.binding.backcover.tif"},
		{name: "inside front cover", label: "inside front cover", expected: "BOOK.frontmatter.pastedown.tif"},
		{name: "back inside cover", label: "back inside cover", expected: "BOOK.endmatter.pastedown.tif"},
		{name: "spine", label: "spine", expected: "BOOK.binding.spine.tif"},
		{name: "head", label: "head", expected: "BOOK.misc.head.tif"},
		{name: "fore-edge loses hyphen", label: "fore-edge", expected: "BOOK.misc.foreedge.tif"},
		{name: "tail", label: "tail", expected: "BOOK.misc.tail.tif"},
		{name: "substitution ignores case and spacing", label: "Front  Outside Cover", expected: "BOOK.binding.frontcover.tif"},
		{name: "front token rewritten", label: "front flyleaf 1r", expected: "BOOK.frontmatter.flyleaf.001r.tif"},
		{name: "back token rewritten", label: "back endleaf ii", expected: "BOOK.endmatter.flyleaf.ii.tif"},
		{name: "unknown tokens pass through", label: "insert a", expected: "BOOK.insert.a.tif"},
		{name: "folio pattern needs whole token", label: "7rv", expected: "BOOK.7rv.tif"},
		{name: "empty label is degenerate", label: "", expected: "BOOK.tif"},
		{name: "fully filtered label is degenerate", label: "fol. (blank)", expected: "BOOK.tif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize("BOOK", tt.label, "tif"))
		})
	}
}

func TestNormalizerDefaults(t *testing.T) {
	n := New("Ha2")
	assert.Equal(t, "Ha2.001r.tif", n.Normalize("1r"))

	bare := &Normalizer{BookID: "Ha2"}
	assert.Equal(t, "Ha2.001v.tif", bare.Normalize("1v"))

	png := &Normalizer{BookID: "Ha2", Extension: ".png"}
	assert.Equal(t, "Ha2.001v.png", png.Normalize("1v"))
}

func TestSubstituteIsIdempotent(t *testing.T) {
	labels := []string{
		"front outside cover", "back outside cover", "inside front cover",
		"back inside cover", "spine", "head", "fore-edge", "tail", "12r", "", "fol. 3v",
	}
	for _, label := range labels {
		once := Substitute(label)
		assert.Equal(t, once, Substitute(once), "label %q", label)
	}
}

func TestNormalizeNeverEmitsFilteredTokens(t *testing.T) {
	labels := []string{"fol. 1r", "Fol. 2v (blank)", "(blank)", "FOL.", "fol. front outside cover"}
	for _, label := range labels {
		name := Normalize("BOOK", label, "tif")
		for _, segment := range strings.Split(name, ".") {
			assert.NotEqual(t, "(blank)", segment, "label %q produced %q", label, name)
			assert.NotEqual(t, "fol", strings.ToLower(segment), "label %q produced %q", label, name)
		}
		assert.NotContains(t, strings.ToLower(name), "fol..")
	}
}
