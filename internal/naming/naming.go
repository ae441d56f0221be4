// Package naming turns free-text page labels from the metadata spreadsheet
// into archival file names of the form <bookID>.<token>.<token>.<ext>.
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultExtension is appended to every derived page image name.
const DefaultExtension = "tif"

// Whole-label rewrites from physical descriptors to archival vocabulary.
// Keys are lower case with single spaces.
var substitutions = map[string]string{
	"front outside cover": "binding frontcover",
	"back outside cover":  "binding backcover",
	"inside front cover":  "frontmatter pastedown",
	"back inside cover":   "endmatter pastedown",
	"spine":               "binding spine",
	"head":                "misc head",
	"fore-edge":           "misc foreedge",
	"tail":                "misc tail",
}

// Single-token rewrites applied after the label is split.
var tokenRewrites = map[string]string{
	"back":    "endmatter",
	"front":   "frontmatter",
	"endleaf": "flyleaf",
}

var reFolio = regexp.MustCompile(`^([0-9]+)([rv])$`)

// Normalizer derives page image names for one book.
type Normalizer struct {
	BookID    string
	Extension string
}

// New returns a Normalizer using the default image extension
func New(bookID string) *Normalizer {
	return &Normalizer{BookID: bookID, Extension: DefaultExtension}
}

// Normalize returns the archival file name for label
func (n *Normalizer) Normalize(label string) string {
	ext := n.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	return Normalize(n.BookID, label, ext)
}

// Normalize builds <bookID>.<tokens...>.<ext> from a page label. Labels that
// filter down to nothing yield <bookID>.<ext>.
func Normalize(bookID, label, ext string) string {
	var sb strings.Builder
	sb.WriteString(bookID)

	for _, token := range strings.Fields(Substitute(label)) {
		token, keep := rewriteToken(token)
		if !keep {
			continue
		}
		sb.WriteByte('.')
		sb.WriteString(token)
	}

	sb.WriteByte('.')
	sb.WriteString(strings.TrimPrefix(ext, "."))
	return sb.String()
}

// Substitute applies the whole-label substitution table. Labels that are
// not in the table come back unchanged, so Substitute(Substitute(x)) == Substitute(x).
func Substitute(label string) string {
	key := strings.ToLower(strings.Join(strings.Fields(label), " "))
	if replacement, ok := substitutions[key]; ok {
		return replacement
	}
	return label
}

func rewriteToken(token string) (string, bool) {
	if strings.EqualFold(token, "fol.") || token == "(blank)" {
		return "", false
	}

	if m := reFolio.FindStringSubmatch(token); m != nil {
		return padFolio(m[1]) + m[2], true
	}

	if rewritten, ok := tokenRewrites[token]; ok {
		return rewritten, true
	}
	return token, true
}

// padFolio zero-pads a leaf number to three digits. Numbers too long for an
// int are already wider than that and only lose their leading zeros.
func padFolio(digits string) string {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return strings.TrimLeft(digits, "0")
	}
	return fmt.Sprintf("%03d", n)
}
