package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalize case-folds, drops diacritics and collapses whitespace so that
// "  Énergie   Cinétique" matches "energie cinetique". Transformers keep
// state, so a fresh chain is built per call.
func normalize(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = cases.Fold().String(out)
	return strings.Join(strings.Fields(out), " ")
}
