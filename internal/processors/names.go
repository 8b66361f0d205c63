package processors

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// DisplayName renders a processor name for humans, e.g. face_swapper becomes
// "Face Swapper".
func DisplayName(name string) string {
	words := strings.FieldsFunc(normalizeName(name), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	return titleCaser.String(strings.Join(words, " "))
}
