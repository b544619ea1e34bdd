package transform

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Month is a calendar month, 1 to 12.
type Month uint8

// months is keyed by the lower-case, accent-free month token in English,
// German, French and Italian, full and abbreviated.
var months = map[string]Month{
	"january": 1, "jan": 1, "januar": 1, "janner": 1, "janvier": 1, "janv": 1, "gennaio": 1, "genn": 1, "gen": 1,
	"february": 2, "feb": 2, "februar": 2, "fevrier": 2, "fevr": 2, "fev": 2, "febbraio": 2, "febbr": 2,
	"march": 3, "mar": 3, "marz": 3, "mars": 3, "marzo": 3,
	"april": 4, "apr": 4, "avril": 4, "avr": 4, "aprile": 4,
	"may": 5, "mai": 5, "maggio": 5, "mag": 5,
	"june": 6, "jun": 6, "juni": 6, "juin": 6, "giugno": 6, "giu": 6,
	"july": 7, "jul": 7, "juli": 7, "juillet": 7, "juil": 7, "luglio": 7, "lug": 7,
	"august": 8, "aug": 8, "aout": 8, "agosto": 8, "ago": 8,
	"september": 9, "sep": 9, "sept": 9, "septembre": 9, "settembre": 9, "sett": 9, "set": 9,
	"october": 10, "oct": 10, "oktober": 10, "okt": 10, "octobre": 10, "ottobre": 10, "ott": 10,
	"november": 11, "nov": 11, "novembre": 11,
	"december": 12, "dec": 12, "dezember": 12, "dez": 12, "decembre": 12, "dicembre": 12, "dic": 12,
}

// foldToken lower-cases s, strips diacritics and a trailing period.
func foldToken(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	return strings.TrimSuffix(folded, ".")
}

// ParseMonth returns the month named by token.
func ParseMonth(token string) (Month, bool) {
	m, ok := months[foldToken(token)]
	return m, ok
}
