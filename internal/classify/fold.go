package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, strips diacritics, trims and collapses whitespace.
func Fold(s string) string {
	out, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// token is one word of folded text together with the byte span of the
// original text it was folded from.
type token struct {
	word       string
	start, end int
}

// tokenize folds s rune by rune and splits it into words of letters and
// digits. Every token remembers where it came from in s, so callers can cut
// original-cased substrings out of s.
func tokenize(s string) []token {
	var (
		out   []token
		cur   []rune
		start = -1
	)
	flush := func(end int) {
		if len(cur) > 0 {
			out = append(out, token{word: string(cur), start: start, end: end})
		}
		cur = cur[:0]
		start = -1
	}

	for i, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
		for _, d := range norm.NFD.String(string(unicode.ToLower(r))) {
			if !unicode.Is(unicode.Mn, d) {
				cur = append(cur, d)
			}
		}
	}
	flush(len(s))
	return out
}

func words(toks []token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.word
	}
	return out
}
