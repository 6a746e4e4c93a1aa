package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExtractLead pulls a company name and a city out of free text such as
// "quero contratar, minha empresa é Salão Beleza, Belo Horizonte MG".
//
// The heuristic is deliberately loose: the text is split on commas,
// semicolons, dashes and newlines; a segment carrying a company marker
// yields the company, a segment starting with a locality marker or holding a
// state code yields the city, and leftovers fill whatever is still missing in
// order. Either result may be empty.
func (c *Classifier) ExtractLead(text string) (company, city string) {
	var rest []string
	for _, seg := range splitSegments(text) {
		if company == "" {
			if co, ci, ok := c.companyRest(seg); ok {
				company = co
				if city == "" {
					city = ci
				}
				continue
			}
		}
		if city == "" {
			if ci, ok := c.localityRest(seg); ok {
				city = clean(ci)
				continue
			}
			if c.hasStateCode(seg) {
				city = clean(seg)
				continue
			}
		}
		ws := words(tokenize(seg))
		if len(ws) == 0 || c.commercial.contains(ws) || c.greetings.exact(ws) || c.IsQuestion(seg) {
			continue
		}
		rest = append(rest, clean(seg))
	}

	if company == "" && len(rest) > 0 {
		company, rest = rest[0], rest[1:]
	}
	if city == "" && len(rest) > 0 {
		city = rest[0]
	}
	return company, city
}

func ExtractLead(text string) (company, city string) { return Default.ExtractLead(text) }

// companyRest finds a company marker anywhere in seg and returns what follows
// it. "X em Cidade" is split into company and city.
func (c *Classifier) companyRest(seg string) (company, city string, ok bool) {
	toks := tokenize(seg)
	i, n := c.company.find(words(toks))
	if i < 0 || i+n >= len(toks) {
		return "", "", false
	}
	rest := trimLead(seg[toks[i+n-1].end:])

	rt := tokenize(rest)
	for k := 1; k < len(rt)-1; k++ {
		if rt[k].word != "em" {
			continue
		}
		after := trimLead(rest[rt[k].end:])
		if startsWithUpper(after) {
			return clean(rest[:rt[k].start]), clean(after), true
		}
	}
	company = clean(rest)
	return company, "", company != ""
}

// localityRest strips a leading locality marker ("sou de", "cidade", "em").
// The bare prepositions only count when a capitalised name follows, so
// "de novo" is not a place.
func (c *Classifier) localityRest(seg string) (string, bool) {
	toks := tokenize(seg)
	n, ok := c.locality.prefix(words(toks))
	if !ok || n >= len(toks) {
		return "", false
	}
	rest := trimLead(seg[toks[n-1].end:])
	if n == 1 && (toks[0].word == "de" || toks[0].word == "em") && !startsWithUpper(rest) {
		return "", false
	}
	return rest, rest != ""
}

func splitSegments(text string) []string {
	r := strings.NewReplacer(" - ", ",", " – ", ",", " — ", ",")
	parts := strings.FieldsFunc(r.Replace(text), func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '|'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func trimLead(s string) string {
	return strings.TrimSpace(strings.TrimLeft(s, " \t:=-–—"))
}

func clean(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ".!?;,:"))
}

func startsWithUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && (unicode.IsUpper(r) || unicode.IsDigit(r))
}
