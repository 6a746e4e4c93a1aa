// Package classify holds the heuristic text predicates that drive the
// conversation: question detection, scope gating, identity and commercial
// intent, lead extraction and repetition checks. Nothing here panics or
// returns an error; empty input yields the safe default of each predicate.
package classify

import (
	"strings"
	"unicode/utf8"
)

const (
	// shortTextRunes: folded texts shorter than this are always in scope,
	// so filler like "ok", "sim" or "pode ser" is never redirected.
	shortTextRunes = 12

	similarMinRunes = 25
	similarRatio    = 0.85
)

// Knows is the interpretation of a "did you already know us?" reply.
type Knows int

const (
	KnowsUnknown Knows = iota
	KnowsYes
	KnowsNo
)

func (k Knows) String() string {
	switch k {
	case KnowsYes:
		return "yes"
	case KnowsNo:
		return "no"
	default:
		return "unknown"
	}
}

// Classifier evaluates predicates against one Lexicon.
type Classifier struct {
	greetings  phraseSet
	starters   phraseSet
	scope      phraseSet
	identity   phraseSet
	commercial phraseSet
	business   phraseSet
	knowsYes   phraseSet
	knowsNo    phraseSet
	company    phraseSet
	locality   phraseSet
	reset      phraseSet
	states     map[string]struct{}
}

func New(lx Lexicon) *Classifier {
	states := make(map[string]struct{}, len(lx.StateCodes))
	for _, s := range lx.StateCodes {
		states[strings.ToUpper(s)] = struct{}{}
	}
	return &Classifier{
		greetings:  newPhraseSet(lx.Greetings),
		starters:   newPhraseSet(lx.QuestionStarters),
		scope:      newPhraseSet(lx.Scope),
		identity:   newPhraseSet(lx.Identity),
		commercial: newPhraseSet(lx.Commercial),
		business:   newPhraseSet(lx.BusinessNouns),
		knowsYes:   newPhraseSet(lx.KnowsYes),
		knowsNo:    newPhraseSet(lx.KnowsNo),
		company:    newPhraseSet(lx.CompanyMarkers),
		locality:   newPhraseSet(lx.LocalityMarkers),
		reset:      newPhraseSet(lx.ResetCommands),
		states:     states,
	}
}

// Default is the classifier built from DefaultLexicon.
var Default = New(DefaultLexicon)

func (c *Classifier) IsQuestion(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	if strings.HasSuffix(t, "?") {
		return true
	}
	_, ok := c.starters.prefix(words(tokenize(t)))
	return ok
}

func (c *Classifier) IsInScope(text string) bool {
	f := Fold(text)
	if utf8.RuneCountInString(f) < shortTextRunes {
		return true
	}
	ws := words(tokenize(text))
	if c.greetings.exact(ws) {
		return true
	}
	return c.scope.contains(ws)
}

func (c *Classifier) IsIdentityQuestion(text string) bool {
	return c.identity.contains(words(tokenize(text)))
}

func (c *Classifier) IsCommercialIntent(text string) bool {
	return c.commercial.contains(words(tokenize(text)))
}

func (c *Classifier) IsGreeting(text string) bool {
	return c.greetings.exact(words(tokenize(text)))
}

// IsReset reports whether the whole message is a reset command.
func (c *Classifier) IsReset(text string) bool {
	return c.reset.exact(words(tokenize(text)))
}

// LooksLikeLeadAnswer reports whether text plausibly names a business and a
// place: a state code, a locality marker in front of a capitalised word, or
// several words including a business noun.
func (c *Classifier) LooksLikeLeadAnswer(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if c.hasStateCode(text) {
		return true
	}
	for _, seg := range splitSegments(text) {
		if _, ok := c.localityRest(seg); ok {
			return true
		}
	}
	ws := words(tokenize(text))
	return len(ws) >= 2 && c.business.contains(ws)
}

// NamesCompany reports whether text introduces a company with a marker such
// as "minha empresa é".
func (c *Classifier) NamesCompany(text string) bool {
	for _, seg := range splitSegments(text) {
		if _, _, ok := c.companyRest(seg); ok {
			return true
		}
	}
	return false
}

// ClassifyKnows reads a reply to "did you know TRÍVIA already?". Negatives
// are checked first so "não conheço" is not read as "conheço".
func (c *Classifier) ClassifyKnows(text string) Knows {
	ws := words(tokenize(text))
	switch {
	case len(ws) == 0:
		return KnowsUnknown
	case c.knowsNo.contains(ws):
		return KnowsNo
	case c.knowsYes.contains(ws):
		return KnowsYes
	default:
		return KnowsUnknown
	}
}

// TooSimilar reports whether b would read as a repeat of a: identical after
// folding, or sharing a common prefix longer than 85% of the shorter text
// when both are at least similarMinRunes long.
func TooSimilar(a, b string) bool {
	na, nb := []rune(Fold(a)), []rune(Fold(b))
	if len(na) == 0 || len(nb) == 0 {
		return false
	}
	if string(na) == string(nb) {
		return true
	}
	minLen := min(len(na), len(nb))
	if minLen < similarMinRunes {
		return false
	}
	i := 0
	for i < minLen && na[i] == nb[i] {
		i++
	}
	return float64(i)/float64(minLen) > similarRatio
}

func (c *Classifier) hasStateCode(text string) bool {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z') && !(r >= 'a' && r <= 'z')
	}) {
		if len(f) != 2 || strings.ToUpper(f) != f {
			continue
		}
		if _, ok := c.states[f]; ok {
			return true
		}
	}
	return false
}

func IsQuestion(text string) bool         { return Default.IsQuestion(text) }
func IsInScope(text string) bool          { return Default.IsInScope(text) }
func IsIdentityQuestion(text string) bool { return Default.IsIdentityQuestion(text) }
func IsCommercialIntent(text string) bool { return Default.IsCommercialIntent(text) }
func LooksLikeLeadAnswer(text string) bool {
	return Default.LooksLikeLeadAnswer(text)
}
