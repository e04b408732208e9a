package match

// Fuzz patterns and strings.  Match and then verify the results
// against a regular expression built from the same pattern.

import (
	"math/rand"
	"regexp"
	"strings"
	"testing"
)

// Fuzz has parameters used to generate random patterns and strings.
type Fuzz struct {
	Alphabet    string
	StringWidth int

	Anys float64
	Ones float64
}

// NewFuzz returns a reasonable, general-purpose Fuzz.
func NewFuzz() *Fuzz {
	return &Fuzz{
		Alphabet:    "abcä",
		StringWidth: 6,
		Anys:        0.15,
		Ones:        0.1,
	}
}

// NoWildcards sets Anys and Ones to zero so that generated strings
// are plain values.
func (f *Fuzz) NoWildcards() {
	f.Anys = 0
	f.Ones = 0
}

// Gen generates a random pattern or string.
func (f *Fuzz) Gen(r *rand.Rand) string {
	alphabet := []rune(f.Alphabet)
	n := r.Intn(f.StringWidth + 1)
	var b strings.Builder
	for i := 0; i < n; i++ {
		t := r.Float64()
		switch {
		case t < f.Anys:
			b.WriteRune('*')
		case t < f.Anys+f.Ones:
			b.WriteRune('?')
		default:
			b.WriteRune(alphabet[r.Intn(len(alphabet))])
		}
	}
	return b.String()
}

func oracle(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// TestMatchFuzz matches a bunch of patterns against a bunch of strings.
func TestMatchFuzz(t *testing.T) {
	var (
		pats       = 500
		strsPerPat = 200

		r = rand.New(rand.NewSource(42))
		p = NewFuzz()
		s = NewFuzz()

		matched = 0
	)
	s.NoWildcards()

	for i := 0; i < pats; i++ {
		pat := p.Gen(r)
		re := oracle(pat)
		for j := 0; j < strsPerPat; j++ {
			str := s.Gen(r)
			got := Wildcard(pat, str)
			if want := re.MatchString(str); got != want {
				t.Fatalf("%q against %q: got %v, want %v", pat, str, got, want)
			}
			if got {
				matched++
			}
		}
	}
	if matched == 0 {
		t.Fatal("nothing matched")
	}
}

func TestMatchCases(t *testing.T) {
	tests := []struct {
		pat, s string
		want   bool
	}{
		{"*", "", true},
		{"", "", true},
		{"", "a", false},
		{"A*", "A12", true},
		{"A*", "B12", false},
		{"?1?", "A1B", true},
		{"?1?", "A1", false},
		{"*-*-*", "a-b-c", true},
		{"*x", "xxxy", false},
		{"Ö?", "Öl", true},
	}
	for _, test := range tests {
		if got := Wildcard(test.pat, test.s); got != test.want {
			t.Fatalf("%q against %q: got %v", test.pat, test.s, got)
		}
	}

	m := &Matcher{Any: '*', One: '?', FoldCase: true}
	if !m.Match("ab*", "ABC") {
		t.Fatal("fold")
	}
	if !m.IsPattern("a?") || m.IsPattern("ab") {
		t.Fatal("IsPattern")
	}
}
