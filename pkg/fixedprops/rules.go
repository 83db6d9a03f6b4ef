// Package fixedprops parses --property directives into the replace, append
// and regex rules applied while generating a file.
//
// A directive has the form [filescope:]key[+|~]=value:
//
//	debug=true                     replace the whole line
//	opts+=,c                       append to the value
//	opts~=/,b,/,x,/                regex substitute within the value
//	replicator.properties:port=9   only when generating a matching file
//
// The value {default} removes a rule parsed earlier for the same key and kind.
package fixedprops

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arthur-debert/deploytpl/pkg/errors"
)

// DefaultValue restores the template's own value for a key.
const DefaultValue = "{default}"

// Kind is the rule type.
type Kind int

const (
	Replace Kind = iota
	Append
	Substitute
)

func (k Kind) String() string {
	switch k {
	case Append:
		return "append"
	case Substitute:
		return "substitute"
	}
	return "replace"
}

// Rule is one parsed directive.
type Rule struct {
	// Scope restricts the rule to output files whose path contains it.
	Scope string
	Key   string
	Kind  Kind
	Value string
}

// Match is a compiled substitution.
type Match struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Apply replaces the first match of the pattern in s.
func (m Match) Apply(s string) string {
	loc := m.Pattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	var dst []byte
	dst = m.Pattern.ExpandString(dst, m.Replacement, s, loc)
	return s[:loc[0]] + string(dst) + s[loc[1]:]
}

// Rules holds the active rules for one output file.
type Rules struct {
	replacements map[string]string
	additions    map[string]string
	matches      map[string]Match
}

// NewRules returns an empty rule set.
func NewRules() *Rules {
	return &Rules{
		replacements: make(map[string]string),
		additions:    make(map[string]string),
		matches:      make(map[string]Match),
	}
}

var backref = regexp.MustCompile(`\\(\d)`)

// ParseRule parses a single directive without applying scope filtering.
func ParseRule(directive string) (Rule, error) {
	eq := strings.Index(directive, "=")
	if eq < 0 {
		return Rule{}, errors.MalformedRule(directive, "there should be a key/value pair joined by a single =")
	}
	key, value := directive[:eq], directive[eq+1:]

	var r Rule
	parts := strings.Split(key, ":")
	switch len(parts) {
	case 1:
	case 2:
		r.Scope = parts[0]
		key = parts[1]
	default:
		return Rule{}, errors.MalformedRule(directive, "there may only be a single ':' in the search key")
	}

	switch {
	case strings.HasSuffix(key, "+"):
		r.Kind = Append
		key = key[:len(key)-1]
	case strings.HasSuffix(key, "~"):
		r.Kind = Substitute
		key = key[:len(key)-1]
	}
	if key == "" {
		return Rule{}, errors.MalformedRule(directive, "the key is empty")
	}
	r.Key = key
	r.Value = value

	if r.Kind == Substitute && value != DefaultValue {
		if _, err := compileMatch(value); err != nil {
			return Rule{}, errors.MalformedRule(directive, err.Error())
		}
	}
	return r, nil
}

// Parse parses directives in order for the output file outfile. Scoped rules
// whose scope is not part of outfile are skipped; with an empty outfile every
// scoped rule is skipped. Later directives win.
func Parse(directives []string, outfile string) (*Rules, error) {
	rules := NewRules()
	for _, d := range directives {
		r, err := ParseRule(d)
		if err != nil {
			return nil, err
		}
		if r.Scope != "" && (outfile == "" || !strings.Contains(outfile, r.Scope)) {
			continue
		}
		if err := rules.Add(r); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

// Add activates r, replacing any earlier rule of the same kind for its key.
func (rs *Rules) Add(r Rule) error {
	switch r.Kind {
	case Replace:
		if r.Value == DefaultValue {
			delete(rs.replacements, r.Key)
			return nil
		}
		rs.replacements[r.Key] = r.Value
	case Append:
		if r.Value == DefaultValue {
			delete(rs.additions, r.Key)
			return nil
		}
		rs.additions[r.Key] = r.Value
	case Substitute:
		if r.Value == DefaultValue {
			delete(rs.matches, r.Key)
			return nil
		}
		m, err := compileMatch(r.Value)
		if err != nil {
			return errors.MalformedRule(r.Key+"~="+r.Value, err.Error())
		}
		rs.matches[r.Key] = m
	}
	return nil
}

// Replacement returns the replacement value for key.
func (rs *Rules) Replacement(key string) (string, bool) {
	v, ok := rs.replacements[key]
	return v, ok
}

// Addition returns the suffix appended to key's value.
func (rs *Rules) Addition(key string) (string, bool) {
	v, ok := rs.additions[key]
	return v, ok
}

// Match returns the substitution applied to key's value.
func (rs *Rules) Match(key string) (Match, bool) {
	m, ok := rs.matches[key]
	return m, ok
}

// Len returns the number of active rules.
func (rs *Rules) Len() int {
	return len(rs.replacements) + len(rs.additions) + len(rs.matches)
}

// compileMatch parses /search/replacement/. Empty trailing segments are
// dropped, so /a/b and /a/b/ are the same, but both segments must be present.
func compileMatch(value string) (Match, error) {
	parts := strings.Split(value, "/")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 0 {
		parts = parts[1:]
	}
	if len(parts) != 2 {
		return Match{}, fmt.Errorf("matches must be in the form of /search/replacement/")
	}
	re, err := regexp.Compile(parts[0])
	if err != nil {
		return Match{}, fmt.Errorf("invalid search pattern: %w", err)
	}
	// Literal dollars first, then \1 style references become ${1}
	repl := strings.ReplaceAll(parts[1], "$", "$$")
	return Match{
		Pattern:     re,
		Replacement: backref.ReplaceAllString(repl, "$${$1}"),
	}, nil
}
