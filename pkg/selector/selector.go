// Package selector resolves named UI intents ("the register button", "the
// client id") against a page. Provider consoles change their markup often, so
// every intent carries an ordered list of locators and, optionally, a keyword
// based fallback.
package selector

import (
	"errors"
	"fmt"
	"strings"
)

// ErrElementNotFound is wrapped by NotFoundError.
var ErrElementNotFound = errors.New("element not found")

// NotFoundError reports a required intent that matched nothing.
type NotFoundError struct {
	Intent string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find %q on the page", e.Intent)
}

func (e *NotFoundError) Unwrap() error {
	return ErrElementNotFound
}

// Locator is one way of finding an element: a CSS query optionally narrowed
// to elements whose text contains Text (case-insensitive), or equals it when
// Exact is set.
type Locator struct {
	CSS   string `yaml:"css"`
	Text  string `yaml:"text,omitempty"`
	Exact bool   `yaml:"exact,omitempty"`
}

func (l Locator) String() string {
	if l.Text == "" {
		return l.CSS
	}
	return fmt.Sprintf("%s:has-text(%q)", l.CSS, l.Text)
}

// Fuzzy matches any element of the given tags whose text contains every
// keyword, case-insensitively.
type Fuzzy struct {
	Tags     []string `yaml:"tags"`
	Keywords []string `yaml:"keywords"`
}

// Intent is a named UI target. Candidates are tried in order.
type Intent struct {
	Name       string    `yaml:"-"`
	Candidates []Locator `yaml:"candidates"`
	Fuzzy      *Fuzzy    `yaml:"fuzzy,omitempty"`
}

// Table maps intent names to intents for one provider.
type Table map[string]Intent

// Get returns the named intent, or an intent with no candidates.
func (t Table) Get(name string) Intent {
	in, ok := t[name]
	if !ok {
		return Intent{Name: name}
	}
	in.Name = name
	return in
}

// Has reports whether name is defined.
func (t Table) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// Validate checks that every listed intent exists and has something to try.
func (t Table) Validate(required ...string) error {
	var errs []error
	for _, name := range required {
		in, ok := t[name]
		if !ok {
			errs = append(errs, fmt.Errorf("missing intent %q", name))
			continue
		}
		if len(in.Candidates) == 0 && in.Fuzzy == nil {
			errs = append(errs, fmt.Errorf("intent %q has no locators", name))
		}
		for i, c := range in.Candidates {
			if strings.TrimSpace(c.CSS) == "" {
				errs = append(errs, fmt.Errorf("intent %q candidate %d has no css", name, i))
			}
		}
	}
	return errors.Join(errs...)
}

// Merge returns a copy of t with the intents of other replacing same-named ones.
func (t Table) Merge(other Table) Table {
	out := make(Table, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
