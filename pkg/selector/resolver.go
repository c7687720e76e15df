package selector

import (
	"context"
	"strings"

	"github.com/appkeys/cli/pkg/page"
	"github.com/pterm/pterm"
)

// Resolver finds intents on a page. Absence is reported as a nil element;
// probe failures (detached nodes, transient CDP errors) are logged at debug
// level and count as no match.
type Resolver struct {
	page   page.Page
	table  Table
	logger *pterm.Logger
}

// NewResolver returns a Resolver over p using the intents in t.
func NewResolver(p page.Page, t Table, logger *pterm.Logger) *Resolver {
	if logger == nil {
		logger = &pterm.DefaultLogger
	}
	return &Resolver{page: p, table: t, logger: logger}
}

// Table returns the intents this resolver was built with.
func (r *Resolver) Table() Table {
	return r.table
}

// Page returns the page being queried.
func (r *Resolver) Page() page.Page {
	return r.page
}

// Find returns the first element matched by the first candidate that matches
// anything, visible or not.
func (r *Resolver) Find(ctx context.Context, name string) page.Element {
	in := r.table.Get(name)
	for _, loc := range in.Candidates {
		if els := r.query(ctx, r.page, loc); len(els) > 0 {
			return els[0]
		}
	}
	return nil
}

// FindVisible returns the first visible element, trying candidates in order.
// A candidate whose matches are all hidden is skipped.
func (r *Resolver) FindVisible(ctx context.Context, name string) page.Element {
	in := r.table.Get(name)
	for _, loc := range in.Candidates {
		for _, el := range r.query(ctx, r.page, loc) {
			if r.visible(ctx, el) {
				return el
			}
		}
	}
	return nil
}

// FindAll returns every element matched by any candidate, in candidate order.
func (r *Resolver) FindAll(ctx context.Context, name string) []page.Element {
	in := r.table.Get(name)
	var out []page.Element
	for _, loc := range in.Candidates {
		out = append(out, r.query(ctx, r.page, loc)...)
	}
	return out
}

// FindIn is FindVisible scoped to the descendants of root.
func (r *Resolver) FindIn(ctx context.Context, root page.Element, name string) page.Element {
	in := r.table.Get(name)
	for _, loc := range in.Candidates {
		for _, el := range r.query(ctx, root, loc) {
			if r.visible(ctx, el) {
				return el
			}
		}
	}
	return nil
}

// FindFuzzy scans the fuzzy tags for an element whose text contains every
// keyword. Inputs are matched on their value attribute. Visibility is not
// checked.
func (r *Resolver) FindFuzzy(ctx context.Context, f *Fuzzy) page.Element {
	if f == nil || len(f.Keywords) == 0 {
		return nil
	}
	for _, tag := range f.Tags {
		els, err := r.page.QueryAll(ctx, tag)
		if err != nil {
			r.logger.Debug("fuzzy probe failed", r.logger.Args("tag", tag, "error", err))
			continue
		}
		for _, el := range els {
			text, err := fuzzyText(ctx, tag, el)
			if err != nil {
				continue
			}
			if containsAll(text, f.Keywords) {
				return el
			}
		}
	}
	return nil
}

// Resolve is FindVisible falling back to the intent's fuzzy matcher.
func (r *Resolver) Resolve(ctx context.Context, name string) page.Element {
	if el := r.FindVisible(ctx, name); el != nil {
		return el
	}
	in := r.table.Get(name)
	if in.Fuzzy != nil {
		if el := r.FindFuzzy(ctx, in.Fuzzy); el != nil {
			r.logger.Debug("resolved by keyword fallback", r.logger.Args("intent", name))
			return el
		}
	}
	return nil
}

// Require is Resolve that reports absence as a *NotFoundError.
func (r *Resolver) Require(ctx context.Context, name string) (page.Element, error) {
	if el := r.Resolve(ctx, name); el != nil {
		return el, nil
	}
	return nil, &NotFoundError{Intent: name}
}

// TextOf returns the trimmed text of the first visible match of name.
func (r *Resolver) TextOf(ctx context.Context, name string) (string, bool) {
	el := r.FindVisible(ctx, name)
	if el == nil {
		return "", false
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(text), true
}

type queryer interface {
	QueryAll(ctx context.Context, css string) ([]page.Element, error)
}

func (r *Resolver) query(ctx context.Context, root queryer, loc Locator) []page.Element {
	els, err := root.QueryAll(ctx, loc.CSS)
	if err != nil {
		r.logger.Debug("selector probe failed", r.logger.Args("selector", loc.String(), "error", err))
		return nil
	}
	if loc.Text == "" {
		return els
	}
	var out []page.Element
	for _, el := range els {
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		if textMatches(text, loc.Text, loc.Exact) {
			out = append(out, el)
		}
	}
	return out
}

func fuzzyText(ctx context.Context, tag string, el page.Element) (string, error) {
	if tag != "input" {
		return el.Text(ctx)
	}
	v, _, err := el.Attribute(ctx, "value")
	return v, err
}

func (r *Resolver) visible(ctx context.Context, el page.Element) bool {
	ok, err := el.Visible(ctx)
	return err == nil && ok
}

func textMatches(text, want string, exact bool) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	want = strings.ToLower(strings.TrimSpace(want))
	if exact {
		return text == want
	}
	return strings.Contains(text, want)
}

func containsAll(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, k := range keywords {
		if !strings.Contains(text, strings.ToLower(k)) {
			return false
		}
	}
	return true
}
