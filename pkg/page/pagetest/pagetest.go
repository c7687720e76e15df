// Package pagetest provides an in-memory page.Page for tests. Nodes match the
// exact CSS strings listed in their Selectors; there is no selector engine.
package pagetest

import (
	"context"
	"errors"
	"slices"

	"github.com/appkeys/cli/pkg/page"
)

// Page is a scripted page. It is not safe for concurrent use.
type Page struct {
	url   string
	nodes []*Node

	// Visits records every navigation target in order.
	Visits []string
	// Queries counts QueryAll calls per selector.
	Queries map[string]int
	// QueryErr makes QueryAll fail for the given selectors.
	QueryErr map[string]error

	// OnNavigate runs after the URL changes.
	OnNavigate func(p *Page, url string)
	// OnQuery runs before a page-level query is answered.
	OnQuery func(p *Page, css string)

	Scrolls int
}

// New returns an empty page at url.
func New(url string) *Page {
	return &Page{url: url, Queries: map[string]int{}}
}

// Add attaches nodes to the page and returns the first one.
func (p *Page) Add(nodes ...*Node) *Node {
	for _, n := range nodes {
		n.attach(p)
		p.nodes = append(p.nodes, n)
	}
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// Remove detaches n from the page.
func (p *Page) Remove(n *Node) {
	p.nodes = slices.DeleteFunc(p.nodes, func(x *Node) bool { return x == n })
	n.detach()
}

// Reset detaches every node.
func (p *Page) Reset() {
	for _, n := range p.nodes {
		n.detach()
	}
	p.nodes = nil
}

// SetURL changes the URL without running OnNavigate.
func (p *Page) SetURL(u string) {
	p.url = u
}

func (p *Page) Navigate(_ context.Context, url string) error {
	p.Visits = append(p.Visits, url)
	p.url = url
	if p.OnNavigate != nil {
		p.OnNavigate(p, url)
	}
	return nil
}

func (p *Page) URL(context.Context) (string, error) {
	return p.url, nil
}

func (p *Page) QueryAll(_ context.Context, css string) ([]page.Element, error) {
	p.Queries[css]++
	if p.OnQuery != nil {
		p.OnQuery(p, css)
	}
	if err := p.QueryErr[css]; err != nil {
		return nil, err
	}
	return match(p.nodes, css), nil
}

func (p *Page) ScrollToBottom(context.Context) error {
	p.Scrolls++
	return nil
}

func (p *Page) Screenshot(context.Context) ([]byte, error) {
	return []byte("\x89PNG"), nil
}

func match(nodes []*Node, css string) []page.Element {
	var out []page.Element
	for _, n := range nodes {
		if slices.Contains(n.Selectors, css) {
			out = append(out, n)
		}
		out = append(out, match(n.Children, css)...)
	}
	return out
}

// Node is a fake DOM element.
type Node struct {
	Selectors []string
	// Content is the node text; it doubles as the value of form controls.
	Content  string
	Attrs    map[string]string
	Hidden   bool
	Children []*Node

	// OnClick runs after a click is recorded.
	OnClick func(n *Node)
	// OnEnter runs after Enter is pressed in the node.
	OnEnter func(n *Node)

	Clicks int
	Fills  []string

	page     *Page
	detached bool
}

// El builds a visible node with the given text matching selectors.
func El(text string, selectors ...string) *Node {
	return &Node{Content: text, Selectors: selectors, Attrs: map[string]string{}}
}

// Attr sets an attribute and returns n.
func (n *Node) Attr(name, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = map[string]string{}
	}
	n.Attrs[name] = value
	return n
}

// Hide marks n invisible and returns it.
func (n *Node) Hide() *Node {
	n.Hidden = true
	return n
}

// WithChildren nests children under n and returns it.
func (n *Node) WithChildren(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	if n.page != nil {
		for _, c := range children {
			c.attach(n.page)
		}
	}
	return n
}

// Clicked sets OnClick and returns n.
func (n *Node) Clicked(fn func(n *Node)) *Node {
	n.OnClick = fn
	return n
}

// Page returns the page n is attached to.
func (n *Node) Page() *Page {
	return n.page
}

// Detached reports whether n was removed from its page.
func (n *Node) Detached() bool {
	return n.detached
}

func (n *Node) attach(p *Page) {
	n.page = p
	n.detached = false
	for _, c := range n.Children {
		c.attach(p)
	}
}

func (n *Node) detach() {
	n.detached = true
	for _, c := range n.Children {
		c.detach()
	}
}

func (n *Node) check() error {
	if n.detached {
		return page.ErrDetached
	}
	return nil
}

func (n *Node) Visible(context.Context) (bool, error) {
	if err := n.check(); err != nil {
		return false, err
	}
	return !n.Hidden, nil
}

func (n *Node) Text(context.Context) (string, error) {
	if err := n.check(); err != nil {
		return "", err
	}
	return n.Content, nil
}

func (n *Node) Attribute(_ context.Context, name string) (string, bool, error) {
	if err := n.check(); err != nil {
		return "", false, err
	}
	v, ok := n.Attrs[name]
	return v, ok, nil
}

func (n *Node) Click(context.Context) error {
	if err := n.check(); err != nil {
		return err
	}
	if n.Hidden {
		return errors.New("element is not visible")
	}
	n.Clicks++
	if n.OnClick != nil {
		n.OnClick(n)
	}
	return nil
}

func (n *Node) Fill(_ context.Context, value string) error {
	if err := n.check(); err != nil {
		return err
	}
	n.Fills = append(n.Fills, value)
	n.Content = value
	return nil
}

func (n *Node) PressEnter(context.Context) error {
	if err := n.check(); err != nil {
		return err
	}
	if n.OnEnter != nil {
		n.OnEnter(n)
	}
	return nil
}

func (n *Node) QueryAll(_ context.Context, css string) ([]page.Element, error) {
	if err := n.check(); err != nil {
		return nil, err
	}
	return match(n.Children, css), nil
}
