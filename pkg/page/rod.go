package page

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// navigateTimeout bounds a single navigation including the load event.
const navigateTimeout = 60 * time.Second

// RodPage adapts a *rod.Page.
type RodPage struct {
	p *rod.Page
}

// NewRodPage wraps p.
func NewRodPage(p *rod.Page) *RodPage {
	return &RodPage{p: p}
}

// Raw exposes the underlying rod page.
func (r *RodPage) Raw() *rod.Page {
	return r.p
}

func (r *RodPage) Navigate(ctx context.Context, url string) error {
	p := r.p.Context(ctx).Timeout(navigateTimeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	// Consoles keep long-lived connections open, so a missed load event is not fatal.
	_ = p.WaitLoad()
	return nil
}

func (r *RodPage) URL(ctx context.Context) (string, error) {
	info, err := r.p.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page url: %w", err)
	}
	return info.URL, nil
}

func (r *RodPage) QueryAll(ctx context.Context, css string) ([]Element, error) {
	els, err := r.p.Context(ctx).Elements(css)
	if err != nil {
		return nil, err
	}
	return wrapElements(els), nil
}

func (r *RodPage) ScrollToBottom(ctx context.Context) error {
	_, err := r.p.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (r *RodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return r.p.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// RodElement adapts a *rod.Element.
type RodElement struct {
	el *rod.Element
}

func wrapElements(els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &RodElement{el: el})
	}
	return out
}

func (e *RodElement) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *RodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *RodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *RodElement) Click(ctx context.Context) error {
	el := e.el.Context(ctx)
	_ = el.ScrollIntoView()
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *RodElement) Fill(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (e *RodElement) PressEnter(ctx context.Context) error {
	return e.el.Context(ctx).Type(input.Enter)
}

func (e *RodElement) QueryAll(ctx context.Context, css string) ([]Element, error) {
	els, err := e.el.Context(ctx).Elements(css)
	if err != nil {
		return nil, err
	}
	return wrapElements(els), nil
}
