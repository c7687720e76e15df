// Package page describes the small slice of browser automation the tool needs
// and adapts go-rod to it. Everything above this package talks to Page and
// Element so flows can be exercised against an in-memory page in tests.
package page

import (
	"context"
	"errors"
)

// ErrDetached is returned when an element is no longer attached to the page.
var ErrDetached = errors.New("element is detached from the page")

// Page is a single browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	QueryAll(ctx context.Context, css string) ([]Element, error)
	ScrollToBottom(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// Element is a DOM node on a Page.
type Element interface {
	Visible(ctx context.Context) (bool, error)
	// Text is the visible text of the node; for form controls it is the value.
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error
	// Fill replaces the current value of a form control.
	Fill(ctx context.Context, value string) error
	PressEnter(ctx context.Context) error
	QueryAll(ctx context.Context, css string) ([]Element, error)
}
