package provision

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/appkeys/cli/pkg/poll"
	"github.com/samber/lo"
)

// maxListPages stops a pager that keeps pointing at itself.
const maxListPages = 50

// List returns the applications on the provider's listing pages.
func (w *Workflow) List(ctx context.Context) ([]App, error) {
	if w.flow.ListPattern == nil {
		return nil, fmt.Errorf("%w: list %s applications", ErrUnsupported, w.prov.Title)
	}
	if err := w.page.Navigate(ctx, w.prov.ListURL); err != nil {
		return nil, err
	}
	if err := w.stepUp(ctx); err != nil {
		return nil, err
	}

	var apps []App
	for range maxListPages {
		apps = append(apps, w.appsOnPage(ctx)...)

		next := w.res.FindVisible(ctx, IntentNextPage)
		if next == nil {
			break
		}
		href, ok, err := next.Attribute(ctx, "href")
		if err != nil || !ok || href == "" {
			break
		}
		w.logger.Debug("following next page", w.logger.Args("href", href))
		if err := w.page.Navigate(ctx, w.prov.Absolute(href)); err != nil {
			return nil, err
		}
	}
	return lo.UniqBy(apps, func(a App) string { return a.URL }), nil
}

func (w *Workflow) appsOnPage(ctx context.Context) []App {
	var apps []App
	for _, el := range w.res.FindAll(ctx, IntentAppLink) {
		href, ok, err := el.Attribute(ctx, "href")
		if err != nil || !ok {
			continue
		}
		path := href
		if u, err := url.Parse(href); err == nil {
			path = u.Path
		}
		if strings.HasSuffix(path, "/new") {
			continue
		}
		m := w.flow.ListPattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		name, _ := el.Text(ctx)
		apps = append(apps, App{
			ID:   m[1],
			Name: strings.TrimSpace(name),
			URL:  w.prov.Absolute(path),
		})
	}
	return apps
}

// Delete removes app through its settings page. It reports false when the
// page has no delete control.
func (w *Workflow) Delete(ctx context.Context, app App) (bool, error) {
	if w.flow.ListPattern == nil {
		return false, fmt.Errorf("%w: delete %s applications", ErrUnsupported, w.prov.Title)
	}
	if err := w.page.Navigate(ctx, app.URL); err != nil {
		return false, err
	}
	if err := w.stepUp(ctx); err != nil {
		return false, err
	}
	if err := w.page.ScrollToBottom(ctx); err != nil {
		w.logger.Debug("scroll failed", w.logger.Args("error", err))
	}
	if err := w.settle(ctx); err != nil {
		return false, err
	}

	if !w.clickOptional(ctx, IntentDelete) {
		w.logger.Warn("no delete button", w.logger.Args("app", app.Name, "url", app.URL))
		return false, nil
	}
	if err := w.settle(ctx); err != nil {
		return false, err
	}

	if input := w.res.FindVisible(ctx, IntentConfirmInput); input != nil {
		if err := input.Fill(ctx, app.Name); err != nil {
			return false, fmt.Errorf("failed to confirm deletion of %s: %w", app.Name, err)
		}
	}
	if !w.clickOptional(ctx, IntentConfirm) {
		w.logger.Debug("no confirm button", w.logger.Args("app", app.Name))
	}

	listPath := w.prov.ListURL
	if u, err := url.Parse(w.prov.ListURL); err == nil {
		listPath = u.Path
	}
	out, err := poll.Until(ctx, w.timing.Redirect, func(ctx context.Context) bool {
		u, err := w.page.URL(ctx)
		return err == nil && strings.Contains(u, listPath)
	})
	if err != nil {
		return false, err
	}
	if out == poll.Matched {
		return true, nil
	}
	// some consoles stay on the page; a closed dialog is all the signal we get
	if w.res.FindVisible(ctx, IntentConfirm) != nil {
		return false, fmt.Errorf("deletion of %s was not confirmed", app.Name)
	}
	return true, nil
}
