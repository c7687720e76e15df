package provision

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/appkeys/cli/pkg/page"
	"github.com/appkeys/cli/pkg/poll"
	"github.com/appkeys/cli/pkg/selector"
)

// generateSecret asks the console for a new client secret. The button is
// found structurally, then by keywords, then as the submit control of a
// secret form.
func (w *Workflow) generateSecret(ctx context.Context) error {
	if err := w.page.ScrollToBottom(ctx); err != nil {
		w.logger.Debug("scroll failed", w.logger.Args("error", err))
	}
	if err := w.settle(ctx); err != nil {
		return err
	}

	btn := w.res.Resolve(ctx, IntentGenerate)
	if btn == nil {
		if form := w.res.Find(ctx, IntentSecretForm); form != nil {
			btn = w.res.FindIn(ctx, form, IntentFormSubmit)
		}
	}
	if btn == nil {
		return &selector.NotFoundError{Intent: IntentGenerate}
	}

	w.logger.Info("generating client secret")
	if err := btn.Click(ctx); err != nil {
		return fmt.Errorf("failed to click generate secret: %w", err)
	}
	return w.settle(ctx)
}

// captureSecret polls for the secret. An empty result means the bound was
// exhausted.
func (w *Workflow) captureSecret(ctx context.Context, clientID string) (string, error) {
	intent := w.flow.SecretIntent
	if intent == "" {
		intent = IntentCodeElement
	}
	secret, _, err := poll.Value(ctx, w.timing.Secret, func(ctx context.Context) (string, bool) {
		s := PickSecret(ctx, w.res.FindAll(ctx, intent), clientID, w.flow.MinSecretLen, w.flow.SecretPattern)
		return s, s != ""
	})
	return secret, err
}

// PickSecret returns the text of the first element that differs from the
// client id and is longer than minLen. A non-nil pattern narrows each text to
// its first match.
func PickSecret(ctx context.Context, els []page.Element, clientID string, minLen int, pattern *regexp.Regexp) string {
	for _, el := range els {
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if pattern != nil {
			if m := pattern.FindString(text); m != "" {
				text = m
			}
		}
		if text == clientID || len(text) <= minLen {
			continue
		}
		return text
	}
	return ""
}
