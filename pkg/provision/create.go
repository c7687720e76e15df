package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/appkeys/cli/pkg/poll"
	"github.com/appkeys/cli/pkg/selector"
	"github.com/pterm/pterm"
)

type outcomeKind int

const (
	pending outcomeKind = iota
	succeeded
	nameConflict
	rejected
	ambiguous
)

type submission struct {
	kind    outcomeKind
	message string
}

// Create registers a new application and returns its credentials. cfg.Name
// is updated in place when the console rejects it as taken and the Renamer
// supplies a replacement.
func (w *Workflow) Create(ctx context.Context, cfg *AppConfig) (*Result, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, errors.New("application name is required")
	}
	res := &Result{}

	if w.flow.Prepare != nil {
		if err := w.flow.Prepare(ctx, w, cfg); err != nil {
			return nil, err
		}
	}
	if err := w.openForm(ctx, cfg); err != nil {
		return nil, err
	}

	for retry := false; ; retry = true {
		sub, err := w.submit(ctx, cfg, retry)
		if err != nil {
			return nil, err
		}
		if sub.kind == succeeded {
			break
		}
		if sub.kind == ambiguous {
			w.logger.Warn("no success or error signal after submit", w.logger.Args("app", cfg.Name))
			res.Warnings = append(res.Warnings, ErrAmbiguousSubmission)
			break
		}
		if sub.kind == rejected {
			return nil, &RejectedError{Message: sub.message}
		}

		pterm.Warning.Printf("The name %q is already taken: %s\n", cfg.Name, sub.message)
		if w.renamer == nil {
			return nil, fmt.Errorf("%w: %q", ErrNameConflict, cfg.Name)
		}
		name, err := w.renamer.Rename(ctx, cfg.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrNameConflict, cfg.Name, err)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: %q", ErrNameConflict, cfg.Name)
		}
		w.logger.Info("retrying with new name", w.logger.Args("name", name))
		cfg.Name = name
	}

	id, err := w.readIdentifier(ctx)
	if err != nil {
		return nil, err
	}
	w.logger.Info("application created", w.logger.Args("app", cfg.Name, "client_id", id))

	if w.flow.GenerateSecret {
		if err := w.generateSecret(ctx); err != nil {
			return nil, err
		}
		if err := w.stepUp(ctx); err != nil {
			return nil, err
		}
	}

	secret, err := w.captureSecret(ctx, id)
	if err != nil {
		return nil, err
	}
	if secret == "" {
		res.Warnings = append(res.Warnings, ErrSecretCaptureExhausted)
		pterm.Warning.Println("Could not read the client secret from the page. Copy it from the browser window.")
		if w.secrets != nil {
			secret, err = w.secrets.ManualSecret(ctx, cfg.Name, id)
			if err != nil {
				return nil, fmt.Errorf("failed to read client secret: %w", err)
			}
		}
		secret = strings.TrimSpace(secret)
		if secret == "" {
			return nil, fmt.Errorf("%w and none was entered", ErrSecretCaptureExhausted)
		}
	}

	appURL, _ := w.page.URL(ctx)
	res.Credential = Credential{
		Provider:     w.prov.ID,
		AppName:      cfg.Name,
		ClientID:     id,
		ClientSecret: secret,
		AppURL:       appURL,
		HomepageURL:  cfg.HomepageURL,
		ProjectID:    cfg.ProjectID,
	}

	if w.flow.Finish != nil {
		if err := w.flow.Finish(ctx, w, &res.Credential); err != nil {
			w.logger.Warn("could not tidy up after creation", w.logger.Args("error", err))
		}
	}
	return res, nil
}

func (w *Workflow) openForm(ctx context.Context, cfg *AppConfig) error {
	url := w.prov.NewAppURL
	if w.flow.FormURL != nil {
		url = w.flow.FormURL(w.prov, cfg)
	}
	w.logger.Info("opening creation form", w.logger.Args("url", url))
	if err := w.page.Navigate(ctx, url); err != nil {
		return err
	}
	if err := w.stepUp(ctx); err != nil {
		return err
	}
	if w.flow.OpenForm != nil {
		return w.flow.OpenForm(ctx, w, cfg)
	}
	return nil
}

// submit fills and submits the form once and classifies the console's
// response within the submission bound.
func (w *Workflow) submit(ctx context.Context, cfg *AppConfig, retry bool) (submission, error) {
	if w.flow.Fill != nil {
		if err := w.flow.Fill(ctx, w, cfg, retry); err != nil {
			return submission{}, err
		}
	}
	btn, err := w.res.Require(ctx, IntentRegister)
	if err != nil {
		return submission{}, err
	}
	if err := btn.Click(ctx); err != nil {
		return submission{}, fmt.Errorf("failed to submit form: %w", err)
	}

	var lastRejection string
	sub, out, err := poll.Value(ctx, w.timing.Submission, func(ctx context.Context) (submission, bool) {
		s := w.classify(ctx)
		if s.kind == rejected {
			// Validation messages can flash before a redirect; only a
			// persistent one counts.
			lastRejection = s.message
			return s, false
		}
		return s, s.kind != pending
	})
	if err != nil {
		return submission{}, err
	}
	if out == poll.Matched {
		return sub, nil
	}
	if lastRejection != "" {
		return submission{kind: rejected, message: lastRejection}, nil
	}
	return submission{kind: ambiguous}, nil
}

func (w *Workflow) classify(ctx context.Context) submission {
	if w.flow.Succeeded != nil {
		if u, err := w.page.URL(ctx); err == nil && w.flow.Succeeded(u) {
			return submission{kind: succeeded}
		}
	}
	if w.flow.SuccessIntent != "" && w.res.FindVisible(ctx, w.flow.SuccessIntent) != nil {
		return submission{kind: succeeded}
	}
	if text, ok := w.res.TextOf(ctx, IntentError); ok && text != "" {
		if w.flow.ConflictPattern != nil && w.flow.ConflictPattern.MatchString(text) {
			return submission{kind: nameConflict, message: text}
		}
		return submission{kind: rejected, message: text}
	}
	return submission{kind: pending}
}

func (w *Workflow) readIdentifier(ctx context.Context) (string, error) {
	id, out, err := poll.Value(ctx, w.timing.Identifier, func(ctx context.Context) (string, bool) {
		if id := w.scanIdentifier(ctx, IntentClientID); id != "" {
			return id, true
		}
		if w.flow.IdentifierPattern != nil {
			if id := w.scanIdentifier(ctx, IntentCodeElement); id != "" {
				return id, true
			}
		}
		return "", false
	})
	if err != nil {
		return "", err
	}
	if out != poll.Matched {
		return "", &selector.NotFoundError{Intent: IntentClientID}
	}
	return id, nil
}

func (w *Workflow) scanIdentifier(ctx context.Context, intent string) string {
	for _, el := range w.res.FindAll(ctx, intent) {
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if p := w.flow.IdentifierPattern; p != nil {
			if m := p.FindString(text); m != "" {
				return m
			}
			continue
		}
		return text
	}
	return ""
}

// fillRequired fills a required form field.
func (w *Workflow) fillRequired(ctx context.Context, intent, value string) error {
	el, err := w.res.Require(ctx, intent)
	if err != nil {
		return err
	}
	if err := el.Fill(ctx, value); err != nil {
		return fmt.Errorf("failed to fill %s: %w", intent, err)
	}
	return nil
}

// fillOptional fills a field when both the field and a value are present.
func (w *Workflow) fillOptional(ctx context.Context, intent, value string) {
	if value == "" {
		return
	}
	el := w.res.FindVisible(ctx, intent)
	if el == nil {
		w.logger.Debug("optional field not found", w.logger.Args("intent", intent))
		return
	}
	if err := el.Fill(ctx, value); err != nil {
		w.logger.Warn("could not fill optional field", w.logger.Args("intent", intent, "error", err))
	}
}

// clickOptional clicks an element when present and reports whether it did.
func (w *Workflow) clickOptional(ctx context.Context, intent string) bool {
	el := w.res.FindVisible(ctx, intent)
	if el == nil {
		return false
	}
	if err := el.Click(ctx); err != nil {
		w.logger.Warn("click failed", w.logger.Args("intent", intent, "error", err))
		return false
	}
	return true
}

// clickRequired clicks an element that must exist.
func (w *Workflow) clickRequired(ctx context.Context, intent string) error {
	el, err := w.res.Require(ctx, intent)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("failed to click %s: %w", intent, err)
	}
	return nil
}
