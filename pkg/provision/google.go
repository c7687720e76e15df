package provision

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/appkeys/cli/pkg/provider"
	"github.com/pterm/pterm"
)

// GoogleFlow drives the Cloud Console credentials page. The secret is shown
// in the creation dialog, so there is no generation step.
func GoogleFlow() Flow {
	return Flow{
		FormURL: func(p *provider.Provider, cfg *AppConfig) string {
			return withProject(p.NewAppURL, cfg.ProjectID)
		},
		Prepare:  googlePrepare,
		OpenForm: googleOpenForm,
		Fill:     googleFill,

		SuccessIntent:     IntentClientID,
		ConflictPattern:   regexp.MustCompile(`(?i)already (exists|in use)`),
		IdentifierPattern: regexp.MustCompile(`[\w-]+\.apps\.googleusercontent\.com`),
		SecretIntent:      "client_secret",
		SecretPattern:     regexp.MustCompile(`GOCSPX-[\w-]+`),
		MinSecretLen:      20,

		Finish: func(ctx context.Context, w *Workflow, _ *Credential) error {
			w.clickOptional(ctx, "close_dialog")
			return nil
		},
	}
}

func withProject(u, project string) string {
	if project == "" {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "project=" + url.QueryEscape(project)
}

func googlePrepare(ctx context.Context, w *Workflow, cfg *AppConfig) error {
	if err := w.page.Navigate(ctx, withProject(w.prov.NewAppURL, cfg.ProjectID)); err != nil {
		return err
	}
	if err := w.stepUp(ctx); err != nil {
		return err
	}
	if err := w.settle(ctx); err != nil {
		return err
	}

	if cfg.ProjectID == "" {
		cfg.ProjectID = currentProject(ctx, w)
		if cfg.ProjectID == "" {
			return errors.New("no Google Cloud project selected; pass --project-id")
		}
		w.logger.Info("using current project", w.logger.Args("project", cfg.ProjectID))
	} else if currentProject(ctx, w) != cfg.ProjectID {
		if err := selectProject(ctx, w, cfg.ProjectID); err != nil {
			return err
		}
	}
	return configureConsent(ctx, w, cfg)
}

// currentProject reads the project id from the URL, then from the UI.
func currentProject(ctx context.Context, w *Workflow) string {
	if raw, err := w.page.URL(ctx); err == nil {
		if u, err := url.Parse(raw); err == nil {
			if id := u.Query().Get("project"); id != "" {
				return id
			}
		}
	}
	if el := w.res.Find(ctx, "project_indicator"); el != nil {
		if id, ok, err := el.Attribute(ctx, "data-project-id"); err == nil && ok {
			return id
		}
	}
	return ""
}

func selectProject(ctx context.Context, w *Workflow, id string) error {
	w.logger.Info("selecting project", w.logger.Args("project", id))
	if err := w.clickRequired(ctx, "project_picker"); err != nil {
		return err
	}
	if err := w.fillRequired(ctx, "project_search", id); err != nil {
		return err
	}
	if err := w.settle(ctx); err != nil {
		return err
	}
	for _, el := range w.res.FindAll(ctx, "project_item") {
		text, err := el.Text(ctx)
		if err != nil || !strings.Contains(text, id) {
			continue
		}
		if err := el.Click(ctx); err != nil {
			return fmt.Errorf("failed to select project %s: %w", id, err)
		}
		return w.settle(ctx)
	}
	return fmt.Errorf("project %q not found in the project picker", id)
}

// configureConsent fills the minimal consent screen when the project has
// none. An already configured screen shows no audience choice.
func configureConsent(ctx context.Context, w *Workflow, cfg *AppConfig) error {
	consent := withProject(strings.TrimRight(w.prov.BaseURL, "/")+"/apis/credentials/consent", cfg.ProjectID)
	if err := w.page.Navigate(ctx, consent); err != nil {
		return err
	}
	if err := w.settle(ctx); err != nil {
		return err
	}
	if !w.clickOptional(ctx, "consent_external") {
		w.logger.Debug("consent screen already configured")
		return nil
	}

	pterm.Info.Println("Configuring the OAuth consent screen...")
	w.clickOptional(ctx, "consent_save")
	if err := w.settle(ctx); err != nil {
		return err
	}
	w.fillOptional(ctx, "consent_app_name", cfg.Name)
	// the support email is a dropdown preselected with the account address
	w.clickOptional(ctx, "consent_support_email")
	if !w.clickOptional(ctx, "consent_save") {
		pterm.Warning.Println("Could not save the consent screen; finish it in the browser if creation fails.")
	}
	return w.settle(ctx)
}

func googleOpenForm(ctx context.Context, w *Workflow, cfg *AppConfig) error {
	if err := w.clickRequired(ctx, "create_credentials"); err != nil {
		return err
	}
	if err := w.settle(ctx); err != nil {
		return err
	}
	if err := w.clickRequired(ctx, "oauth_client_option"); err != nil {
		return err
	}
	if err := w.settle(ctx); err != nil {
		return err
	}
	typ := "app_type_web"
	if cfg.AppType == AppTypeDesktop {
		typ = "app_type_desktop"
	}
	if err := w.clickRequired(ctx, typ); err != nil {
		return err
	}
	return w.settle(ctx)
}

// googleFill enters the name and, on the first attempt only, the origin and
// redirect chips. Chips stay in the dialog across a rename.
func googleFill(ctx context.Context, w *Workflow, cfg *AppConfig, retry bool) error {
	if err := w.fillRequired(ctx, IntentAppName, cfg.Name); err != nil {
		return err
	}
	if retry || cfg.AppType == AppTypeDesktop {
		return nil
	}
	if err := addChips(ctx, w, "origins_section", "origin_input", cfg.Origins); err != nil {
		return err
	}
	return addChips(ctx, w, "redirects_section", "redirect_input", cfg.RedirectURIs)
}

// addChips enters each value into a chip list, confirming with Enter.
func addChips(ctx context.Context, w *Workflow, section, input string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	w.clickOptional(ctx, section)
	for _, v := range values {
		el, err := w.res.Require(ctx, input)
		if err != nil {
			return err
		}
		if err := el.Fill(ctx, v); err != nil {
			return fmt.Errorf("failed to enter %s: %w", v, err)
		}
		if err := el.PressEnter(ctx); err != nil {
			return fmt.Errorf("failed to confirm %s: %w", v, err)
		}
	}
	return nil
}
