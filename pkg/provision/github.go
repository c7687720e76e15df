package provision

import (
	"context"
	"regexp"
	"strings"
)

// GitHubFlow drives github.com/settings/applications.
func GitHubFlow() Flow {
	return Flow{
		Fill: func(ctx context.Context, w *Workflow, cfg *AppConfig, _ bool) error {
			if err := w.fillRequired(ctx, IntentAppName, cfg.Name); err != nil {
				return err
			}
			if err := w.fillRequired(ctx, "homepage_input", cfg.HomepageURL); err != nil {
				return err
			}
			w.fillOptional(ctx, "description_input", cfg.Description)
			return w.fillRequired(ctx, "callback_input", cfg.CallbackURL())
		},
		Succeeded: func(u string) bool {
			return strings.Contains(u, "/settings/applications/") && !strings.Contains(u, "/new")
		},
		ConflictPattern: regexp.MustCompile(`(?i)already taken|name`),
		GenerateSecret:  true,
		SecretIntent:    IntentCodeElement,
		MinSecretLen:    30,
		ListPattern:     regexp.MustCompile(`/settings/applications/(\d+)/?$`),
	}
}
