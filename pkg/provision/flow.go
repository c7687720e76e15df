package provision

import (
	"context"
	"fmt"
	"regexp"

	"github.com/appkeys/cli/pkg/provider"
)

// Intents shared by every flow.
const (
	IntentAppName      = "app_name_input"
	IntentRegister     = "register_button"
	IntentError        = "error_message"
	IntentClientID     = "client_id"
	IntentCodeElement  = "code_element"
	IntentGenerate     = "generate_secret"
	IntentSecretForm   = "secret_form"
	IntentFormSubmit   = "form_submit"
	IntentAppLink      = "app_link"
	IntentNextPage     = "next_page"
	IntentDelete       = "delete_button"
	IntentConfirmInput = "confirm_delete_input"
	IntentConfirm      = "confirm_delete_button"
)

// Flow is the provider-specific part of the workflow. Hooks may be nil.
type Flow struct {
	// FormURL returns the creation page for cfg; defaults to the provider's
	// NewAppURL.
	FormURL func(p *provider.Provider, cfg *AppConfig) string
	// Prepare runs once before the creation form is opened.
	Prepare func(ctx context.Context, w *Workflow, cfg *AppConfig) error
	// OpenForm runs after navigating to the creation page.
	OpenForm func(ctx context.Context, w *Workflow, cfg *AppConfig) error
	// Fill populates the form. It runs again after every rename with retry
	// set, when only the name needs to change.
	Fill func(ctx context.Context, w *Workflow, cfg *AppConfig, retry bool) error
	// Succeeded inspects the URL after submission.
	Succeeded func(url string) bool
	// SuccessIntent marks success when it becomes visible.
	SuccessIntent string
	// ConflictPattern matches error text reporting a taken name.
	ConflictPattern *regexp.Regexp

	// IdentifierPattern, when set, extracts the client id from element text
	// and enables a scan of code elements as a fallback.
	IdentifierPattern *regexp.Regexp
	// GenerateSecret is set for consoles that only reveal a secret on request.
	GenerateSecret bool
	SecretIntent   string
	SecretPattern  *regexp.Regexp
	// MinSecretLen is exclusive: a secret must be longer.
	MinSecretLen int

	// Finish runs after the credential has been read.
	Finish func(ctx context.Context, w *Workflow, cred *Credential) error

	// ListPattern extracts the numeric application id from a listing link.
	// Listing and deletion are unsupported when it is nil.
	ListPattern *regexp.Regexp
}

// FlowFor returns the flow for a provider id.
func FlowFor(id string) (Flow, error) {
	switch id {
	case provider.GitHub:
		return GitHubFlow(), nil
	case provider.Google:
		return GoogleFlow(), nil
	default:
		return Flow{}, fmt.Errorf("%w: %s", provider.ErrUnknownProvider, id)
	}
}
