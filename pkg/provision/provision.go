// Package provision creates, lists and deletes OAuth applications through a
// provider's developer console. The algorithm is shared; providers differ
// only in the Flow they plug in.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appkeys/cli/pkg/page"
	"github.com/appkeys/cli/pkg/poll"
	"github.com/appkeys/cli/pkg/provider"
	"github.com/appkeys/cli/pkg/selector"
	"github.com/pterm/pterm"
)

var (
	// ErrNameConflict is returned only when a taken name could not be replaced.
	ErrNameConflict = errors.New("application name is already taken")
	// ErrAmbiguousSubmission is reported in Result.Warnings when the console
	// neither confirmed nor rejected the form.
	ErrAmbiguousSubmission = errors.New("submission outcome unclear; verify the application in the console")
	// ErrSecretCaptureExhausted is reported in Result.Warnings when the secret
	// had to be entered by hand.
	ErrSecretCaptureExhausted = errors.New("client secret was not found on the page")
	// ErrSubmissionRejected is wrapped by RejectedError.
	ErrSubmissionRejected = errors.New("submission rejected")
	ErrUnsupported        = errors.New("operation not supported for this provider")
)

// RejectedError carries the console's error text for a failed submission.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("submission rejected: %s", e.Message)
}

func (e *RejectedError) Unwrap() error {
	return ErrSubmissionRejected
}

// AppType is the kind of OAuth client to create.
type AppType string

const (
	AppTypeWeb     AppType = "web"
	AppTypeDesktop AppType = "desktop"
)

// AppConfig describes the application to create. Name is replaced when the
// console reports a conflict and the Renamer supplies another.
type AppConfig struct {
	Name         string
	Description  string
	HomepageURL  string
	Origins      []string
	RedirectURIs []string
	AppType      AppType
	ProjectID    string
}

// CallbackURL is the first redirect URI.
func (c *AppConfig) CallbackURL() string {
	if len(c.RedirectURIs) == 0 {
		return ""
	}
	return c.RedirectURIs[0]
}

// Credential is a created application's client credentials.
type Credential struct {
	Provider     string
	AppName      string
	ClientID     string
	ClientSecret string
	// AppURL is the console page of the application, used for deletion.
	AppURL      string
	HomepageURL string
	ProjectID   string
}

// Result is a successful creation plus any non-fatal problems.
type Result struct {
	Credential Credential
	Warnings   []error
}

// App is an existing application found by List.
type App struct {
	ID   string
	Name string
	URL  string
}

// StepUpHandler clears re-authentication prompts.
type StepUpHandler interface {
	HandleStepUp(ctx context.Context) error
}

// Renamer supplies a replacement for a taken name. An empty name gives up.
type Renamer interface {
	Rename(ctx context.Context, taken string) (string, error)
}

// SecretPrompter asks a human for a secret the page did not reveal.
type SecretPrompter interface {
	ManualSecret(ctx context.Context, appName, clientID string) (string, error)
}

// Timing bounds the workflow's polls.
type Timing struct {
	Submission poll.Config
	Identifier poll.Config
	Secret     poll.Config
	Redirect   poll.Config
	Settle     time.Duration
}

// DefaultTiming is used for real consoles.
func DefaultTiming() Timing {
	half := 500 * time.Millisecond
	return Timing{
		Submission: poll.Config{Interval: half, Attempts: 10},
		Identifier: poll.Config{Interval: half, Attempts: 10},
		Secret:     poll.Config{Interval: half, Attempts: 20},
		Redirect:   poll.Config{Interval: half, Attempts: 20},
		Settle:     time.Second,
	}
}

// Config wires a Workflow.
type Config struct {
	Resolver *selector.Resolver
	Provider *provider.Provider
	Auth     StepUpHandler
	Renamer  Renamer
	Secrets  SecretPrompter
	// Timing defaults to DefaultTiming when nil.
	Timing *Timing
	Logger *pterm.Logger
}

// Workflow runs provider operations on a single page.
type Workflow struct {
	page    page.Page
	res     *selector.Resolver
	prov    *provider.Provider
	flow    Flow
	auth    StepUpHandler
	renamer Renamer
	secrets SecretPrompter
	timing  Timing
	logger  *pterm.Logger
}

// New returns the Workflow for cfg.Provider.
func New(cfg Config) (*Workflow, error) {
	if cfg.Resolver == nil || cfg.Provider == nil {
		return nil, errors.New("provision: resolver and provider are required")
	}
	flow, err := FlowFor(cfg.Provider.ID)
	if err != nil {
		return nil, err
	}
	w := &Workflow{
		page:    cfg.Resolver.Page(),
		res:     cfg.Resolver,
		prov:    cfg.Provider,
		flow:    flow,
		auth:    cfg.Auth,
		renamer: cfg.Renamer,
		secrets: cfg.Secrets,
		timing:  DefaultTiming(),
		logger:  cfg.Logger,
	}
	if cfg.Timing != nil {
		w.timing = *cfg.Timing
	}
	if w.auth == nil {
		w.auth = noStepUp{}
	}
	if w.logger == nil {
		w.logger = &pterm.DefaultLogger
	}
	return w, nil
}

// Provider returns the provider this workflow drives.
func (w *Workflow) Provider() *provider.Provider {
	return w.prov
}

func (w *Workflow) stepUp(ctx context.Context) error {
	return w.auth.HandleStepUp(ctx)
}

func (w *Workflow) settle(ctx context.Context) error {
	return poll.Sleep(ctx, w.timing.Settle)
}

type noStepUp struct{}

func (noStepUp) HandleStepUp(context.Context) error { return nil }
