// Package authflow gets a browser session into a state where protected
// console pages can be used: it waits for the user to sign in and gets past
// re-authentication ("sudo mode") prompts, switching away from passkeys and
// submitting a password when one was supplied.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appkeys/cli/pkg/page"
	"github.com/appkeys/cli/pkg/poll"
	"github.com/appkeys/cli/pkg/provider"
	"github.com/appkeys/cli/pkg/selector"
	"github.com/pterm/pterm"
)

var (
	ErrLoginTimeout  = errors.New("timed out waiting for login")
	ErrStepUpTimeout = errors.New("timed out waiting for re-authentication")
)

// Intents used by the machine.
const (
	IntentLoginInput      = "login_input"
	IntentLoggedInMarker  = "logged_in_marker"
	IntentPasskey         = "passkey_indicator"
	IntentUsePasswordLink = "use_password_link"
	IntentPasswordInput   = "password_input"
	IntentSubmit          = "submit_button"
)

// State is the session's sign-in state as last observed.
type State int

const (
	Unknown State = iota
	LoggedOut
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged out"
	case LoggedIn:
		return "logged in"
	default:
		return "unknown"
	}
}

// Challenge is the re-authentication prompt currently on screen.
type Challenge int

const (
	None Challenge = iota
	Passkey
	Password
)

func (c Challenge) String() string {
	switch c {
	case Passkey:
		return "passkey"
	case Password:
		return "password"
	default:
		return "none"
	}
}

// Timing bounds the machine's waits.
type Timing struct {
	// Settle is paid before probing for a challenge and after switching to
	// password entry.
	Settle time.Duration
	// Interval is the polling interval for the long human waits.
	Interval   time.Duration
	LoginWait  time.Duration
	StepUpWait time.Duration
	// DetachWait bounds how long an automatically submitted password form
	// has to go away.
	DetachWait     time.Duration
	DetachInterval time.Duration
}

// DefaultTiming is used for real consoles.
func DefaultTiming() Timing {
	return Timing{
		Settle:         time.Second,
		Interval:       time.Second,
		LoginWait:      5 * time.Minute,
		StepUpWait:     5 * time.Minute,
		DetachWait:     10 * time.Second,
		DetachInterval: 500 * time.Millisecond,
	}
}

// Machine drives sign-in for one provider on one page.
type Machine struct {
	page     page.Page
	res      *selector.Resolver
	prov     *provider.Provider
	password string
	timing   Timing
	logger   *pterm.Logger

	state State
}

// Option configures a Machine.
type Option func(*Machine)

// WithPassword enables automatic password submission for step-up prompts.
func WithPassword(pw string) Option {
	return func(m *Machine) { m.password = pw }
}

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) Option {
	return func(m *Machine) { m.timing = t }
}

// WithLogger sets the logger.
func WithLogger(l *pterm.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// New returns a Machine using res to locate the provider's intents.
func New(res *selector.Resolver, prov *provider.Provider, opts ...Option) *Machine {
	m := &Machine{
		page:   res.Page(),
		res:    res,
		prov:   prov,
		timing: DefaultTiming(),
		logger: &pterm.DefaultLogger,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns the last observed sign-in state.
func (m *Machine) State() State {
	return m.state
}

// EnsureLoggedIn opens the provider's protected page and, when the session is
// signed out, waits for the user to sign in in the browser window.
func (m *Machine) EnsureLoggedIn(ctx context.Context) error {
	if err := m.page.Navigate(ctx, m.prov.ProtectedURL); err != nil {
		return err
	}
	if err := poll.Sleep(ctx, m.timing.Settle); err != nil {
		return err
	}

	if m.loggedIn(ctx) {
		m.state = LoggedIn
		m.logger.Info("session restored", m.logger.Args("provider", m.prov.ID))
		return nil
	}

	m.state = LoggedOut
	pterm.Info.Printf("Please log in to %s in the browser window (waiting up to %s)...\n", m.prov.Title, m.timing.LoginWait)
	out, err := poll.Until(ctx, poll.Every(m.timing.Interval, m.timing.LoginWait), m.loggedIn)
	if err != nil {
		return err
	}
	if out != poll.Matched {
		return fmt.Errorf("%w after %s", ErrLoginTimeout, m.timing.LoginWait)
	}
	m.state = LoggedIn
	pterm.Success.Println("Login detected")
	return nil
}

// loggedIn reports false on a sign-in URL or while a login form is showing.
// Otherwise it requires the provider's signed-in marker when the provider
// has one. A marker with an empty content attribute is rendered on
// signed-out pages too and does not count.
func (m *Machine) loggedIn(ctx context.Context) bool {
	u, err := m.page.URL(ctx)
	if err != nil {
		return false
	}
	if m.prov.IsLoginURL(u) {
		return false
	}
	if m.res.FindVisible(ctx, IntentLoginInput) != nil {
		return false
	}
	if !m.res.Table().Has(IntentLoggedInMarker) {
		return true
	}
	marker := m.res.Find(ctx, IntentLoggedInMarker)
	if marker == nil {
		return false
	}
	v, ok, err := marker.Attribute(ctx, "content")
	if err != nil {
		return false
	}
	return !ok || strings.TrimSpace(v) != ""
}

// Probe reports which challenge, if any, is on screen.
func (m *Machine) Probe(ctx context.Context) Challenge {
	if m.res.FindVisible(ctx, IntentPasskey) != nil {
		return Passkey
	}
	if m.res.FindVisible(ctx, IntentPasswordInput) != nil {
		return Password
	}
	return None
}

// HandleStepUp clears a re-authentication prompt if one is showing. With a
// password configured the form is submitted automatically; otherwise the user
// has StepUpWait to complete it in the browser.
func (m *Machine) HandleStepUp(ctx context.Context) error {
	if err := poll.Sleep(ctx, m.timing.Settle); err != nil {
		return err
	}

	if m.Probe(ctx) == Passkey {
		m.logger.Info("passkey prompt detected, switching to password")
		if link := m.res.FindVisible(ctx, IntentUsePasswordLink); link != nil {
			if err := link.Click(ctx); err != nil {
				m.logger.Warn("could not switch to password entry", m.logger.Args("error", err))
			} else if err := poll.Sleep(ctx, m.timing.Settle); err != nil {
				return err
			}
		} else {
			m.logger.Warn("no link to switch away from passkey found")
		}
	}

	input := m.res.FindVisible(ctx, IntentPasswordInput)
	if input == nil {
		return nil
	}

	if m.password != "" {
		return m.submitPassword(ctx, input)
	}

	pterm.Warning.Printf("Re-authentication required. Complete it in the browser window (waiting up to %s)...\n", m.timing.StepUpWait)
	out, err := poll.Until(ctx, poll.Every(m.timing.Interval, m.timing.StepUpWait), m.passwordGone)
	if err != nil {
		return err
	}
	if out != poll.Matched {
		return fmt.Errorf("%w after %s", ErrStepUpTimeout, m.timing.StepUpWait)
	}
	pterm.Success.Println("Re-authentication complete")
	return nil
}

func (m *Machine) submitPassword(ctx context.Context, input page.Element) error {
	m.logger.Info("submitting password for re-authentication")
	if err := input.Fill(ctx, m.password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	if btn := m.res.FindVisible(ctx, IntentSubmit); btn != nil {
		if err := btn.Click(ctx); err != nil {
			return fmt.Errorf("failed to submit password: %w", err)
		}
	} else if err := input.PressEnter(ctx); err != nil {
		return fmt.Errorf("failed to submit password: %w", err)
	}

	out, err := poll.Until(ctx, poll.Every(m.timing.DetachInterval, m.timing.DetachWait), m.passwordGone)
	if err != nil {
		return err
	}
	if out != poll.Matched {
		// A slow redirect is common; the next step will surface a real failure.
		m.logger.Warn("password form still present after submit", m.logger.Args("waited", m.timing.DetachWait))
	}
	return nil
}

func (m *Machine) passwordGone(ctx context.Context) bool {
	return m.res.FindVisible(ctx, IntentPasswordInput) == nil
}
