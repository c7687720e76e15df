// Package prompt asks the operator for input. Everything that needs a human
// in the loop goes through the Prompter interface so it can be scripted in
// tests.
package prompt

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/appkeys/cli/pkg/envfile"
	"github.com/pterm/pterm"
)

// Prompter is the interactive prompting capability.
type Prompter interface {
	Text(label, def string) (string, error)
	Secret(label string) (string, error)
	Confirm(label string, def bool) (bool, error)
	Select(label string, options []string, def string) (string, error)
	MultiSelect(label string, options []string) ([]string, error)
}

// Terminal prompts with pterm's interactive printers.
type Terminal struct{}

func (Terminal) Text(label, def string) (string, error) {
	p := pterm.DefaultInteractiveTextInput.WithDefaultText(label)
	if def != "" {
		p = p.WithDefaultValue(def)
	}
	v, err := p.Show()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

func (Terminal) Secret(label string) (string, error) {
	v, err := pterm.DefaultInteractiveTextInput.WithMask("*").WithDefaultText(label).Show()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

func (Terminal) Confirm(label string, def bool) (bool, error) {
	return pterm.DefaultInteractiveConfirm.WithDefaultText(label).WithDefaultValue(def).Show()
}

func (Terminal) Select(label string, options []string, def string) (string, error) {
	p := pterm.DefaultInteractiveSelect.WithOptions(options).WithDefaultText(label)
	if def != "" {
		p = p.WithDefaultOption(def)
	}
	return p.Show()
}

func (Terminal) MultiSelect(label string, options []string) ([]string, error) {
	return pterm.DefaultInteractiveMultiselect.WithOptions(options).WithDefaultText(label).Show()
}

// Operator adapts a Prompter to the workflow's human-in-the-loop hooks.
type Operator struct {
	P Prompter
}

// Rename asks for a replacement name. An empty answer gives up.
func (o Operator) Rename(_ context.Context, taken string) (string, error) {
	return o.P.Text(fmt.Sprintf("%q is taken. Enter a new application name (empty to abort)", taken), "")
}

// ManualSecret asks for a secret copied from the browser window.
func (o Operator) ManualSecret(_ context.Context, appName, clientID string) (string, error) {
	pterm.Info.Printf("Generate or copy the client secret for %s (%s) in the browser.\n", appName, clientID)
	return o.P.Secret("Paste the client secret")
}

const (
	choiceGenerated = "Add new keys with a GENERATED_ prefix (keep old)"
	choiceArchive   = "Archive old keys (# OLD_...) and use standard names"
)

// Decide asks how to handle credentials that already exist in path.
func (o Operator) Decide(path string, existing []string) (envfile.Strategy, error) {
	pterm.Warning.Printf("Credentials already exist in %s (%s).\n", path, strings.Join(existing, ", "))
	choice, err := o.P.Select("How do you want to handle this?", []string{choiceGenerated, choiceArchive}, choiceGenerated)
	if err != nil {
		return envfile.Ask, err
	}
	if choice == choiceArchive {
		return envfile.Archive, nil
	}
	return envfile.Generated, nil
}

// AppName validates the provided name or prompts for one.
func (o Operator) AppName(provided, def string) (string, error) {
	if provided != "" {
		err := validateAppName(provided)
		if err == nil {
			return provided, nil
		}
		pterm.Warning.Printf("Invalid app name '%s': %v\n", provided, err)
	}
	name, err := o.P.Text("Application name", def)
	if err != nil {
		return "", err
	}
	if err := validateAppName(name); err != nil {
		pterm.Warning.Printf("Invalid app name '%s': %v\n", name, err)
		return o.AppName("", def)
	}
	return name, nil
}

// URL validates the provided URL or prompts for one.
func (o Operator) URL(label, provided, def string) (string, error) {
	if provided != "" {
		err := ValidateURL(provided)
		if err == nil {
			return provided, nil
		}
		pterm.Warning.Printf("Invalid %s '%s': %v\n", strings.ToLower(label), provided, err)
	}
	v, err := o.P.Text(label, def)
	if err != nil {
		return "", err
	}
	if err := ValidateURL(v); err != nil {
		pterm.Warning.Printf("Invalid %s '%s': %v\n", strings.ToLower(label), v, err)
		return o.URL(label, "", def)
	}
	return v, nil
}

// Pause blocks until the operator presses Enter.
func (o Operator) Pause(msg string) {
	_, _ = o.P.Text(msg, "")
}

func validateAppName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(s) > 100 {
		return fmt.Errorf("name is longer than 100 characters")
	}
	return nil
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
