// Package provider holds the per-console configuration the automation needs:
// where the pages live, which environment keys credentials are saved under,
// and the selector table describing each console's UI.
package provider

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/appkeys/cli/pkg/selector"
	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var tables embed.FS

const (
	GitHub = "github"
	Google = "google"
)

// ErrUnknownProvider is returned for an id with no bundled table.
var ErrUnknownProvider = errors.New("unknown provider")

// Intents every provider table must define.
var requiredIntents = []string{
	"login_input",
	"password_input",
	"submit_button",
	"app_name_input",
	"register_button",
	"error_message",
	"client_id",
	"code_element",
}

// EnvKeys names the canonical variables a credential is written under.
type EnvKeys struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Extra        []string `yaml:"extra,omitempty"`
}

// All returns every key in write order.
func (k EnvKeys) All() []string {
	out := []string{k.ClientID, k.ClientSecret}
	return append(out, k.Extra...)
}

// Provider is the immutable configuration of one developer console.
type Provider struct {
	ID           string         `yaml:"id"`
	Title        string         `yaml:"title"`
	BaseURL      string         `yaml:"base_url"`
	ProtectedURL string         `yaml:"protected_url"`
	LoginMarker  string         `yaml:"login_marker"`
	NewAppURL    string         `yaml:"new_app_url"`
	ListURL      string         `yaml:"list_url"`
	CallbackPath string         `yaml:"callback_path"`
	AuthorizeURL string         `yaml:"authorize_url"`
	Env          EnvKeys        `yaml:"env"`
	Intents      selector.Table `yaml:"intents"`
}

// IDs lists the bundled providers.
func IDs() []string {
	return []string{GitHub, Google}
}

// Load returns the bundled provider. When overrideDir is set and contains
// <id>.yaml, intents defined there replace the bundled ones by name.
func Load(id, overrideDir string) (*Provider, error) {
	data, err := tables.ReadFile("tables/" + id + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	p, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s table: %w", id, err)
	}

	if overrideDir != "" {
		path := filepath.Join(overrideDir, id+".yaml")
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var o struct {
				Intents selector.Table `yaml:"intents"`
			}
			if err := yaml.Unmarshal(data, &o); err != nil {
				return nil, fmt.Errorf("failed to parse selector override %s: %w", path, err)
			}
			p.Intents = p.Intents.Merge(o.Intents)
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read selector override %s: %w", path, err)
		}
	}

	if err := p.Intents.Validate(requiredIntents...); err != nil {
		return nil, fmt.Errorf("invalid %s selector table: %w", id, err)
	}
	return p, nil
}

// MustLoad is Load for bundled tables, which are validated by tests.
func MustLoad(id string) *Provider {
	p, err := Load(id, "")
	if err != nil {
		panic(err)
	}
	return p
}

func parse(data []byte) (*Provider, error) {
	var p Provider
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID == "" || p.NewAppURL == "" {
		return nil, errors.New("table is missing id or new_app_url")
	}
	return &p, nil
}

// Absolute resolves href against the provider's base URL.
func (p *Provider) Absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(p.BaseURL, "/") + "/" + strings.TrimLeft(href, "/")
}

// CallbackURL joins base with the provider's default callback path.
func (p *Provider) CallbackURL(base string) string {
	return strings.TrimRight(base, "/") + p.CallbackPath
}

// IsLoginURL reports whether u is the console's sign-in page.
func (p *Provider) IsLoginURL(u string) bool {
	return p.LoginMarker != "" && strings.Contains(u, p.LoginMarker)
}
