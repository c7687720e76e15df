// Package verify sanity-checks OAuth credentials without completing an
// authorization flow: the values must look right, and where the provider
// allows it, the authorize endpoint must recognise the client id.
package verify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appkeys/cli/pkg/provider"
	"github.com/pterm/pterm"
	"golang.org/x/oauth2"
)

// Status is the result of one check.
type Status int

const (
	Pass Status = iota
	Fail
	Inconclusive
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return "inconclusive"
	}
}

// Check is one verification step.
type Check struct {
	Name   string
	Status Status
	Detail string
}

// Report collects the checks for one credential.
type Report struct {
	Checks []Check
}

// OK reports whether no check failed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if c.Status == Fail {
			return false
		}
	}
	return true
}

func (r *Report) add(name string, s Status, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Name: name, Status: s, Detail: fmt.Sprintf(format, args...)})
}

type rules struct {
	idPrefixes   []string
	idSuffix     string
	minSecretLen int
	// online is set when an unknown client id is distinguishable at the
	// authorize endpoint without a registered redirect URI.
	online bool
}

var providerRules = map[string]rules{
	provider.GitHub: {idPrefixes: []string{"Ov23li", "Iv1."}, minSecretLen: 30, online: true},
	provider.Google: {idSuffix: ".apps.googleusercontent.com", minSecretLen: 24},
}

// Verifier runs checks against live providers.
type Verifier struct {
	client *http.Client
	logger *pterm.Logger
}

// New returns a Verifier. A nil client uses one with a 10 second timeout.
func New(client *http.Client, logger *pterm.Logger) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = &pterm.DefaultLogger
	}
	return &Verifier{client: client, logger: logger}
}

// AuthorizeURL returns the provider's authorization URL for clientID.
func AuthorizeURL(p *provider.Provider, clientID, redirectURL string) string {
	cfg := oauth2.Config{
		ClientID:    clientID,
		Endpoint:    oauth2.Endpoint{AuthURL: p.AuthorizeURL},
		RedirectURL: redirectURL,
	}
	return cfg.AuthCodeURL("appkeys-verify")
}

// Verify checks clientID and clientSecret for p.
func (v *Verifier) Verify(ctx context.Context, p *provider.Provider, clientID, clientSecret string) Report {
	var r Report
	rule, ok := providerRules[p.ID]
	if !ok {
		r.add("format", Inconclusive, "no format rules for %s", p.Title)
		return r
	}

	switch {
	case len(rule.idPrefixes) > 0 && !hasAnyPrefix(clientID, rule.idPrefixes):
		r.add("client id", Fail, "unexpected prefix %q", truncate(clientID, 6))
	case rule.idSuffix != "" && !strings.HasSuffix(clientID, rule.idSuffix):
		r.add("client id", Fail, "expected a value ending in %s", rule.idSuffix)
	default:
		r.add("client id", Pass, "format is valid")
	}

	if len(clientSecret) < rule.minSecretLen {
		r.add("client secret", Fail, "too short: %d chars", len(clientSecret))
	} else {
		r.add("client secret", Pass, "format is valid")
	}

	if !r.OK() {
		return r
	}
	if !rule.online {
		r.add("authorize endpoint", Inconclusive, "online verification is not available for %s", p.Title)
		return r
	}
	v.probe(ctx, &r, AuthorizeURL(p, clientID, ""))
	return r
}

func (v *Verifier) probe(ctx context.Context, r *Report, url string) {
	const name = "authorize endpoint"
	v.logger.Debug("probing authorize endpoint", v.logger.Args("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		r.add(name, Inconclusive, "could not build request: %v", err)
		return
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := v.client.Do(req)
	if err != nil {
		r.add(name, Inconclusive, "could not verify: %v", err)
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		r.add(name, Fail, "client id not found")
	case resp.StatusCode >= 400:
		r.add(name, Inconclusive, "HTTP %d", resp.StatusCode)
	case strings.Contains(strings.ToLower(resp.Request.URL.String()), "error"):
		r.add(name, Fail, "provider returned an error for the client id")
	default:
		r.add(name, Pass, "client id is recognized")
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
