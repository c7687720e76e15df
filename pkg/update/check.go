// Package update tells the operator when a newer appkeys release exists.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/pterm/pterm"
)

const (
	DefaultReleasesAPI = "https://api.github.com/repos/appkeys/cli/releases"
	DefaultFrequency   = 24 * time.Hour

	userAgent      = "appkeys/update-check"
	cacheRelPath   = "appkeys/update-check.json"
	requestTimeout = 3 * time.Second
)

// Cache throttles checks between runs.
type Cache struct {
	LastChecked      time.Time `json:"last_checked"`
	LastShownVersion string    `json:"last_shown_version"`
}

// Release is the newest stable release.
type Release struct {
	Tag string
	URL string
}

// Checker compares the running version against published releases.
type Checker struct {
	ReleasesURL string
	Client      *http.Client
	CachePath   string
	Frequency   time.Duration
	Now         func() time.Time
}

// NewChecker returns a Checker configured from APPKEYS_RELEASES_URL and
// APPKEYS_UPDATE_CHECK_FREQUENCY.
func NewChecker() *Checker {
	c := &Checker{
		ReleasesURL: DefaultReleasesAPI,
		Client:      http.DefaultClient,
		CachePath:   filepath.Join(xdgCacheDir(), cacheRelPath),
		Frequency:   DefaultFrequency,
		Now:         func() time.Time { return time.Now().UTC() },
	}
	if u := os.Getenv("APPKEYS_RELEASES_URL"); u != "" {
		c.ReleasesURL = u
	}
	if f := os.Getenv("APPKEYS_UPDATE_CHECK_FREQUENCY"); f != "" {
		if d, err := time.ParseDuration(f); err == nil && d > 0 {
			c.Frequency = d
		}
	}
	return c
}

// Check returns the newer release, or nil when current is up to date, the
// check is throttled, or anything fails.
func (c *Checker) Check(ctx context.Context, current string) *Release {
	if !isSemverLike(current) {
		return nil
	}
	cache, _ := loadCache(c.CachePath)
	now := c.Now()
	if !cache.LastChecked.IsZero() && now.Sub(cache.LastChecked) < c.Frequency {
		return nil
	}
	cache.LastChecked = now
	defer func() { _ = saveCache(c.CachePath, cache) }()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	latest, err := c.fetchLatest(ctx)
	if err != nil {
		return nil
	}
	newer, err := isNewerVersion(current, latest.Tag)
	if err != nil || !newer {
		return nil
	}
	cache.LastShownVersion = latest.Tag
	return latest
}

// MaybeShowMessage prints an upgrade banner when a newer release exists. It
// never fails the command.
func MaybeShowMessage(ctx context.Context, current string) {
	defer func() { _ = recover() }()

	if os.Getenv("APPKEYS_NO_UPDATE_CHECK") == "1" || invokedTrivialCommand(os.Args[1:]) {
		return
	}
	if r := NewChecker().Check(ctx, current); r != nil {
		printUpgradeMessage(current, r)
	}
}

func normalizeSemver(v string) string {
	v = strings.TrimSpace(v)
	return strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
}

func isSemverLike(v string) bool {
	v = normalizeSemver(v)
	if v == "" {
		return false
	}
	_, err := semver.NewVersion(v)
	return err == nil
}

// isNewerVersion reports whether latest > current using semver rules.
func isNewerVersion(current, latest string) (bool, error) {
	c, l := normalizeSemver(current), normalizeSemver(latest)
	if c == "" || l == "" {
		return false, errors.New("non-semver version")
	}
	cv, err := semver.NewVersion(c)
	if err != nil {
		return false, err
	}
	lv, err := semver.NewVersion(l)
	if err != nil {
		return false, err
	}
	return lv.GreaterThan(cv), nil
}

// fetchLatest returns the first stable release; the API lists newest first.
func (c *Checker) fetchLatest(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ReleasesURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var releases []struct {
		TagName    string `json:"tag_name"`
		HTMLURL    string `json:"html_url"`
		Draft      bool   `json:"draft"`
		Prerelease bool   `json:"prerelease"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, err
	}
	for _, r := range releases {
		if r.Draft || r.Prerelease || r.TagName == "" {
			continue
		}
		return &Release{Tag: r.TagName, URL: r.HTMLURL}, nil
	}
	return nil, errors.New("no stable releases found")
}

func printUpgradeMessage(current string, r *Release) {
	pterm.Println()
	pterm.Info.Printf("A new release of appkeys is available: %s → %s\n",
		strings.TrimPrefix(current, "v"), strings.TrimPrefix(r.Tag, "v"))
	if r.URL != "" {
		pterm.Info.Printf("Release notes: %s\n", r.URL)
	}
	pterm.Info.Printf("To upgrade, run: %s\n", suggestUpgradeCommand())
}

func xdgCacheDir() string {
	if d := os.Getenv("XDG_CACHE_HOME"); d != "" {
		return d
	}
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".cache")
	}
	return "."
}

func loadCache(path string) (Cache, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Cache{}, nil
		}
		return Cache{}, err
	}
	var c Cache
	if err := json.Unmarshal(b, &c); err != nil {
		return Cache{}, err
	}
	return c, nil
}

func saveCache(path string, c Cache) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// suggestUpgradeCommand infers how appkeys was installed from the path of
// the running binary.
func suggestUpgradeCommand() string {
	var candidates []string
	if exe, err := os.Executable(); err == nil && exe != "" {
		if real, err := filepath.EvalSymlinks(exe); err == nil && real != "" {
			exe = real
		}
		candidates = append(candidates, exe)
	}
	if which, err := exec.LookPath("appkeys"); err == nil && which != "" {
		candidates = append(candidates, which)
	}
	return upgradeCommandFor(candidates)
}

func upgradeCommandFor(paths []string) string {
	for _, p := range paths {
		p = strings.ToLower(filepath.ToSlash(p))
		if strings.Contains(p, "homebrew") || strings.Contains(p, "/cellar/") {
			return "brew upgrade appkeys"
		}
	}
	return "go install github.com/appkeys/cli/cmd/appkeys@latest"
}

// invokedTrivialCommand reports whether args are a help, completion or
// version invocation.
func invokedTrivialCommand(args []string) bool {
	for _, a := range args {
		if a == "--version" || a == "-v" || a == "help" || a == "completion" || a == "--help" || a == "-h" {
			return true
		}
	}
	return false
}
