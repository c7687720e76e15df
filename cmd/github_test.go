package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/appkeys/cli/pkg/audit"
	"github.com/appkeys/cli/pkg/envfile"
	"github.com/appkeys/cli/pkg/provider"
	"github.com/appkeys/cli/pkg/provision"
	"github.com/appkeys/cli/pkg/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FakeVerifier implements Verifier.
type FakeVerifier struct {
	Calls []string
	Fail  bool
}

func (f *FakeVerifier) Verify(_ context.Context, p *provider.Provider, clientID, _ string) verify.Report {
	f.Calls = append(f.Calls, p.ID+":"+clientID)
	s := verify.Pass
	if f.Fail {
		s = verify.Fail
	}
	return verify.Report{Checks: []verify.Check{{Name: "client id", Status: s}}}
}

// FakeRecorder implements AuditRecorder.
type FakeRecorder struct {
	Entries []audit.Entry
}

func (f *FakeRecorder) Record(e audit.Entry) (audit.Entry, error) {
	f.Entries = append(f.Entries, e)
	return e, nil
}

type testSaver struct {
	*Saver
	copied   []string
	recorder *FakeRecorder
}

func newTestSaver(auditing bool, decide envfile.Strategy) *testSaver {
	ts := &testSaver{recorder: &FakeRecorder{}}
	ts.Saver = &Saver{
		envs: envfile.NewResolver(envfile.DeciderFunc(func(string, []string) (envfile.Strategy, error) {
			return decide, nil
		}), nil),
		openAudit: func(string) (AuditRecorder, error) { return ts.recorder, nil },
		auditing:  func() bool { return auditing },
		copy: func(s string) error {
			ts.copied = append(ts.copied, s)
			return nil
		},
	}
	return ts
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestGitHubCreateWritesEnvAndCopies(t *testing.T) {
	captureOutput(t)
	env := filepath.Join(t.TempDir(), ".env")
	fc := &FakeConsole{}
	saver := newTestSaver(true, envfile.Generated)
	fv := &FakeVerifier{}
	g := GitHubCmd{open: opener(fc), prompt: &FakePrompter{}, saver: saver.Saver, verifier: fv}

	err := g.Create(context.Background(), GitHubCreateInput{
		AppName:     "my-app",
		HomepageURL: "http://localhost:3000",
		CallbackURL: "http://localhost:3000/api/auth/callback/github",
		Target:      SaveTarget{EnvFile: env},
		Post:        PostCreate{Copy: true, Verify: true},
	})
	require.NoError(t, err)

	require.Len(t, fc.Created, 1)
	assert.Equal(t, []string{"http://localhost:3000/api/auth/callback/github"}, fc.Created[0].RedirectURIs)
	assert.Equal(t, 1, fc.Closed)

	content := readFile(t, env)
	assert.Contains(t, content, "# GitHub OAuth Credentials (my-app)")
	assert.Contains(t, content, `GITHUB_CLIENT_ID="Ov23li`)
	assert.Contains(t, content, `GITHUB_CLIENT_SECRET="`+strings.Repeat("s", 40)+`"`)

	require.Len(t, saver.copied, 1)
	assert.Contains(t, saver.copied[0], "GITHUB_CLIENT_ID=")
	require.Len(t, saver.recorder.Entries, 1)
	assert.Equal(t, "my-app", saver.recorder.Entries[0].AppName)
	assert.Equal(t, []string{"github:Ov23li" + strings.Repeat("a", 14)}, fv.Calls)
}

func TestGitHubCreateWithoutAuditing(t *testing.T) {
	captureOutput(t)
	saver := newTestSaver(false, envfile.Generated)
	g := GitHubCmd{open: opener(&FakeConsole{}), prompt: &FakePrompter{}, saver: saver.Saver}

	require.NoError(t, g.Create(context.Background(), GitHubCreateInput{AppName: "x", CallbackURL: "http://h/cb"}))
	assert.Empty(t, saver.recorder.Entries)
	assert.Empty(t, saver.copied)
}

func TestGitHubCreateDualCombined(t *testing.T) {
	captureOutput(t)
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("GITHUB_CLIENT_ID=old\nGITHUB_CLIENT_SECRET=old\n"), 0o600))
	fc := &FakeConsole{}
	saver := newTestSaver(true, envfile.Archive)
	g := GitHubCmd{open: opener(fc), prompt: &FakePrompter{}, saver: saver.Saver}

	err := g.CreateDual(context.Background(), GitHubDualInput{
		AppName:      "shop",
		DevHomepage:  "http://localhost:3000/",
		ProdHomepage: "https://shop.example.com",
		CallbackPath: "api/auth/callback/github",
		Mode:         dualCombined,
		DevFile:      env,
		Post:         PostCreate{Copy: true},
	})
	require.NoError(t, err)

	require.Len(t, fc.Created, 2)
	assert.Equal(t, "shop-dev", fc.Created[0].Name)
	assert.Equal(t, "http://localhost:3000/api/auth/callback/github", fc.Created[0].CallbackURL())
	assert.Equal(t, "shop-prod", fc.Created[1].Name)
	assert.Equal(t, "https://shop.example.com/api/auth/callback/github", fc.Created[1].CallbackURL())
	assert.Equal(t, 1, fc.Closed)

	content := readFile(t, env)
	assert.Contains(t, content, "# OLD_GITHUB_CLIENT_ID=old")
	assert.Contains(t, content, "# GitHub DEV OAuth Credentials (shop-dev)")
	assert.Contains(t, content, "\nGITHUB_CLIENT_ID=")
	assert.Contains(t, content, "PROD_GITHUB_CLIENT_ID=")
	assert.Contains(t, content, "PROD_GITHUB_CLIENT_SECRET=")

	require.Len(t, saver.copied, 1)
	assert.Contains(t, saver.copied[0], "PROD_GITHUB_CLIENT_ID=")
	require.Len(t, saver.recorder.Entries, 2)
	assert.Equal(t, "DEV", saver.recorder.Entries[0].EnvType)
	assert.Equal(t, "PROD", saver.recorder.Entries[1].EnvType)
}

func TestDualTargets(t *testing.T) {
	tests := []struct {
		mode           string
		wantDevFile    string
		wantProdFile   string
		wantProdPrefix string
		wantProdForced bool
	}{
		{mode: dualCombined, wantDevFile: ".env", wantProdFile: ".env", wantProdPrefix: "PROD", wantProdForced: true},
		{mode: dualSplit, wantDevFile: ".env", wantProdFile: ".env.production"},
		{mode: dualNone},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			dev, prod := dualTargets(GitHubDualInput{Mode: tt.mode, DevFile: ".env", ProdFile: ".env.production"})
			assert.Equal(t, tt.wantDevFile, dev.EnvFile)
			assert.Equal(t, tt.wantProdFile, prod.EnvFile)
			assert.Equal(t, tt.wantProdPrefix, prod.Prefix)
			assert.Equal(t, tt.wantProdForced, prod.ForcePrefix)
			assert.Equal(t, "DEV", dev.EnvType)
			assert.Equal(t, "PROD", prod.EnvType)
		})
	}
}

func TestGitHubCreateTestModeDeletes(t *testing.T) {
	captureOutput(t)
	fc := &FakeConsole{}
	g := GitHubCmd{open: opener(fc), prompt: &FakePrompter{Confirms: []bool{true}}, saver: newTestSaver(false, envfile.Generated).Saver}

	require.NoError(t, g.Create(context.Background(), GitHubCreateInput{AppName: "tmp", CallbackURL: "http://h/cb", Post: PostCreate{TestMode: true}}))
	require.Len(t, fc.Deleted, 1)
	assert.Equal(t, "tmp", fc.Deleted[0].Name)
	assert.Equal(t, "https://github.com/settings/applications/123", fc.Deleted[0].URL)
}

func sampleApps() []provision.App {
	return []provision.App{
		{ID: "1", Name: "alpha", URL: "https://github.com/settings/applications/1"},
		{ID: "2", Name: "beta", URL: "https://github.com/settings/applications/2"},
		{ID: "3", Name: "gamma", URL: "https://github.com/settings/applications/3"},
	}
}

func TestGitHubDeleteSelected(t *testing.T) {
	out := captureOutput(t)
	fc := &FakeConsole{ListFunc: func(context.Context) ([]provision.App, error) { return sampleApps(), nil }}
	fp := &FakePrompter{Picks: []string{"alpha (1)", "gamma (3)"}, Confirms: []bool{true}}
	g := GitHubCmd{open: opener(fc), prompt: fp}

	require.NoError(t, g.Delete(context.Background(), GitHubDeleteInput{}))
	require.Len(t, fc.Deleted, 2)
	assert.Equal(t, "1", fc.Deleted[0].ID)
	assert.Equal(t, "3", fc.Deleted[1].ID)
	assert.Contains(t, out.String(), "Deleted 2 of 2 app(s)")
}

func TestGitHubDeleteCancelled(t *testing.T) {
	captureOutput(t)
	fc := &FakeConsole{ListFunc: func(context.Context) ([]provision.App, error) { return sampleApps(), nil }}
	g := GitHubCmd{open: opener(fc), prompt: &FakePrompter{Confirms: []bool{false}}}

	require.NoError(t, g.Delete(context.Background(), GitHubDeleteInput{All: true}))
	assert.Empty(t, fc.Deleted)
}

func TestGitHubDeleteAllReportsFailures(t *testing.T) {
	captureOutput(t)
	fc := &FakeConsole{
		ListFunc: func(context.Context) ([]provision.App, error) { return sampleApps(), nil },
		DeleteFunc: func(_ context.Context, a provision.App) (bool, error) {
			if a.ID == "2" {
				return false, assert.AnError
			}
			return true, nil
		},
	}
	g := GitHubCmd{open: opener(fc), prompt: &FakePrompter{}}

	err := g.Delete(context.Background(), GitHubDeleteInput{All: true, SkipConfirm: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "beta (2)")
	assert.Len(t, fc.Deleted, 3)
}

func TestGitHubListPrintsApps(t *testing.T) {
	out := captureOutput(t)
	fc := &FakeConsole{ListFunc: func(context.Context) ([]provision.App, error) { return sampleApps(), nil }}
	g := GitHubCmd{open: opener(fc), prompt: &FakePrompter{}}

	require.NoError(t, g.List(context.Background()))
	assert.Contains(t, out.String(), "gamma")
	assert.Contains(t, out.String(), "https://github.com/settings/applications/2")
}

func TestGitHubOpenDefaultsToList(t *testing.T) {
	var opened string
	g := GitHubCmd{browse: func(u string) error { opened = u; return nil }}
	require.NoError(t, g.Open(""))
	assert.Equal(t, provider.MustLoad(provider.GitHub).ListURL, opened)
}
