package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundledTablesLoad(t *testing.T) {
	for _, id := range IDs() {
		t.Run(id, func(t *testing.T) {
			p, err := Load(id, "")
			require.NoError(t, err)
			assert.Equal(t, id, p.ID)
			assert.NotEmpty(t, p.Title)
			assert.NotEmpty(t, p.Env.ClientID)
			assert.NotEmpty(t, p.Env.ClientSecret)
		})
	}
}

func TestGitHubTable(t *testing.T) {
	p := MustLoad(GitHub)
	assert.Equal(t, "https://github.com/settings/applications/new", p.NewAppURL)
	assert.Equal(t, []string{"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET"}, p.Env.All())

	gen := p.Intents.Get("generate_secret")
	require.NotNil(t, gen.Fuzzy)
	assert.ElementsMatch(t, []string{"generate", "secret"}, gen.Fuzzy.Keywords)
	assert.Equal(t, "generate_secret", gen.Name)

	assert.Equal(t, "http://localhost:3000/api/auth/callback/github", p.CallbackURL("http://localhost:3000/"))
	assert.True(t, p.IsLoginURL("https://github.com/login?return_to=x"))
	assert.False(t, p.IsLoginURL("https://github.com/settings/developers"))
}

func TestGoogleTable(t *testing.T) {
	p := MustLoad(Google)
	assert.Equal(t, []string{"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_PROJECT_ID"}, p.Env.All())
	assert.True(t, p.Intents.Has("client_secret"))
	assert.True(t, p.IsLoginURL("https://accounts.google.com/signin"))
}

func TestUnknownProvider(t *testing.T) {
	_, err := Load("gitlab", "")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestOverrideReplacesIntent(t *testing.T) {
	dir := t.TempDir()
	override := "intents:\n  register_button:\n    candidates:\n      - css: \"#register\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "github.yaml"), []byte(override), 0o600))

	p, err := Load(GitHub, dir)
	require.NoError(t, err)
	assert.Equal(t, "#register", p.Intents.Get("register_button").Candidates[0].CSS)
	// untouched intents survive
	assert.Equal(t, "input[name='login']", p.Intents.Get("login_input").Candidates[0].CSS)
}

func TestOverrideCannotBreakTable(t *testing.T) {
	dir := t.TempDir()
	override := "intents:\n  register_button:\n    candidates: []\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "github.yaml"), []byte(override), 0o600))

	_, err := Load(GitHub, dir)
	assert.ErrorContains(t, err, "register_button")
}

func TestAbsolute(t *testing.T) {
	p := MustLoad(GitHub)
	assert.Equal(t, "https://github.com/settings/applications/123", p.Absolute("/settings/applications/123"))
	assert.Equal(t, "https://example.com/x", p.Absolute("https://example.com/x"))
}
