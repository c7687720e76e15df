package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/appkeys/cli/pkg/prompt"
	"github.com/appkeys/cli/pkg/provision"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput sets pterm writers for tests in this package.
func captureOutput(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	pterm.SetDefaultOutput(&buf)
	pterm.Info.Writer = &buf
	pterm.Error.Writer = &buf
	pterm.Success.Writer = &buf
	pterm.Warning.Writer = &buf
	pterm.Debug.Writer = &buf
	t.Cleanup(func() {
		pterm.SetDefaultOutput(os.Stdout)
		pterm.Info.Writer = os.Stdout
		pterm.Error.Writer = os.Stdout
		pterm.Success.Writer = os.Stdout
		pterm.Warning.Writer = os.Stdout
		pterm.Debug.Writer = os.Stdout
	})
	return &buf
}

// FakeConsole implements Console.
type FakeConsole struct {
	SignInFunc func(ctx context.Context) error
	CreateFunc func(ctx context.Context, cfg *provision.AppConfig) (*provision.Result, error)
	ListFunc   func(ctx context.Context) ([]provision.App, error)
	DeleteFunc func(ctx context.Context, app provision.App) (bool, error)

	Created []provision.AppConfig
	Deleted []provision.App
	Closed  int
}

func (f *FakeConsole) SignIn(ctx context.Context) error {
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx)
	}
	return nil
}

func (f *FakeConsole) Create(ctx context.Context, cfg *provision.AppConfig) (*provision.Result, error) {
	f.Created = append(f.Created, *cfg)
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, cfg)
	}
	return &provision.Result{Credential: provision.Credential{
		Provider:     "github",
		AppName:      cfg.Name,
		ClientID:     "Ov23li" + strings.Repeat("a", 14),
		ClientSecret: strings.Repeat("s", 40),
		AppURL:       "https://github.com/settings/applications/123",
		HomepageURL:  cfg.HomepageURL,
	}}, nil
}

func (f *FakeConsole) List(ctx context.Context) ([]provision.App, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx)
	}
	return nil, nil
}

func (f *FakeConsole) Delete(ctx context.Context, app provision.App) (bool, error) {
	f.Deleted = append(f.Deleted, app)
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, app)
	}
	return true, nil
}

func (f *FakeConsole) Screenshot(context.Context) ([]byte, error) {
	return nil, errors.New("no screenshot")
}

func (f *FakeConsole) Close() error {
	f.Closed++
	return nil
}

func opener(c *FakeConsole) ConsoleOpener {
	return func(context.Context, string, prompt.Operator) (Console, error) {
		return c, nil
	}
}

// FakePrompter answers prompts from queues; an exhausted queue returns the
// default.
type FakePrompter struct {
	Texts    []string
	Selects  []string
	Confirms []bool
	Picks    []string

	Labels []string
}

func (f *FakePrompter) Text(label, def string) (string, error) {
	f.Labels = append(f.Labels, label)
	if len(f.Texts) == 0 {
		return def, nil
	}
	v := f.Texts[0]
	f.Texts = f.Texts[1:]
	return v, nil
}

func (f *FakePrompter) Secret(label string) (string, error) {
	return f.Text(label, "")
}

func (f *FakePrompter) Confirm(label string, def bool) (bool, error) {
	f.Labels = append(f.Labels, label)
	if len(f.Confirms) == 0 {
		return def, nil
	}
	v := f.Confirms[0]
	f.Confirms = f.Confirms[1:]
	return v, nil
}

func (f *FakePrompter) Select(label string, options []string, def string) (string, error) {
	f.Labels = append(f.Labels, label)
	if len(f.Selects) == 0 {
		return def, nil
	}
	v := f.Selects[0]
	f.Selects = f.Selects[1:]
	return v, nil
}

func (f *FakePrompter) MultiSelect(label string, options []string) ([]string, error) {
	f.Labels = append(f.Labels, label)
	return f.Picks, nil
}

func TestWithConsoleClosesAfterSuccess(t *testing.T) {
	captureOutput(t)
	fc := &FakeConsole{}
	fp := &FakePrompter{}

	ran := false
	err := withConsole(context.Background(), opener(fc), fp, "github", func(Console) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, fc.Closed)
	assert.Empty(t, fp.Labels)
}

func TestWithConsolePausesOnFailure(t *testing.T) {
	out := captureOutput(t)
	fc := &FakeConsole{}
	fp := &FakePrompter{}
	boom := errors.New("boom")

	err := withConsole(context.Background(), opener(fc), fp, "github", func(Console) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, fc.Closed)
	require.Len(t, fp.Labels, 1)
	assert.Contains(t, fp.Labels[0], "Press Enter to close the browser")
	assert.Contains(t, out.String(), "The run failed")
}

func TestWithConsoleSignInFailureSkipsWork(t *testing.T) {
	captureOutput(t)
	loginErr := errors.New("timed out waiting for login")
	fc := &FakeConsole{SignInFunc: func(context.Context) error { return loginErr }}

	ran := false
	err := withConsole(context.Background(), opener(fc), &FakePrompter{}, "github", func(Console) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, loginErr)
	assert.False(t, ran)
	assert.Equal(t, 1, fc.Closed)
}

func TestWithConsoleCancelledDoesNotPause(t *testing.T) {
	captureOutput(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fc := &FakeConsole{}
	fp := &FakePrompter{}

	err := withConsole(ctx, opener(fc), fp, "github", func(Console) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fp.Labels)
	assert.Equal(t, 1, fc.Closed)
}

func TestWithConsoleOpenFailure(t *testing.T) {
	openErr := errors.New("profile in use")
	open := func(context.Context, string, prompt.Operator) (Console, error) { return nil, openErr }
	err := withConsole(context.Background(), open, &FakePrompter{}, "github", func(Console) error { return nil })
	assert.ErrorIs(t, err, openErr)
}
