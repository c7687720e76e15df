package prompt

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/appkeys/cli/pkg/envfile"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FakePrompter answers Text prompts from a queue.
type FakePrompter struct {
	Answers     []string
	Labels      []string
	SecretFunc  func(label string) (string, error)
	SelectFunc  func(label string, options []string, def string) (string, error)
	ConfirmFunc func(label string, def bool) (bool, error)
}

func (f *FakePrompter) Text(label, def string) (string, error) {
	f.Labels = append(f.Labels, label)
	if len(f.Answers) == 0 {
		return def, nil
	}
	a := f.Answers[0]
	f.Answers = f.Answers[1:]
	return a, nil
}

func (f *FakePrompter) Secret(label string) (string, error) {
	if f.SecretFunc != nil {
		return f.SecretFunc(label)
	}
	return "", nil
}

func (f *FakePrompter) Confirm(label string, def bool) (bool, error) {
	if f.ConfirmFunc != nil {
		return f.ConfirmFunc(label, def)
	}
	return def, nil
}

func (f *FakePrompter) Select(label string, options []string, def string) (string, error) {
	if f.SelectFunc != nil {
		return f.SelectFunc(label, options, def)
	}
	return def, nil
}

func (f *FakePrompter) MultiSelect(string, []string) ([]string, error) {
	return nil, nil
}

func captureOutput(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	pterm.Info.Writer = &buf
	pterm.Warning.Writer = &buf
	t.Cleanup(func() {
		pterm.Info.Writer = os.Stdout
		pterm.Warning.Writer = os.Stdout
	})
	return &buf
}

func TestAppName(t *testing.T) {
	out := captureOutput(t)

	name, err := Operator{P: &FakePrompter{}}.AppName("given", "default")
	require.NoError(t, err)
	assert.Equal(t, "given", name)

	fp := &FakePrompter{Answers: []string{"  ", "typed"}}
	name, err = Operator{P: fp}.AppName("", "default")
	require.NoError(t, err)
	assert.Equal(t, "typed", name)
	assert.Len(t, fp.Labels, 2)
	assert.Contains(t, out.String(), "Invalid app name")
}

func TestURL(t *testing.T) {
	captureOutput(t)
	fp := &FakePrompter{Answers: []string{"localhost:3000", "http://localhost:3000"}}

	u, err := Operator{P: fp}.URL("Homepage URL", "ftp://x", "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", u)
	assert.Len(t, fp.Labels, 2)
}

func TestRenameAndSecret(t *testing.T) {
	captureOutput(t)
	fp := &FakePrompter{
		Answers:    []string{"my-app-2"},
		SecretFunc: func(string) (string, error) { return "pasted", nil },
	}
	op := Operator{P: fp}

	name, err := op.Rename(context.Background(), "my-app")
	require.NoError(t, err)
	assert.Equal(t, "my-app-2", name)
	assert.Contains(t, fp.Labels[0], `"my-app" is taken`)

	secret, err := op.ManualSecret(context.Background(), "my-app", "Ov23li")
	require.NoError(t, err)
	assert.Equal(t, "pasted", secret)
}

func TestDecide(t *testing.T) {
	out := captureOutput(t)
	tests := []struct {
		pick string
		want envfile.Strategy
	}{
		{choiceGenerated, envfile.Generated},
		{choiceArchive, envfile.Archive},
	}
	for _, tt := range tests {
		fp := &FakePrompter{SelectFunc: func(_ string, options []string, def string) (string, error) {
			assert.Equal(t, choiceGenerated, def)
			assert.Contains(t, options, tt.pick)
			return tt.pick, nil
		}}
		s, err := Operator{P: fp}.Decide(".env", []string{"GITHUB_CLIENT_ID"})
		require.NoError(t, err)
		assert.Equal(t, tt.want, s)
	}
	assert.Contains(t, out.String(), "Credentials already exist in .env")
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://example.com/cb"))
	assert.Error(t, ValidateURL("example.com"))
	assert.Error(t, ValidateURL("https://"))
}
