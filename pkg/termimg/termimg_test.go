package termimg

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want Protocol
	}{
		{"iterm", map[string]string{"TERM_PROGRAM": "iTerm.app"}, ITerm2},
		{"wezterm", map[string]string{"TERM_PROGRAM": "WezTerm"}, ITerm2},
		{"ghostty", map[string]string{"TERM_PROGRAM": "ghostty"}, Kitty},
		{"kitty", map[string]string{"KITTY_WINDOW_ID": "3"}, Kitty},
		{"plain", map[string]string{"TERM_PROGRAM": "Apple_Terminal"}, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(env(tt.vars)))
		})
	}
	assert.Equal(t, "Kitty", Kitty.String())
	assert.Equal(t, "none", None.String())
}

func TestShowITerm2(t *testing.T) {
	var buf bytes.Buffer
	img := []byte("\x89PNG fake")

	require.NoError(t, Show(&buf, ITerm2, img, 120))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\033]1337;File=inline=1;"))
	assert.Contains(t, out, "width=120")
	assert.Contains(t, out, base64.StdEncoding.EncodeToString(img))
}

func TestShowKittyChunks(t *testing.T) {
	var buf bytes.Buffer
	img := bytes.Repeat([]byte{0xAB}, 5000) // encodes to more than one chunk

	require.NoError(t, Show(&buf, Kitty, img, 80))
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\033_Ga=T,f=100,c=80,m=1;"))
	assert.Equal(t, 1, strings.Count(out, "\033_Gm=0;"))
	assert.True(t, strings.HasSuffix(out, "\033\\\n"))

	var payload strings.Builder
	for _, seq := range strings.Split(out, "\033\\") {
		if i := strings.Index(seq, ";"); i >= 0 {
			payload.WriteString(seq[i+1:])
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(payload.String())
	require.NoError(t, err)
	assert.Equal(t, img, decoded)
}

func TestShowUnsupported(t *testing.T) {
	assert.Error(t, Show(&bytes.Buffer{}, None, []byte("x"), 80))
}
