package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "conf.template")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRenderPort(t *testing.T) {
	tmpl := writeTemplate(t, "port=%HTTP_PORT%\n")
	out := filepath.Join(t.TempDir(), "conf")

	var logs bytes.Buffer
	r := New(zerolog.New(&logs))
	require.NoError(t, r.Render(tmpl, out, map[string]string{"HTTP_PORT": "8080"}))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "port=8080\n", string(got))
	assert.Contains(t, logs.String(), "port=8080")
}

func TestRenderOverwrites(t *testing.T) {
	tmpl := writeTemplate(t, "listen %NGINX_HTTP_PORT%;")
	out := filepath.Join(t.TempDir(), "conf")
	require.NoError(t, os.WriteFile(out, []byte("old content that is much longer than the new one"), 0o644))

	r := New(zerolog.Nop())
	require.NoError(t, r.Render(tmpl, out, map[string]string{"NGINX_HTTP_PORT": "9000"}))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "listen 9000;", string(got))
}

func TestRenderMissingPlaceholderDoesNotWrite(t *testing.T) {
	tmpl := writeTemplate(t, "a=%A%\nb=%B%\n")
	out := filepath.Join(t.TempDir(), "conf")

	err := New(zerolog.Nop()).Render(tmpl, out, map[string]string{"A": "1"})
	require.Error(t, err)
	assert.True(t, IsMissingPlaceholder(err))
	var mp *MissingPlaceholderError
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, "B", mp.Name)
	assert.Equal(t, tmpl, mp.Template)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "output must not be written")
}

func TestRenderMissingTemplate(t *testing.T) {
	err := New(zerolog.Nop()).Render(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "out"), nil)
	require.Error(t, err)
	assert.False(t, IsMissingPlaceholder(err))
}

func TestSubstitute(t *testing.T) {
	cases := []struct {
		name   string
		tmpl   string
		values map[string]string
		want   string
	}{
		{"no placeholders", "plain text 100%\n", nil, "plain text 100%\n"},
		{"single", "x %P% y", map[string]string{"P": "1"}, "x 1 y"},
		{"repeated", "%P%:%P%", map[string]string{"P": "7"}, "7:7"},
		{"extra values ignored", "%A%", map[string]string{"A": "a", "B": "b"}, "a"},
		{"non word kept", "%not-a-token% %A%", map[string]string{"A": "z"}, "%not-a-token% z"},
		{"disjoint sets", "inference_address=http://0.0.0.0:%INFERENCE_HTTP_PORT%", map[string]string{"INFERENCE_HTTP_PORT": "8080"}, "inference_address=http://0.0.0.0:8080"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Substitute(c.tmpl, c.values)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
			assert.False(t, placeholder.MatchString(got), "placeholder left in %q", got)
		})
	}
}

func TestSubstituteReportsFirstMissing(t *testing.T) {
	_, err := Substitute("%A% %B% %C%", map[string]string{"B": "b"})
	var mp *MissingPlaceholderError
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, "A", mp.Name)
	assert.ErrorIs(t, err, ErrMissingPlaceholderValue)
}
