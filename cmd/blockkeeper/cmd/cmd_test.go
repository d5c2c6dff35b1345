package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var editorSchema = filepath.Join("..", "..", "..", "internal", "schema", "testdata", "editor.yaml")

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--log-format", "text", "--log-level", "warn"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCheck(t *testing.T) {
	doc := writeFile(t, "doc.json", `{
		"time": 1,
		"blocks": [
			{"type": "paragraph", "data": {"text": "<b>ok</b><script>x</script>"}},
			{"type": "header", "data": {"text": "<i>T</i>", "level": 2}, "tunes": {"anchor": "t"}}
		],
		"version": "2.28.0"
	}`)

	out, err := execute(t, "check", "--schema", editorSchema, doc)
	require.NoError(t, err)
	assert.Equal(t,
		`{"time":1,"blocks":[{"type":"paragraph","data":{"text":"<b>ok</b>"}},{"type":"header","data":{"text":"T","level":2},"tunes":{"anchor":"t"}}],"version":"2.28.0"}`,
		strings.TrimSpace(out))
}

func TestCheck_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"invalid enum", `{"blocks": [{"type": "header", "data": {"text": "T", "level": 8}}]}`, "block 0"},
		{"unknown type", `{"blocks": [{"type": "video", "data": {}}]}`, "unknown block type"},
		{"malformed", `{"blocks": {}}`, "malformed editor document"},
		{"bad json", `{"blocks": [`, "doc.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "check", "--schema", editorSchema, writeFile(t, "doc.json", tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheck_InvalidSchema(t *testing.T) {
	schema := writeFile(t, "schema.yaml", "tools:\n  paragraph:\n    text:\n      type: string\n      allowedTags: \"a[href\"\n")
	doc := writeFile(t, "doc.json", `{"blocks": [{"type": "paragraph", "data": {"text": "x"}}]}`)

	_, err := execute(t, "check", "--schema", schema, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schema configuration")
}

func TestMigrate(t *testing.T) {
	dbURL := "sqlite://" + filepath.ToSlash(filepath.Join(t.TempDir(), "bk.db"))

	out, err := execute(t, "--db-url", dbURL, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "001_initial_schema.sql")
	assert.Contains(t, out, "pending")

	out, err = execute(t, "--db-url", dbURL, "migrate", "--status=false")
	require.NoError(t, err)
	assert.Contains(t, out, "1 migration(s) applied")

	out, err = execute(t, "--db-url", dbURL, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "applied")
	assert.NotContains(t, out, "pending")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	l, err := newLogger(&buf, "debug", "text")
	require.NoError(t, err)
	l.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), "k=v")

	_, err = newLogger(&buf, "loud", "json")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}
