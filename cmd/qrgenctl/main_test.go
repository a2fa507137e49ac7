package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/qrgen/qr"
	"github.com/openclaw/qrgen/store"
)

func runIn(t *testing.T, dir string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	chdir(t, dir)

	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestDecodeCommand(t *testing.T) {
	dir := t.TempDir()
	_, err := qr.Generate(qr.Request{Content: "round trip", OutputPath: filepath.Join(dir, "rt.png")})
	require.NoError(t, err)

	code, stdout, stderr := runIn(t, dir, "decode", "rt.png")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "round trip\n", stdout)
}

func TestDecodeCommandMissingFile(t *testing.T) {
	code, _, stderr := runIn(t, t.TempDir(), "decode", "nope.png")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "opening image file")
}

func TestPreviewCommand(t *testing.T) {
	code, stdout, _ := runIn(t, t.TempDir(), "preview", "https://example.com")
	require.Equal(t, 0, code)
	assert.Greater(t, strings.Count(stdout, "\n"), 10)
}

func TestPreviewMixedContent(t *testing.T) {
	content := strings.Repeat("1", 3000) + "a"
	code, stdout, stderr := runIn(t, t.TempDir(), "preview", content)
	require.Equal(t, 0, code, stderr)
	assert.NotEmpty(t, stdout)
}

func TestVersionCommand(t *testing.T) {
	code, stdout, _ := runIn(t, t.TempDir(), "version")
	require.Equal(t, 0, code)
	assert.Equal(t, "qrgen "+version+"\n", stdout)
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	t.Setenv("QRGEN_HISTORY", "1")
	t.Setenv("QRGEN_DATA_DIR", dataDir)

	// First run creates the data dir and an empty table.
	code, stdout, stderr := runIn(t, dir, "history")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "CREATED")

	hs, err := store.NewHistoryStore(filepath.Join(dataDir, "history.db"))
	require.NoError(t, err)
	require.NoError(t, hs.Save(&store.Entry{Content: "https://example.com/one", OutputPath: "one.png", CreatedAt: 1}))
	require.NoError(t, hs.Save(&store.Entry{Content: "second entry", OutputPath: "two.png", CreatedAt: 2}))
	require.NoError(t, hs.Close())

	code, stdout, stderr = runIn(t, dir, "history")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "one.png")
	assert.Contains(t, stdout, "second entry")

	code, stdout, _ = runIn(t, dir, "history", "--search", "example")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "one.png")
	assert.NotContains(t, stdout, "two.png")
}

func TestHistoryDisabledByDefault(t *testing.T) {
	code, _, stderr := runIn(t, t.TempDir(), "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, errHistoryDisabled.Error())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
