package voicedefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()

	path := filepath.Join(dir, "voices.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestLoadResolvesVoiceResourcesRelativeToManifestDir(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{"voices":[{"name":"en-US","resources":["lex.bin","sig.bin"]}]}`)

	mgr, err := Load(path)
	require.NoError(t, err)

	paths, err := mgr.Resolve("en-US")
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "lex.bin"), filepath.Join(dir, "sig.bin")}, paths)
}

func TestLoadRejectsDuplicateVoiceName(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{"voices":[
		{"name":"en-US","resources":["a.bin"]},
		{"name":"en-US","resources":["b.bin"]}
	]}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsVoiceWithNoResources(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{"voices":[{"name":"en-US","resources":[]}]}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestResolveUnknownVoiceErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{"voices":[{"name":"en-US","resources":["a.bin"]}]}`)

	mgr, err := Load(path)
	require.NoError(t, err)

	_, err = mgr.Resolve("de-DE")
	require.Error(t, err)
}

func TestListVoicesReturnsAll(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{"voices":[
		{"name":"en-US","resources":["a.bin"]},
		{"name":"de-DE","resources":["b.bin"]}
	]}`)

	mgr, err := Load(path)
	require.NoError(t, err)
	require.Len(t, mgr.ListVoices(), 2)
}
