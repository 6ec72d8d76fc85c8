// Package testutil provides shared skip helpers for integration tests.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    testutil.RequireResourceFile(t, "sig01.bin")
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ResourceDir returns the directory integration tests load fixture
// resource files from, overridable via PICOTTS_RESOURCE_DIR.
func ResourceDir() string {
	if d := os.Getenv("PICOTTS_RESOURCE_DIR"); d != "" {
		return d
	}

	return filepath.Join("testdata", "resources")
}

// RequireResourceFile skips the test if name cannot be found under
// ResourceDir().
func RequireResourceFile(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(ResourceDir(), name)
	if _, err := os.Stat(path); err != nil {
		t.Skipf("resource fixture %q not available: %v", path, err)
	}

	return path
}

// RequireVoiceDefsFile skips the test if the voice-definitions file named
// by PICOTTS_VOICE_DEFS (or the repo-relative default) is not present.
func RequireVoiceDefsFile(t *testing.T) string {
	t.Helper()

	path := os.Getenv("PICOTTS_VOICE_DEFS")
	if path == "" {
		path = filepath.Join("testdata", "voices.json")
	}
	if _, err := os.Stat(path); err != nil {
		t.Skipf("voice definitions file %q not available: %v", path, err)
	}

	return path
}

// SilencePCMPath returns the repository-relative path of a 100 ms silence
// fixture (raw 16-bit PCM, 16 kHz mono), for use as a stand-in
// signal-stage output when no live synthesis is available. The file is
// not part of the repository and the helper does not check that it exists.
func SilencePCMPath() string {
	return filepath.Join("cmd", "pico-tts", "testdata", "silence_100ms.pcm")
}
