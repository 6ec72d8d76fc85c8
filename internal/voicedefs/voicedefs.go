// Package voicedefs loads the voice-name to resource-list definitions
// file spec §4.4 describes (config.PathsConfig.VoiceDefsFile), mapping
// each voice to the ordered set of resource files it is assembled from.
// Grounded on the teacher's internal/tts.VoiceManager manifest loader:
// same encoding/json manifest shape, same duplicate/empty-field
// validation on load.
package voicedefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Voice names one voice definition and the resource files it is built
// from, in the order they should be added to the voice.
type Voice struct {
	Name      string   `json:"name"`
	Resources []string `json:"resources"`
}

type manifest struct {
	Voices []Voice `json:"voices"`
}

// Manager resolves voice definitions loaded from a manifest file, with
// resource paths resolved relative to the manifest's own directory so
// lookups are independent of the caller's working directory.
type Manager struct {
	baseDir string
	voices  []Voice
	byName  map[string]Voice
}

// Load reads and validates a voice-definitions manifest from path.
func Load(path string) (*Manager, error) {
	if path == "" {
		return nil, errors.New("voicedefs: manifest path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("voicedefs: read manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("voicedefs: decode manifest: %w", err)
	}

	mgr := &Manager{
		baseDir: filepath.Dir(path),
		voices:  append([]Voice(nil), m.Voices...),
		byName:  make(map[string]Voice, len(m.Voices)),
	}

	for _, v := range m.Voices {
		if v.Name == "" {
			return nil, errors.New("voicedefs: manifest contains a voice with an empty name")
		}
		if len(v.Resources) == 0 {
			return nil, fmt.Errorf("voicedefs: voice %q has no resources", v.Name)
		}
		if _, exists := mgr.byName[v.Name]; exists {
			return nil, fmt.Errorf("voicedefs: duplicate voice name %q", v.Name)
		}

		mgr.byName[v.Name] = v
	}

	return mgr, nil
}

// ListVoices returns every voice definition in the manifest.
func (m *Manager) ListVoices() []Voice { return append([]Voice(nil), m.voices...) }

// Resolve returns name's resource file paths, resolved relative to the
// manifest's directory.
func (m *Manager) Resolve(name string) ([]string, error) {
	v, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("voicedefs: unknown voice %q", name)
	}

	paths := make([]string, len(v.Resources))
	for i, r := range v.Resources {
		if filepath.IsAbs(r) {
			paths[i] = r
		} else {
			paths[i] = filepath.Join(m.baseDir, r)
		}
	}

	return paths, nil
}
