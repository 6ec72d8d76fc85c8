package main

import (
	"fmt"
	"os"

	"github.com/example/go-pico-tts/internal/config"
	"github.com/example/go-pico-tts/internal/engine"
	"github.com/example/go-pico-tts/internal/voicedefs"
)

// resolveVoiceResources returns the resource file paths voiceName is
// assembled from: resourceOverride when the caller passed explicit
// --resource flags, otherwise the voice-definitions manifest named by
// cfg.Paths.VoiceDefsFile.
func resolveVoiceResources(cfg config.Config, voiceName string, resourceOverride []string) ([]string, error) {
	if len(resourceOverride) > 0 {
		return resourceOverride, nil
	}

	mgr, err := voicedefs.Load(cfg.Paths.VoiceDefsFile)
	if err != nil {
		return nil, fmt.Errorf("load voice definitions: %w", err)
	}

	return mgr.Resolve(voiceName)
}

// assembleEngine builds a System over a fresh caller-supplied region
// sized from cfg.Runtime.ArenaBytes, loads voiceName's resources into a
// voice definition, and creates the engine that definition backs (spec
// §4.1, §4.4-§4.5).
func assembleEngine(cfg config.Config, voiceName string, resourceOverride []string) (*engine.System, *engine.Engine, error) {
	paths, err := resolveVoiceResources(cfg, voiceName, resourceOverride)
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("voice %q has no resources", voiceName)
	}

	region := make([]byte, cfg.Runtime.ArenaBytes*2)

	sys, err := engine.NewSystem(region)
	if err != nil {
		return nil, nil, fmt.Errorf("new system: %w", err)
	}

	if err := sys.CreateVoiceDefinition(voiceName); err != nil {
		return nil, nil, fmt.Errorf("create voice definition: %w", err)
	}

	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read resource %q: %w", path, err)
		}

		name := fmt.Sprintf("%s#%d", path, i)

		if _, err := sys.LoadResource(name, data); err != nil {
			return nil, nil, fmt.Errorf("load resource %q: %w", path, err)
		}
		if err := sys.AddResourceToVoiceDefinition(voiceName, name); err != nil {
			return nil, nil, fmt.Errorf("assemble voice %q: %w", voiceName, err)
		}
	}

	ringBytes := cfg.Runtime.ArenaBytes / 64
	if ringBytes < 1024 {
		ringBytes = 1024
	}

	eng, err := sys.NewEngine(voiceName, cfg.Runtime.ArenaBytes, ringBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("new engine: %w", err)
	}

	return sys, eng, nil
}
