// Package engine composes the packages built so far — arena, resource,
// the per-stage pipeline, and the cooperative scheduler — into the
// public surface spec §6 names: initialize (NewSystem), resource and
// voice-definition management, and a singleton per-system engine. There
// is no system-level terminate; Engine.Dispose releases the engine only.
// Grounded on original_source/pico/lib/picoapi.c's
// pico_initialize/pico_newEngine/pico_getData flow.
package engine

import (
	"errors"
	"fmt"

	"github.com/example/go-pico-tts/internal/arena"
	"github.com/example/go-pico-tts/internal/except"
	"github.com/example/go-pico-tts/internal/resource"
)

// ErrMaxNumExceeded is returned by NewEngine when the system already owns
// an engine (spec §6: "exactly one engine per system at any time").
var ErrMaxNumExceeded = errors.New("engine: max number of engines exceeded")

// System owns the arena over the caller-supplied memory region, the
// resource manager, and (at most) one live Engine (spec §4.1, §4.4, §6).
// Only engines' sub-arenas are carved from the region; the manager is an
// ordinary Go value.
type System struct {
	arena    *arena.Arena
	mgr      *resource.Manager
	warnings *except.Registry

	engine *Engine
}

// NewSystem carves a System out of region: the caller-supplied memory
// region spec §4.1 requires (the sole piece of dynamic memory the
// engine touches).
func NewSystem(region []byte) (*System, error) {
	a, err := arena.New(region)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	reg := except.New()

	return &System{
		arena:    a,
		mgr:      resource.NewManager(reg),
		warnings: reg,
	}, nil
}

// LoadResource reads a resource file's bytes into the system (spec §6:
// load_resource — file I/O itself is the caller's responsibility).
func (s *System) LoadResource(name string, data []byte) (*resource.Resource, error) {
	return s.mgr.LoadResource(name, data)
}

// UnloadResource releases a loaded resource.
func (s *System) UnloadResource(r *resource.Resource) error {
	return s.mgr.UnloadResource(r)
}

// CreateVoiceDefinition registers a named, initially empty voice.
func (s *System) CreateVoiceDefinition(name string) error {
	return s.mgr.CreateVoiceDefinition(name)
}

// AddResourceToVoiceDefinition appends a resource to a voice's resource
// list.
func (s *System) AddResourceToVoiceDefinition(voiceName, resourceName string) error {
	return s.mgr.AddResourceToVoiceDefinition(voiceName, resourceName)
}

// ReleaseVoiceDefinition removes a voice definition.
func (s *System) ReleaseVoiceDefinition(name string) {
	s.mgr.ReleaseVoiceDefinition(name)
}

// Warnings exposes the system-level registry: resource load/voice
// assembly only raise warnings (DuplicateResourceLoad, KbOverwrite)
// outside of any engine's own per-step registry (spec §4.2).
func (s *System) Warnings() *except.Registry { return s.warnings }

// NewEngine assembles the named voice's knowledge bases into the nine
// pipeline stages and a scheduler over them (spec §4.5-§4.8), carving a
// sub-arena of arenaBytes for the engine's own working storage and
// ringBytes for each of the ten ring buffers threading the pipeline
// (spec §3: "exactly one engine per system at any time").
func (s *System) NewEngine(voiceName string, arenaBytes, ringBytes int) (*Engine, error) {
	if s.engine != nil {
		return nil, ErrMaxNumExceeded
	}

	voice, err := s.mgr.CreateVoice(voiceName, KBPdfLfz, KBPdfMgc)
	if err != nil {
		return nil, err
	}

	sub, err := s.arena.Sub(arenaBytes)
	if err != nil {
		s.mgr.ReleaseVoice(voice)

		return nil, fmt.Errorf("engine: sub-arena: %w", err)
	}

	e, err := newEngineFromVoice(s, voice, sub, ringBytes)
	if err != nil {
		s.mgr.ReleaseVoice(voice)

		return nil, err
	}

	s.engine = e

	return e, nil
}

// disposeEngine clears the system's singleton slot, called by
// Engine.Dispose.
func (s *System) disposeEngine() {
	s.engine = nil
}
