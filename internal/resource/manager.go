package resource

import (
	"fmt"

	"github.com/example/go-pico-tts/internal/except"
)

// Manager owns the set of loaded resources and the static voice-name to
// resource-list map (spec §4.4). Voice and resource names are compared
// byte-exact; the original does not document case sensitivity and the
// engine preserves that rather than introducing case folding (spec §9).
type Manager struct {
	resources map[string]*Resource
	voiceDefs map[string][]string
	warnings  *except.Registry
}

// NewManager returns an empty resource manager. warnings may be nil if the
// caller does not want duplicate-load/kb-overwrite diagnostics.
func NewManager(warnings *except.Registry) *Manager {
	return &Manager{
		resources: make(map[string]*Resource),
		voiceDefs: make(map[string][]string),
		warnings:  warnings,
	}
}

// LoadResource parses data and registers it under name. Loading the same
// name twice raises a DuplicateResourceLoad warning and replaces the
// existing entry (it must not still be locked by a voice).
func (m *Manager) LoadResource(name string, data []byte) (*Resource, error) {
	r, err := LoadResource(name, data)
	if err != nil {
		return nil, err
	}

	if existing, ok := m.resources[name]; ok {
		if existing.lockCount > 0 {
			return nil, fmt.Errorf("%w: %q", ErrResourceBusy, name)
		}
		if m.warnings != nil {
			m.warnings.RaiseWarning(except.DuplicateResourceLoad, name)
		}
	}

	m.resources[name] = r

	return r, nil
}

// UnloadResource releases a loaded resource. It fails with ErrResourceBusy
// while any voice still holds a lock on it.
func (m *Manager) UnloadResource(r *Resource) error {
	if r.lockCount > 0 {
		return fmt.Errorf("%w: %q", ErrResourceBusy, r.Name)
	}

	delete(m.resources, r.Name)

	return nil
}

// CreateVoiceDefinition registers an (initially empty) named list of
// resource names.
func (m *Manager) CreateVoiceDefinition(name string) error {
	if _, ok := m.voiceDefs[name]; ok {
		return fmt.Errorf("%w: %q", ErrNameConflict, name)
	}

	m.voiceDefs[name] = nil

	return nil
}

// AddResourceToVoiceDefinition appends a resource name to a voice
// definition's ordered resource list.
func (m *Manager) AddResourceToVoiceDefinition(vname, rname string) error {
	if _, ok := m.voiceDefs[vname]; !ok {
		return fmt.Errorf("%w: voice %q", ErrNameUndefined, vname)
	}

	m.voiceDefs[vname] = append(m.voiceDefs[vname], rname)

	return nil
}

// ReleaseVoiceDefinition removes a voice definition. It does not affect
// any Voice already created from it.
func (m *Manager) ReleaseVoiceDefinition(name string) {
	delete(m.voiceDefs, name)
}

// Voice is a fixed-size, id-indexed table of knowledge bases assembled
// from a voice definition's resource list (spec §3: Voice).
type Voice struct {
	Name      string
	KBs       map[byte]KnowledgeBase
	resources []*Resource
}

// KB looks up a knowledge base by id in this voice.
func (v *Voice) KB(id byte) (KnowledgeBase, bool) {
	kb, ok := v.KBs[id]

	return kb, ok
}

// CreateVoice resolves vname's resource list against loaded resources,
// locks each resource, and builds the id-indexed kb table. required lists
// kb ids that must be present across the assembled resources; a missing
// one fails with ErrKbMissing. A later resource's kb silently overwrites
// an earlier one with the same id, raising a KbOverwrite warning.
func (m *Manager) CreateVoice(vname string, required ...byte) (*Voice, error) {
	rnames, ok := m.voiceDefs[vname]
	if !ok {
		return nil, fmt.Errorf("%w: voice %q", ErrNameUndefined, vname)
	}

	v := &Voice{Name: vname, KBs: make(map[byte]KnowledgeBase)}

	for _, rname := range rnames {
		r, ok := m.resources[rname]
		if !ok {
			return nil, fmt.Errorf("%w: resource %q for voice %q", ErrResourceMissing, rname, vname)
		}

		for _, kb := range r.KBs {
			if _, exists := v.KBs[kb.ID]; exists && m.warnings != nil {
				m.warnings.RaiseWarning(except.KbOverwrite, kb.Name)
			}
			v.KBs[kb.ID] = kb
		}

		r.lockCount++
		v.resources = append(v.resources, r)
	}

	for _, id := range required {
		if _, ok := v.KBs[id]; !ok {
			m.ReleaseVoice(v)

			return nil, fmt.Errorf("%w: kb id %d for voice %q", ErrKbMissing, id, vname)
		}
	}

	return v, nil
}

// ReleaseVoice decrements the lock count of every resource the voice used
// and clears its kb table.
func (m *Manager) ReleaseVoice(v *Voice) {
	for _, r := range v.resources {
		if r.lockCount > 0 {
			r.lockCount--
		}
	}
	v.resources = nil
	v.KBs = nil
}
