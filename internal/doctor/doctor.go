// Package doctor provides resource-file preflight checks for pico-tts:
// magic scan, directory parsing, and knowledge-base coverage against a
// list of required knowledge-base ids.
package doctor

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/example/go-pico-tts/internal/resource"
)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// ResourceFiles is the list of resource file paths to load and scan.
	ResourceFiles []string
	// RequiredKBs lists knowledge-base ids every resource set must cover
	// collectively (empty means no coverage check).
	RequiredKBs []byte
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run loads each configured resource file, scans its magic and directory,
// and checks the union of knowledge-base ids against RequiredKBs. A nil
// log falls back to slog.Default().
func Run(cfg Config, log *slog.Logger) Result {
	if log == nil {
		log = slog.Default()
	}

	var res Result
	covered := make(map[byte]bool)

	for _, path := range cfg.ResourceFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			res.fail(fmt.Sprintf("resource file %q: %v", path, err))
			log.Error("resource file unreadable", "path", path, "err", err)
			continue
		}

		r, err := resource.LoadResource(path, data)
		if err != nil {
			res.fail(fmt.Sprintf("resource file %q: %v", path, err))
			log.Error("resource file failed to parse", "path", path, "err", err)
			continue
		}

		log.Info("resource file ok", "path", path, "kb_count", len(r.KBs))
		for _, kb := range r.KBs {
			covered[kb.ID] = true
			log.Debug("knowledge base", "path", path, "id", kb.ID, "name", kb.Name, "bytes", len(kb.Data))
		}
	}

	for _, id := range cfg.RequiredKBs {
		if !covered[id] {
			res.fail(fmt.Sprintf("no loaded resource provides knowledge base id %d", id))
			log.Error("missing required knowledge base", "id", id)
		}
	}

	if !res.Failed() {
		log.Info("all checks passed")
	}

	return res
}
