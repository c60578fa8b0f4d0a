package site

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapsite/pkg/core"
	"github.com/zeebo/blake3"
)

// writer writes outputs below the output directory, skipping files whose
// content hash matches the one recorded by the previous build.
type writer struct {
	root    string
	store   core.Store
	force   bool
	buildID string
	logger  *slog.Logger

	written []string
	skipped []string
}

func newWriter(root string, store core.Store, force bool, logger *slog.Logger) *writer {
	return &writer{root: root, store: store, force: force, logger: logger}
}

func (w *writer) stats() core.BuildStats {
	return core.BuildStats{Written: len(w.written), Skipped: len(w.skipped)}
}

// write stores data at rel, a slash-separated path relative to the output
// directory.
func (w *writer) write(rel string, data []byte) error {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return fmt.Errorf("output path %q escapes the output directory", rel)
	}
	rel = filepath.ToSlash(filepath.Clean(local))
	full := filepath.Join(w.root, local)
	hash := contentHash(data)

	if w.store != nil && !w.force {
		prev, err := w.store.GetOutputHash(rel)
		if err != nil {
			return err
		}
		if prev == hash && fileExists(full) {
			w.skipped = append(w.skipped, rel)
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil { //nolint:gosec // site output is world readable
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	w.logger.Debug("wrote output", "path", rel, "bytes", len(data))
	w.written = append(w.written, rel)

	if w.store != nil {
		if err := w.store.SetOutputHash(rel, hash, w.buildID); err != nil {
			return err
		}
	}
	return nil
}

func contentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
