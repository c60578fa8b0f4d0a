package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapsite/internal/source"
	"github.com/leapstack-labs/leapsite/internal/state"
	"github.com/leapstack-labs/leapsite/pkg/core"
)

// holeMarker stands for "no listing entry" in --entry flags.
const holeMarker = "-"

// openStore opens the build state database, creating its directory and
// running migrations.
func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// parseDefines turns KEY=VALUE pairs into a record, in flag order.
func parseDefines(defines []string) (*core.Record, error) {
	rec := core.NewRecord()
	for _, def := range defines {
		key, value, ok := strings.Cut(def, "=")
		key = strings.TrimSpace(key)
		if !ok {
			return nil, fmt.Errorf("invalid definition %q: expected KEY=VALUE", def)
		}
		if !core.IsVariableName(key) {
			return nil, fmt.Errorf("invalid variable name %q: must match [A-Z][A-Z0-9_]*", key)
		}
		rec.Set(key, value)
	}
	return rec, nil
}

// loadRecords parses source documents in order.
func loadRecords(parser *source.Parser, paths []string) ([]*core.Record, error) {
	records := make([]*core.Record, 0, len(paths))
	for _, path := range paths {
		doc, err := parser.ParseFile(path)
		if err != nil {
			return nil, err
		}
		records = append(records, doc.Record)
	}
	return records, nil
}

// loadEntries parses listing entry sources. A holeMarker yields a nil record.
func loadEntries(parser *source.Parser, paths []string) ([]*core.Record, error) {
	entries := make([]*core.Record, 0, len(paths))
	for _, path := range paths {
		if path == holeMarker {
			entries = append(entries, nil)
			continue
		}
		doc, err := parser.ParseFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, doc.Record)
	}
	return entries, nil
}
