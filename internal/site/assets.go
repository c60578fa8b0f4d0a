package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// minifyLoaders maps static file extensions to the esbuild loader used to
// minify them.
var minifyLoaders = map[string]api.Loader{
	".css": api.LoaderCSS,
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
}

// copyStatic copies the static directory into the output directory,
// preserving relative paths.
func (g *Generator) copyStatic(ctx context.Context, w *writer) error {
	root := g.cfg.StaticDir
	if root == "" {
		return nil
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the static directory walk
		if err != nil {
			return fmt.Errorf("failed to read static file %s: %w", path, err)
		}
		if loader, ok := minifyLoaders[strings.ToLower(filepath.Ext(path))]; ok && g.cfg.MinifyAssets {
			data, err = minify(path, data, loader)
			if err != nil {
				return err
			}
		}
		return w.write(filepath.ToSlash(rel), data)
	})
}

// minify minifies CSS or JavaScript source with esbuild.
func minify(path string, data []byte, loader api.Loader) ([]byte, error) {
	result := api.Transform(string(data), api.TransformOptions{
		Loader:            loader,
		Sourcefile:        path,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		var msgs strings.Builder
		for _, msg := range result.Errors {
			if msg.Location != nil {
				fmt.Fprintf(&msgs, "%s:%d:%d: %s\n", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
			} else {
				fmt.Fprintf(&msgs, "%s\n", msg.Text)
			}
		}
		return nil, fmt.Errorf("failed to minify %s:\n%s", path, msgs.String())
	}
	return result.Code, nil
}
