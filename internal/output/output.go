// Package output writes the run's artifacts atomically.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// Standard artifact names.
const (
	LiveText     = "live.txt"
	LivePlaylist = "live.m3u"
	LiteText     = "live_lite.txt"
	LitePlaylist = "live_lite.m3u"
	OthersText   = "others.txt"
)

// Writer places files under Dir.
type Writer struct {
	Dir string
	Log zerolog.Logger
}

// WriteFile replaces name under Dir with data: the content goes to a temp
// file that is fsynced and renamed over the target, so readers never see a
// partial artifact.
func (w *Writer) WriteFile(name string, data []byte) (err error) {
	path := filepath.Join(w.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending %s: %w", name, err)
	}
	defer func() {
		if cerr := pending.Cleanup(); cerr != nil {
			w.Log.Debug().Err(cerr).Str("path", path).Msg("cleanup pending file")
		}
	}()
	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// WriteFrom streams r into name under Dir with the same guarantees as
// WriteFile.
func (w *Writer) WriteFrom(name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return w.WriteFile(name, data)
}

// WriteAll writes every artifact in files, in name order, stopping at the
// first failure. It returns the paths written.
func (w *Writer) WriteAll(files map[string][]byte) ([]string, error) {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	written := make([]string, 0, len(names))
	for _, n := range names {
		if err := w.WriteFile(n, files[n]); err != nil {
			return written, err
		}
		written = append(written, filepath.Join(w.Dir, n))
	}
	return written, nil
}
