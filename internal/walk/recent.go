package walk

import (
	"context"
	"path/filepath"
	"time"
)

// RecentFile is a regular file whose modification time is after a cutoff.
type RecentFile struct {
	Path    string
	ModTime time.Time
}

// Recent reports regular files modified after since, found directly inside
// any directory the walk visits. Files are reported per directory in
// discovery order. Directories whose file listing fails are skipped; the
// walk's own diagnostics are returned in Result.
func (w *Walker) Recent(ctx context.Context, roots []string, opts Options, since time.Time, fn func(RecentFile) error) (Result, error) {
	visit := EmitFunc(func(dir string) error {
		f, err := w.fs.Open(dir)
		if err != nil {
			return nil
		}
		defer f.Close()

		infos, err := f.Readdir(-1)
		if err != nil {
			return nil
		}
		for _, info := range infos {
			if !info.Mode().IsRegular() || !info.ModTime().After(since) {
				continue
			}
			if err := fn(RecentFile{Path: filepath.Join(dir, info.Name()), ModTime: info.ModTime()}); err != nil {
				return err
			}
		}
		return nil
	})
	return w.WalkRoots(ctx, roots, opts, visit)
}
