package walk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Unlimited is the depth budget used when no limit is configured.
const Unlimited = math.MaxInt32

// defaultConcurrency caps the number of roots walked at once in parallel mode.
const defaultConcurrency = 8

// Options configures a multi-root traversal
type Options struct {
	// Forbidden lists directory name prefixes that are never descended into
	Forbidden []string
	// MaxDepth is the depth budget per root (0 = report roots only)
	MaxDepth int
	// Parallel walks roots concurrently; ordering is then only root-local
	Parallel bool
	// Concurrency limits concurrent roots in parallel mode (0 = default)
	Concurrency int
}

// Result summarizes a traversal
type Result struct {
	// Records is the number of directory paths emitted
	Records int
	// Diagnostics contains non-fatal listing errors (*DirError), in discovery order
	Diagnostics []error
}

func (r *Result) merge(other Result) {
	r.Records += other.Records
	r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
}

// Walker performs depth-bounded, prefix-pruned directory traversals over an afero filesystem.
type Walker struct {
	fs afero.Fs
}

// NewWalker returns a Walker reading from fsys. A nil fsys means the host filesystem.
func NewWalker(fsys afero.Fs) *Walker {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Walker{fs: fsys}
}

type frame struct {
	path   string
	budget int
}

// Walk emits dir and every directory below it that is reachable within depth
// levels without passing through a directory whose name matches a forbidden
// prefix. Paths are emitted in pre-order, children in directory-listing order.
//
// dir itself is always emitted, even if its own name is forbidden. An empty
// dir is a no-op. A directory that cannot be listed is recorded in
// Result.Diagnostics and its siblings are still visited. The returned error
// is non-nil only when the root cannot be resolved, the emitter fails, or ctx
// is cancelled; records emitted before that point stay emitted.
func (w *Walker) Walk(ctx context.Context, dir string, forbidden []string, depth int, emit Emitter) (Result, error) {
	var res Result
	if dir == "" {
		return res, nil
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return res, fmt.Errorf("failed to resolve root %s: %w", dir, err)
	}

	stack := []frame{{path: root, budget: depth}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := emit.Emit(cur.path); err != nil {
			return res, fmt.Errorf("failed to emit %s: %w", cur.path, err)
		}
		res.Records++

		if cur.budget <= 0 {
			continue
		}

		children, err := w.childDirs(cur.path, forbidden)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, &DirError{Path: cur.path, Err: err})
			continue
		}

		// Push in reverse so the first listed child is visited first.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{path: children[i], budget: cur.budget - 1})
		}
	}

	return res, nil
}

// childDirs lists the allowed subdirectories of dir in listing order.
// Symlinks are not followed: afero.OsFs reports them via Lstat, so a link to
// a directory is not a directory here.
func (w *Walker) childDirs(dir string, forbidden []string) ([]string, error) {
	f, err := w.fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	infos, err := f.Readdir(-1)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, info := range infos {
		if !info.IsDir() || !IsAllowed(info.Name(), forbidden) {
			continue
		}
		child := filepath.Join(dir, info.Name())
		if child == dir || child == string(filepath.Separator) {
			continue
		}
		dirs = append(dirs, child)
	}
	return dirs, nil
}

// WalkRoots walks every root with the same options into emit.
// A failure while walking one root never prevents the remaining roots from
// being attempted; such failures are joined into the returned error. Only
// cancellation of ctx stops the traversal early.
func (w *Walker) WalkRoots(ctx context.Context, roots []string, opts Options, emit Emitter) (Result, error) {
	var total Result
	if len(roots) == 0 {
		return total, fmt.Errorf("%w: no roots to walk", ErrInvalidInput)
	}

	if opts.Parallel && len(roots) > 1 {
		return w.walkParallel(ctx, roots, opts, Synchronized(emit))
	}

	var errs []error
	for _, root := range roots {
		res, err := w.Walk(ctx, root, opts.Forbidden, opts.MaxDepth, emit)
		total.merge(res)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return total, ctxErr
			}
			errs = append(errs, fmt.Errorf("root %s: %w", root, err))
		}
	}
	return total, errors.Join(errs...)
}

// walkParallel walks roots concurrently using errgroup.
// Each goroutine stores its own result; none returns an error to the group so
// one failing root never cancels the others.
func (w *Walker) walkParallel(ctx context.Context, roots []string, opts Options, emit Emitter) (Result, error) {
	results := make([]Result, len(roots))
	errs := make([]error, len(roots))

	limit := opts.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, root := range roots {
		g.Go(func() error {
			res, err := w.Walk(ctx, root, opts.Forbidden, opts.MaxDepth, emit)
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("root %s: %w", root, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var total Result
	for _, res := range results {
		total.merge(res)
	}
	if err := ctx.Err(); err != nil {
		return total, err
	}
	return total, errors.Join(errs...)
}
