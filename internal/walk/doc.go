// Package walk enumerates directory subtrees under one or more roots.
//
// A traversal starts at a root, reports it, and descends into child
// directories until the depth budget is spent. Any child whose base name
// starts with a forbidden prefix is pruned together with everything below it.
// Only directories are reported; files are never emitted.
//
// # Depth budget
//
// The budget counts levels below the root:
//
//	budget 0  -> root only
//	budget 1  -> root and its immediate subdirectories
//	Unlimited -> the whole subtree
//
// A negative budget behaves like 0.
//
// # Ordering
//
// Paths are emitted in pre-order. Siblings follow the order the filesystem
// lists them in, which is not necessarily lexicographic. When roots are
// walked in parallel (Options.Parallel) ordering is guaranteed only within
// each root.
//
// # Errors
//
// A directory that cannot be listed (permission denied, removed during the
// walk) does not stop the traversal. It is still reported, its children are
// skipped, and a *DirError is appended to Result.Diagnostics.
//
// # Usage
//
//	w := walk.NewWalker(nil)
//	out := walk.NewStreamEmitter(os.Stdout)
//	res, err := w.WalkRoots(ctx, []string{"/src"}, walk.Options{
//	    Forbidden: []string{".", "node_modules"},
//	    MaxDepth:  3,
//	}, out)
//	out.Flush()
//
// The filesystem is an afero.Fs, so tests can run against afero.NewMemMapFs().
package walk
