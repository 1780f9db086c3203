package driver

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"borrowck/internal/source"
	"borrowck/internal/trace"
)

// ListFiles returns the files under dir selected by opts.Files, sorted.
func ListFiles(dir string, opts Options) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && opts.Files.Excluded(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && opts.Files.Wants(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	slices.Sort(files)
	return files, nil
}

// CheckDir checks every selected file under dir on up to opts.Jobs workers.
// Results come back in path order and share one FileSet whose paths are
// relative to dir. The error reports a failed walk or cancellation; on
// cancellation the slots of unchecked files are nil.
func CheckDir(ctx context.Context, dir string, opts Options) ([]*Result, error) {
	ctx, span := trace.Start(ctx, trace.ScopeRun, "check_dir")
	span.With("dir", dir)
	defer span.End("")

	paths, err := ListFiles(dir, opts)
	if err != nil {
		return nil, err
	}
	span.With("files", fmt.Sprint(len(paths)))

	// every file is registered before the workers start; they only read
	fileSet := source.NewFileSetWithBase(dir)
	results := make([]*Result, len(paths))
	ids := make([]source.FileID, len(paths))
	loaded := make([]bool, len(paths))
	for i, path := range paths {
		id, loadErr := fileSet.Load(path)
		if loadErr != nil {
			emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusError, Err: loadErr})
			results[i] = loadFailed(fileSet, path, loadErr, &opts)
			continue
		}
		ids[i] = id
		loaded[i] = true
		emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	jobs = max(1, min(jobs, len(paths)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range paths {
		if !loaded[i] {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := checkFile(gctx, fileSet, ids[i], &opts)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
