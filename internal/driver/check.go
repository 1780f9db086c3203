// Package driver runs the check pipeline: load, parse, lower to MIR and
// borrow check every function, collecting diagnostics per file.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"borrowck/internal/ast"
	"borrowck/internal/borrowck"
	"borrowck/internal/config"
	"borrowck/internal/diag"
	"borrowck/internal/lexer"
	"borrowck/internal/mir"
	"borrowck/internal/observ"
	"borrowck/internal/parser"
	"borrowck/internal/source"
	"borrowck/internal/trace"
)

// Options configures a check run.
type Options struct {
	Borrow borrowck.Options
	// MaxDiagnostics caps the bag of each file; 0 means unlimited.
	MaxDiagnostics int
	// Timings attaches a per-stage report to every Result.
	Timings bool
	// Cache, when set, replays diagnostics of unchanged files. Results
	// served from the cache carry no MIR.
	Cache *DiskCache
	// KeepMIR retains lowered functions and analyses in the Result and
	// bypasses the cache.
	KeepMIR  bool
	Progress ProgressSink
	// Files filters the directory walk of CheckDir.
	Files config.Files
	// Jobs bounds CheckDir parallelism; <= 0 uses GOMAXPROCS.
	Jobs int
}

// Result is the outcome of checking one file.
type Result struct {
	Path    string
	FileSet *source.FileSet
	File    source.FileID
	Bag     *diag.Bag
	// Funcs and Analyses are filled only with KeepMIR.
	Funcs    []*mir.Func
	Analyses []*borrowck.Result
	Timing   *observ.Report
	Cached   bool
}

// FromConfig maps project settings onto Options.
func FromConfig(cfg config.Config) Options {
	return Options{
		Borrow: borrowck.Options{
			MaxIterations:        cfg.Analysis.MaxIterations,
			SplitConstantIndices: cfg.Analysis.SplitConstantIndices,
		},
		MaxDiagnostics: cfg.Output.MaxDiagnostics,
		Files:          cfg.Files,
	}
}

// HasErrors reports whether any error diagnostic was produced.
func (r *Result) HasErrors() bool {
	return r != nil && r.Bag != nil && r.Bag.HasErrors()
}

// CheckSource checks src as a virtual file called name. The error is
// non-nil only when ctx is cancelled; problems with the program are
// diagnostics in the Result.
func CheckSource(ctx context.Context, name string, src []byte, opts Options) (*Result, error) {
	fs := source.NewFileSet()
	id := fs.AddVirtual(name, src)
	return checkFile(ctx, fs, id, &opts)
}

// CheckFile loads and checks the file at path. A file that cannot be read
// yields an IO5001 diagnostic, not an error.
func CheckFile(ctx context.Context, path string, opts Options) (*Result, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusError, Err: err})
		return loadFailed(fs, path, err, &opts), nil
	}
	return checkFile(ctx, fs, id, &opts)
}

// loadFailed registers an empty stand-in for path so the diagnostic has a
// file to point at.
func loadFailed(fs *source.FileSet, path string, err error, opts *Options) *Result {
	id := fs.AddVirtual(path, nil)
	cause := err
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		cause = pathErr.Err
	}
	bag := diag.NewBag(opts.MaxDiagnostics)
	bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{File: id}, fmt.Sprintf("cannot read %s: %v", path, cause)))
	return &Result{Path: path, FileSet: fs, File: id, Bag: bag}
}

func checkFile(ctx context.Context, fs *source.FileSet, id source.FileID, opts *Options) (*Result, error) {
	file := fs.Get(id)
	res := &Result{Path: file.Path, FileSet: fs, File: id}

	ctx, span := trace.Start(ctx, trace.ScopeFile, "check_file")
	span.With("file", file.Path)
	timer := observ.NewTimer()
	status := "ok"
	defer func() {
		if opts.Timings {
			rep := timer.Report()
			res.Timing = &rep
		}
		span.End(status)
	}()

	useCache := opts.Cache != nil && !opts.KeepMIR
	var key Digest
	var cacheErr error
	if useCache {
		key = cacheKey(file, opts)
		idx := timer.Begin("cache")
		entry, hit, err := opts.Cache.get(key)
		timer.End(idx, "")
		if hit {
			res.Bag = entry.restore(id, opts.MaxDiagnostics)
			res.Cached = true
			status = "cached"
			trace.Point(ctx, trace.ScopePass, "cache_hit", file.Path)
			emit(opts.Progress, Event{File: file.Path, Stage: StageBorrowck, Status: StatusCached})
			return res, nil
		}
		cacheErr = err
	}

	res.Bag = diag.NewBag(opts.MaxDiagnostics)
	// parser resync can report the same problem twice
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag})
	var pending []*diag.Diagnostic
	if cacheErr != nil {
		// kept out of the rebuilt entry
		pending = append(pending, diag.New(diag.SevWarning, diag.IOCacheError, source.Span{File: id}, fmt.Sprintf("ignoring cache entry: %v", cacheErr)))
	}

	// parse
	if err := ctx.Err(); err != nil {
		status = "cancelled"
		return res, err
	}
	emit(opts.Progress, Event{File: file.Path, Stage: StageParse, Status: StatusWorking})
	_, pass := trace.Start(ctx, trace.ScopePass, "parse")
	began := time.Now()
	idx := timer.Begin("parse")
	builder := ast.NewBuilder(ast.Hints{}, nil)
	lx := lexer.New(file, lexer.Options{Reporter: reporter})
	parsed := parser.ParseFile(lx, builder, parser.Options{Reporter: reporter})
	timer.End(idx, "")
	if n := reporter.Suppressed(); n > 0 {
		pass.With("duplicates", fmt.Sprint(n))
	}
	pass.End("")
	if res.Bag.HasErrors() {
		status = "syntax_errors"
		emit(opts.Progress, Event{File: file.Path, Stage: StageParse, Status: StatusError, Elapsed: time.Since(began)})
		return finish(res, key, useCache, opts, pending), nil
	}

	// lower
	if err := ctx.Err(); err != nil {
		status = "cancelled"
		return res, err
	}
	emit(opts.Progress, Event{File: file.Path, Stage: StageLower, Status: StatusWorking})
	_, pass = trace.Start(ctx, trace.ScopePass, "lower_mir")
	idx = timer.Begin("lower_mir")
	module, lowerErr := mir.LowerFile(builder, parsed.File, mir.LowerOptions{Reporter: reporter})
	timer.End(idx, fmt.Sprintf("%d fns", len(module.Funcs)))
	pass.With("funcs", fmt.Sprint(len(module.Funcs)))
	pass.End("")
	if lowerErr != nil {
		res.Bag.Add(diag.NewError(diag.InternalMalformedMIR, source.Span{File: id}, lowerErr.Error()))
	}
	if opts.KeepMIR {
		res.Funcs = module.Funcs
	}

	// borrowck
	emit(opts.Progress, Event{File: file.Path, Stage: StageBorrowck, Status: StatusWorking})
	passCtx, pass := trace.Start(ctx, trace.ScopePass, "borrowck")
	idx = timer.Begin("borrowck")
	for _, fn := range module.Funcs {
		if err := ctx.Err(); err != nil {
			timer.End(idx, "cancelled")
			pass.End("cancelled")
			status = "cancelled"
			return res, err
		}
		analysis := checkFunc(passCtx, fn, opts, res.Bag)
		if opts.KeepMIR {
			res.Analyses = append(res.Analyses, analysis)
		}
	}
	timer.End(idx, "")
	pass.End("")

	stageStatus := StatusDone
	if res.Bag.HasErrors() {
		status = "errors"
		stageStatus = StatusError
	}
	emit(opts.Progress, Event{File: file.Path, Stage: StageBorrowck, Status: stageStatus, Elapsed: time.Since(began)})
	return finish(res, key, useCache, opts, pending), nil
}

// checkFunc borrow checks one function and reports into bag. The analysis
// is nil when the check could not complete.
func checkFunc(ctx context.Context, fn *mir.Func, opts *Options, bag *diag.Bag) *borrowck.Result {
	_, span := trace.Start(ctx, trace.ScopeFunc, fn.Name)
	out, err := borrowck.Check(fn, opts.Borrow)
	switch {
	case errors.Is(err, borrowck.ErrAnalysisLimit):
		bag.Add(diag.NewError(diag.InternalAnalysisLimit, fn.Span,
			fmt.Sprintf("borrow check of %s gave up: %v", fn.Name, err)).
			WithNote(fn.Span, fmt.Sprintf("raise [analysis].max_iterations (currently %d)", opts.Borrow.Limit())))
		span.End("limit")
		return nil
	case err != nil:
		bag.Add(diag.NewError(diag.InternalMalformedMIR, fn.Span, err.Error()))
		span.End("malformed")
		return nil
	}
	out.Report(diag.BagReporter{Bag: bag})
	span.With("loans", fmt.Sprint(len(out.Loans)))
	span.End(fmt.Sprintf("%d violations", len(out.Diagnostics)))
	return out
}

// finish sorts the bag and stores it in the cache. Warnings in pending
// are added afterwards, so the cache entry never contains them.
func finish(res *Result, key Digest, useCache bool, opts *Options, pending []*diag.Diagnostic) *Result {
	res.Bag.Sort()
	if useCache {
		if err := opts.Cache.put(key, toCached(res.Bag)); err != nil {
			pending = append(pending, diag.New(diag.SevWarning, diag.IOCacheError, source.Span{File: res.File}, fmt.Sprintf("cannot write cache entry: %v", err)))
		}
	}
	if len(pending) == 0 {
		return res
	}
	for _, d := range pending {
		res.Bag.Add(d)
	}
	res.Bag.Sort()
	return res
}
