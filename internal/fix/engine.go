// Package fix applies the edits attached to diagnostics back to source
// files.
package fix

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeOnce ApplyMode = iota
	ApplyModeAll
	ApplyModeID
)

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
	// DryRun computes the new contents without writing files.
	DryRun bool
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID            string
	Title         string
	Code          diag.Code
	Message       string
	Applicability diag.FixApplicability
	PrimaryPath   string
	EditCount     int
}

// SkippedFix captures a skipped or failed fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	EditCount int
	Content   []byte
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	diag  *diag.Diagnostic
	fix   *diag.Fix
	id    string
	order int
}

// Apply collects fixes from diagnostics, selects a subset according to opts,
// and applies them. Files are rewritten unless opts.DryRun is set.
func Apply(fs *source.FileSet, diagnostics []*diag.Diagnostic, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{}
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}

	candidates, skips := gatherCandidates(diagnostics)
	result.Skipped = append(result.Skipped, skips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}
	sortCandidates(candidates)

	selected, skips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, skips...)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	applied, skips, changes, err := applyCandidates(fs, selected, opts.DryRun)
	result.Applied = append(result.Applied, applied...)
	result.Skipped = append(result.Skipped, skips...)
	result.FileChanges = append(result.FileChanges, changes...)
	if err != nil {
		return result, err
	}
	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, nil
}

// gatherCandidates turns every fix into a candidate with a stable id of the
// form CODE-file-offset-index. A fix whose edits repeat an earlier fix is
// skipped: two diagnostics on one binding both suggest the same `mut`.
func gatherCandidates(diagnostics []*diag.Diagnostic) ([]candidate, []SkippedFix) {
	var cands []candidate
	var skips []SkippedFix
	seen := make(map[string]string)

	for _, d := range diagnostics {
		if d == nil {
			continue
		}
		for idx, f := range d.Fixes {
			if f == nil {
				continue
			}
			id := fmt.Sprintf("%s-%d-%d-%d", d.Code.ID(), d.Primary.File, d.Primary.Start, idx)
			if len(f.Edits) == 0 {
				skips = append(skips, SkippedFix{ID: id, Title: f.Title, Reason: "fix has no edits"})
				continue
			}
			key := editsKey(f.Edits)
			if first, dup := seen[key]; dup {
				skips = append(skips, SkippedFix{ID: id, Title: f.Title, Reason: "duplicate of " + first})
				continue
			}
			seen[key] = id
			cands = append(cands, candidate{diag: d, fix: f, id: id, order: len(cands)})
		}
	}
	return cands, skips
}

func editsKey(edits []diag.FixEdit) string {
	var sb strings.Builder
	for _, e := range edits {
		fmt.Fprintf(&sb, "%d:%d:%d:%q;", e.Span.File, e.Span.Start, e.Span.End, e.NewText)
	}
	return sb.String()
}

// sortCandidates orders by file, span and then insertion order.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := candidates[i].diag, candidates[j].diag
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		return candidates[i].order < candidates[j].order
	})
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		for _, cand := range candidates {
			if cand.id == opts.TargetID {
				return []candidate{cand}, nil
			}
		}
		return nil, []SkippedFix{{ID: opts.TargetID, Reason: "fix id not found"}}
	case ApplyModeAll:
		var selected []candidate
		var skipped []SkippedFix
		for _, cand := range candidates {
			if cand.fix.Applicability == diag.FixApplicabilityAlwaysSafe {
				selected = append(selected, cand)
				continue
			}
			skipped = append(skipped, SkippedFix{
				ID:     cand.id,
				Title:  cand.fix.Title,
				Reason: "applicability is " + cand.fix.Applicability.String(),
			})
		}
		return selected, skipped
	case ApplyModeOnce:
		// first safe fix, otherwise the first fix at all
		for _, cand := range candidates {
			if cand.fix.Applicability == diag.FixApplicabilityAlwaysSafe {
				return []candidate{cand}, nil
			}
		}
		return candidates[:1], nil
	default:
		return nil, nil
	}
}

// applyCandidates applies fixes in order. Edit spans refer to the original
// text; applied edits are remembered per file so later offsets can be
// shifted by the length change of everything before them.
func applyCandidates(fs *source.FileSet, selected []candidate, dryRun bool) ([]AppliedFix, []SkippedFix, []FileChange, error) {
	buffers := make(map[source.FileID][]byte)
	appliedEdits := make(map[source.FileID][]diag.FixEdit)
	editCount := make(map[source.FileID]int)

	var applied []AppliedFix
	var skipped []SkippedFix

	for _, cand := range selected {
		staged, n, reason := stage(fs, cand.fix.Edits, buffers, appliedEdits)
		if reason != "" {
			skipped = append(skipped, SkippedFix{ID: cand.id, Title: cand.fix.Title, Reason: reason})
			continue
		}
		for fileID, st := range staged {
			buffers[fileID] = st.buf
			appliedEdits[fileID] = st.edits
			editCount[fileID] += st.count
		}
		applied = append(applied, AppliedFix{
			ID:            cand.id,
			Title:         cand.fix.Title,
			Code:          cand.diag.Code,
			Message:       cand.diag.Message,
			Applicability: cand.fix.Applicability,
			PrimaryPath:   formatFilePath(fs, cand.diag.Primary.File),
			EditCount:     n,
		})
	}
	if len(applied) == 0 {
		return applied, skipped, nil, nil
	}

	ids := make([]source.FileID, 0, len(buffers))
	for id := range buffers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	changes := make([]FileChange, 0, len(ids))
	for _, id := range ids {
		file := fs.Get(id)
		buf := buffers[id]
		if !dryRun {
			mode := os.FileMode(0o644)
			if info, err := os.Stat(file.Path); err == nil {
				mode = info.Mode()
			}
			if err := os.WriteFile(file.Path, buf, mode); err != nil {
				return applied, skipped, changes, fmt.Errorf("write %s: %w", file.Path, err)
			}
		}
		changes = append(changes, FileChange{
			Path:      file.FormatPath("auto", fs.BaseDir()),
			EditCount: editCount[id],
			Content:   buf,
		})
	}
	return applied, skipped, changes, nil
}

type stagedFile struct {
	buf   []byte
	edits []diag.FixEdit
	count int
}

// stage applies the edits of one fix on copies of the current buffers. A
// non-empty reason means the fix was rejected and nothing changed.
func stage(fs *source.FileSet, edits []diag.FixEdit, buffers map[source.FileID][]byte, appliedEdits map[source.FileID][]diag.FixEdit) (map[source.FileID]stagedFile, int, string) {
	staged := make(map[source.FileID]stagedFile)
	total := 0
	for fileID, fileEdits := range groupEditsByFile(edits) {
		file := fs.Get(fileID)
		if file == nil {
			return nil, 0, "target file is unknown"
		}
		if file.Flags&source.FileVirtual != 0 {
			return nil, 0, "target file is virtual"
		}
		if conflictsWithExisting(appliedEdits[fileID], fileEdits) {
			return nil, 0, "conflicts with previously applied edits in " + file.FormatPath("auto", fs.BaseDir())
		}

		base := buffers[fileID]
		if base == nil {
			base = file.Content
		}
		working := append([]byte(nil), base...)
		done := append([]diag.FixEdit(nil), appliedEdits[fileID]...)

		// back to front so earlier offsets of this fix stay valid
		sort.SliceStable(fileEdits, func(i, j int) bool {
			if fileEdits[i].Span.Start == fileEdits[j].Span.Start {
				return fileEdits[i].Span.End > fileEdits[j].Span.End
			}
			return fileEdits[i].Span.Start > fileEdits[j].Span.Start
		})
		for _, edit := range fileEdits {
			start := int(edit.Span.Start) + cumulativeDelta(done, int(edit.Span.Start))
			end := int(edit.Span.End) + cumulativeDelta(done, int(edit.Span.End))
			if start < 0 || end < start || end > len(working) {
				return nil, 0, "edit span out of range"
			}
			if edit.OldText != "" && string(working[start:end]) != edit.OldText {
				return nil, 0, "existing text does not match expected content"
			}
			suffix := append([]byte(nil), working[end:]...)
			working = append(append(working[:start], edit.NewText...), suffix...)
			done = insertEditSorted(done, edit)
		}
		staged[fileID] = stagedFile{buf: working, edits: done, count: len(fileEdits)}
		total += len(fileEdits)
	}
	return staged, total, ""
}

func conflictsWithExisting(existing, edits []diag.FixEdit) bool {
	for _, prev := range existing {
		for _, cand := range edits {
			if spansConflict(prev, cand) {
				return true
			}
		}
	}
	return false
}

// spansConflict reports whether two edits overlap as half-open intervals.
// Two insertions never conflict; an insertion conflicts with a span that
// strictly contains its position.
func spansConflict(a, b diag.FixEdit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End

	if aStart == aEnd && bStart == bEnd {
		return false
	}
	if aStart == aEnd {
		return bStart < aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart < bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

func groupEditsByFile(edits []diag.FixEdit) map[source.FileID][]diag.FixEdit {
	buckets := make(map[source.FileID][]diag.FixEdit)
	for _, edit := range edits {
		buckets[edit.Span.File] = append(buckets[edit.Span.File], edit)
	}
	return buckets
}

// cumulativeDelta is the length change of applied edits that end at or
// before pos.
func cumulativeDelta(edits []diag.FixEdit, pos int) int {
	delta := 0
	for _, e := range edits {
		eStart := int(e.Span.Start)
		if eStart > pos {
			break
		}
		eEnd := int(e.Span.End)
		if eEnd <= pos {
			delta += len(e.NewText) - (eEnd - eStart)
		}
	}
	return delta
}

func insertEditSorted(edits []diag.FixEdit, edit diag.FixEdit) []diag.FixEdit {
	i := sort.Search(len(edits), func(i int) bool {
		if edits[i].Span.Start == edit.Span.Start {
			return edits[i].Span.End >= edit.Span.End
		}
		return edits[i].Span.Start > edit.Span.Start
	})
	return slices.Insert(edits, i, edit)
}

func formatFilePath(fs *source.FileSet, fileID source.FileID) string {
	file := fs.Get(fileID)
	if file == nil {
		return ""
	}
	return file.FormatPath("auto", fs.BaseDir())
}
