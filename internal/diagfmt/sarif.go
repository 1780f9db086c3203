package diagfmt

import (
	"cmp"
	"encoding/json"
	"io"
	"path/filepath"
	"slices"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

const sarifSchema = "https://json.schemastore.org/sarif-2.1.0.json"

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID           string          `json:"ruleId"`
	Level            string          `json:"level"`
	Message          sarifMessage    `json:"message"`
	Locations        []sarifLocation `json:"locations"`
	RelatedLocations []sarifLocation `json:"relatedLocations,omitempty"`
	Fixes            []sarifFix      `json:"fixes,omitempty"`
}

type sarifLocation struct {
	ID               int                   `json:"id,omitempty"`
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
	Message          *sarifMessage         `json:"message,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn"`
	EndLine     uint32 `json:"endLine"`
	EndColumn   uint32 `json:"endColumn"`
}

type sarifFix struct {
	Description     sarifMessage          `json:"description"`
	ArtifactChanges []sarifArtifactChange `json:"artifactChanges"`
}

type sarifArtifactChange struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Replacements     []sarifReplacement    `json:"replacements"`
}

type sarifReplacement struct {
	DeletedRegion   sarifRegion  `json:"deletedRegion"`
	InsertedContent sarifMessage `json:"insertedContent"`
}

// Sarif writes one SARIF 2.1.0 run covering every input.
func Sarif(w io.Writer, meta SarifRunMeta, inputs ...Input) error {
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           meta.ToolName,
			Version:        meta.ToolVersion,
			InformationURI: meta.InformationURI,
		}},
		Results: []sarifResult{},
	}
	rules := make(map[diag.Code]struct{})
	failed := false

	for _, in := range inputs {
		if in.Bag == nil || in.FileSet == nil {
			continue
		}
		for _, d := range in.Bag.Items() {
			rules[d.Code] = struct{}{}
			if d.Severity == diag.SevError {
				failed = true
			}
			run.Results = append(run.Results, sarifResultOf(d, in.FileSet))
		}
	}

	codes := make([]diag.Code, 0, len(rules))
	for c := range rules {
		codes = append(codes, c)
	}
	slices.SortFunc(codes, func(a, b diag.Code) int { return cmp.Compare(a, b) })
	run.Tool.Driver.Rules = make([]sarifRule, len(codes))
	for i, c := range codes {
		run.Tool.Driver.Rules[i] = sarifRule{ID: c.ID(), ShortDescription: sarifMessage{Text: c.Title()}}
	}
	if meta.InvocationArgs != nil {
		run.Invocations = []sarifInvocation{{Arguments: meta.InvocationArgs, ExecutionSuccessful: !failed}}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarifLog{Schema: sarifSchema, Version: "2.1.0", Runs: []sarifRun{run}})
}

func sarifResultOf(d *diag.Diagnostic, fs *source.FileSet) sarifResult {
	res := sarifResult{
		RuleID:    d.Code.ID(),
		Level:     sarifLevel(d.Severity),
		Message:   sarifMessage{Text: d.Message},
		Locations: []sarifLocation{{PhysicalLocation: sarifPhysical(fs, d.Primary)}},
	}
	for i, n := range d.Notes {
		res.RelatedLocations = append(res.RelatedLocations, sarifLocation{
			ID:               i + 1,
			PhysicalLocation: sarifPhysical(fs, n.Span),
			Message:          &sarifMessage{Text: n.Msg},
		})
	}
	for _, fix := range d.Fixes {
		sf := sarifFix{Description: sarifMessage{Text: fix.Title}}
		for _, edit := range fix.Edits {
			loc := sarifPhysical(fs, edit.Span)
			sf.ArtifactChanges = append(sf.ArtifactChanges, sarifArtifactChange{
				ArtifactLocation: loc.ArtifactLocation,
				Replacements: []sarifReplacement{{
					DeletedRegion:   loc.Region,
					InsertedContent: sarifMessage{Text: edit.NewText},
				}},
			})
		}
		res.Fixes = append(res.Fixes, sf)
	}
	return res
}

func sarifLevel(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

func sarifPhysical(fs *source.FileSet, span source.Span) sarifPhysicalLocation {
	if int(span.File) >= fs.Len() {
		return sarifPhysicalLocation{}
	}
	f := fs.Get(span.File)
	start, end := fs.Resolve(span)
	return sarifPhysicalLocation{
		ArtifactLocation: sarifArtifactLocation{URI: filepath.ToSlash(f.FormatPath("relative", fs.BaseDir()))},
		Region: sarifRegion{
			StartLine:   start.Line,
			StartColumn: start.Col,
			EndLine:     end.Line,
			EndColumn:   end.Col,
		},
	}
}
