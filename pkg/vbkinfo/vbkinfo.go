// Package vbkinfo is the library-facing entry point for inspecting
// Veeam VBK/VIB backup container files, wrapping the internal parser and
// report renderer behind a stable progress-reporting API.
package vbkinfo

import (
	"context"
	"errors"
	"time"

	internalreport "github.com/autobrr/go-vbkinfo/internal/report"
	internalsettings "github.com/autobrr/go-vbkinfo/internal/settings"
	"github.com/autobrr/go-vbkinfo/internal/vbk"
)

// Stage represents a coarse progress stage for Run.
type Stage string

const (
	StageOpening  Stage = "opening"
	StageOpened   Stage = "opened"
	StageWalking  Stage = "walking"
	StageWalked   Stage = "walked"
	StageDone     Stage = "done"
)

// ProgressEvent is emitted when Run transitions between major phases.
type ProgressEvent struct {
	Stage      Stage
	Path       string
	Entries    int
	Elapsed    time.Duration
	OccurredAt time.Time
}

// Settings are library-facing scan and report controls.
type Settings struct {
	ValidateBlocks      bool
	MaxDirectoryDepth   int
	ReportFileName      string
	IncludeVersionNotes bool
	SummaryOnly         bool
	MaxBlocksShown      int
}

// DefaultSettings returns library defaults equivalent to CLI defaults.
func DefaultSettings(reportBaseDir string) Settings {
	return fromInternalSettings(internalsettings.Default(reportBaseDir))
}

// Options configure one Run call for a single container file.
type Options struct {
	Path       string
	ReportPath string
	Settings   Settings
	OnProgress func(ProgressEvent)
}

// FileInfo contains high-level container metadata.
type FileInfo struct {
	Path        string
	Kind        string
	SizeBytes   int64
	DigestType  string
	HeaderVersion uint32
	BankCount   int
	MaxBanks    uint32
}

// EntryInfo is a flattened directory entry.
type EntryInfo struct {
	Path     string
	Type     string
	IsDir    bool
	FibSize  uint64
	IncSize  uint64
}

// Result contains structured scan output plus rendered report content.
type Result struct {
	File       FileInfo
	Entries    []EntryInfo
	Report     string
	ReportPath string
}

// Run opens one container path and returns structured output plus
// rendered report content. The report is written to options.ReportPath
// when it is set, otherwise to options.Settings.ReportFileName ("-" writes
// it to stdout); the rendered content is also returned in Result.Report.
func Run(ctx context.Context, options Options) (Result, error) {
	if options.Path == "" {
		return Result{}, errors.New("path is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	emit(options.OnProgress, ProgressEvent{Stage: StageOpening, Path: options.Path, OccurredAt: time.Now()})

	p, err := vbk.Open(options.Path)
	if err != nil {
		return Result{}, err
	}
	defer p.Close()

	emit(options.OnProgress, ProgressEvent{Stage: StageOpened, Path: options.Path, OccurredAt: time.Now()})

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	cfg := toInternalSettings(options.Settings)
	emit(options.OnProgress, ProgressEvent{Stage: StageWalking, Path: options.Path, OccurredAt: time.Now()})

	var tree []vbk.DirNode
	if cfg.MaxDirectoryDepth > 0 {
		tree, err = p.WalkDirectoryDepth(p.Root(), cfg.MaxDirectoryDepth)
	} else {
		tree, err = p.WalkDirectory(p.Root())
	}
	if err != nil {
		return Result{}, err
	}

	entries := flatten(tree, "")
	emit(options.OnProgress, ProgressEvent{
		Stage:      StageWalked,
		Path:       options.Path,
		Entries:    len(entries),
		Elapsed:    time.Since(start),
		OccurredAt: time.Now(),
	})

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	reportName := options.ReportPath
	if reportName == "" {
		reportName = cfg.ReportFileName
	}
	reportPath, reportContent, err := internalreport.WriteReport(reportName, p, tree, cfg)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		File:       buildFileInfo(p),
		Entries:    entries,
		Report:     reportContent,
		ReportPath: reportPath,
	}

	emit(options.OnProgress, ProgressEvent{
		Stage:      StageDone,
		Path:       options.Path,
		Elapsed:    time.Since(start),
		OccurredAt: time.Now(),
	})

	return result, nil
}

func emit(cb func(ProgressEvent), event ProgressEvent) {
	if cb != nil {
		cb(event)
	}
}

func flatten(nodes []vbk.DirNode, prefix string) []EntryInfo {
	var out []EntryInfo
	for _, node := range nodes {
		item := node.Item
		path := prefix + "/" + item.Name
		out = append(out, EntryInfo{
			Path:    path,
			Type:    item.FileType.String(),
			IsDir:   item.IsDir(),
			FibSize: item.FibSize,
			IncSize: item.IncSize,
		})
		if item.IsDir() {
			out = append(out, flatten(node.Children, path)...)
		}
	}
	return out
}

func buildFileInfo(p *vbk.Parser) FileInfo {
	return FileInfo{
		Path:          p.Path,
		Kind:          p.Kind.String(),
		SizeBytes:     p.FileSize,
		DigestType:    p.Header.DigestType,
		HeaderVersion: p.Header.Version,
		BankCount:     len(p.Slot.BankInfos),
		MaxBanks:      p.Header.MaxBanks(),
	}
}

func fromInternalSettings(s internalsettings.Settings) Settings {
	return Settings{
		ValidateBlocks:      s.ValidateBlocks,
		MaxDirectoryDepth:   s.MaxDirectoryDepth,
		ReportFileName:      s.ReportFileName,
		IncludeVersionNotes: s.IncludeVersionNotes,
		SummaryOnly:         s.SummaryOnly,
		MaxBlocksShown:      s.MaxBlocksShown,
	}
}

func toInternalSettings(s Settings) internalsettings.Settings {
	return internalsettings.Settings{
		ValidateBlocks:      s.ValidateBlocks,
		MaxDirectoryDepth:   s.MaxDirectoryDepth,
		ReportFileName:      s.ReportFileName,
		IncludeVersionNotes: s.IncludeVersionNotes,
		SummaryOnly:         s.SummaryOnly,
		MaxBlocksShown:      s.MaxBlocksShown,
	}
}
