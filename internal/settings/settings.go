package settings

// Settings mirrors the tunable behavior of a container inspection run.
type Settings struct {
	ValidateBlocks      bool
	StrictDirectoryWalk bool
	MaxDirectoryDepth   int
	ReportFileName      string
	IncludeVersionNotes bool
	SummaryOnly         bool
	MaxBlocksShown      int
}

// Default returns the baseline settings for a run; reportBaseDir is unused
// by the "-" (stdout) default but kept so callers can derive a file-based
// report name without changing the signature.
func Default(reportBaseDir string) Settings {
	_ = reportBaseDir
	return Settings{
		ValidateBlocks:      false,
		StrictDirectoryWalk: false,
		MaxDirectoryDepth:   64,
		ReportFileName:      "-",
		IncludeVersionNotes: true,
		SummaryOnly:         false,
		MaxBlocksShown:      5,
	}
}
