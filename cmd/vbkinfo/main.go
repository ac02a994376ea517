package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/autobrr/go-vbkinfo/internal/report"
	"github.com/autobrr/go-vbkinfo/internal/settings"
	"github.com/autobrr/go-vbkinfo/internal/vbk"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		validateBlocks bool
		reportFile     string
		summaryOnly    bool
		maxDepth       int
	)

	root := &cobra.Command{
		Use:   "vbkinfo <path>",
		Short: "Inspect Veeam VBK/VIB backup container files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, _ := os.Getwd()
			s := settings.Default(cwd)
			s.ValidateBlocks = validateBlocks
			s.SummaryOnly = summaryOnly
			if reportFile != "" {
				s.ReportFileName = reportFile
			}
			if maxDepth > 0 {
				s.MaxDirectoryDepth = maxDepth
			}
			return scanAndReport(args[0], s)
		},
	}

	flags := root.Flags()
	flags.BoolVar(&validateBlocks, "validate-blocks", false, "Validate block descriptors while walking the directory tree")
	flags.StringVarP(&reportFile, "output", "o", "", "Report filename, or - for stdout")
	flags.BoolVarP(&summaryOnly, "summary-only", "s", false, "Output only the one-line summary")
	flags.IntVar(&maxDepth, "max-depth", 0, "Override the directory recursion depth limit")

	root.AddCommand(newSelfUpdateCmd())
	return root
}

func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Update vbkinfo to the latest release",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfUpdate(cmd.Context())
		},
	}
}

func runSelfUpdate(ctx context.Context) error {
	if version == "" || version == "dev" {
		return errors.New("self-update is only available in release builds")
	}

	if _, err := semver.ParseTolerant(version); err != nil {
		return fmt.Errorf("could not parse version: %w", err)
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug("autobrr/go-vbkinfo"))
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest version for autobrr/go-vbkinfo could not be found from github repository")
	}

	if latest.LessOrEqual(version) {
		fmt.Printf("Current binary is the latest version: %s\n", version)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	fmt.Printf("Successfully updated to version: %s\n", latest.Version())
	return nil
}

func scanAndReport(path string, s settings.Settings) error {
	p, err := vbk.Open(path)
	if err != nil {
		return err
	}
	defer p.Close()

	var tree []vbk.DirNode
	if s.MaxDirectoryDepth > 0 {
		tree, err = p.WalkDirectoryDepth(p.Root(), s.MaxDirectoryDepth)
	} else {
		tree, err = p.WalkDirectory(p.Root())
	}
	if err != nil {
		return err
	}

	if s.SummaryOnly {
		fmt.Print(report.BuildSummary(p, tree))
		return nil
	}

	_, _, err = report.WriteReport(s.ReportFileName, p, tree, s)
	return err
}
