package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/texgest/internal/outline"
	"github.com/dgallion1/texgest/internal/pipeline"
	"github.com/spf13/cobra"
)

type extractOptions struct {
	PDF     string
	Outline string
	Title   string
	JSON    bool
	Raw     bool
}

var extractOpts extractOptions

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract the sections of one document",
	Long: `Extract splits FILE into sections and keeps the ones named by the reference
outline. The outline comes from --outline, or from the bookmarks of --pdf; with
neither, every section is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proc, err := newProcessor()
		if err != nil {
			return err
		}
		return runExtract(cmd.Context(), cmd.OutOrStdout(), proc, args[0], extractOpts, newLogger())
	},
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractOpts.PDF, "pdf", "", "Reference rendering whose bookmarks name the sections to keep")
	f.StringVar(&extractOpts.Outline, "outline", "", `Explicit titles to keep, separated by ";" or ","`)
	f.StringVar(&extractOpts.Title, "title", "", "Override the detected document title")
	f.BoolVar(&extractOpts.JSON, "json", false, "Write JSON instead of styled text")
	f.BoolVar(&extractOpts.Raw, "raw", false, "Skip normalization and print the filtered LaTeX with its preamble")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(ctx context.Context, w io.Writer, proc *pipeline.Processor, path string, opts extractOptions, log *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var pdf []byte
	if opts.PDF != "" {
		if pdf, err = os.ReadFile(opts.PDF); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, docTimeout)
	defer cancel()

	res, err := proc.Process(ctx, pipeline.Input{
		Filename: filepath.Base(path),
		Data:     data,
		PDF:      pdf,
		Outline:  outline.ParseList(opts.Outline),
		Title:    opts.Title,
	}, pipeline.Hooks{
		Stage: func(s pipeline.JobStatus) { log.Debug("stage", "file", path, "status", s) },
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", pipeline.Classify(err), path, err)
	}

	sections := res.Sections
	if opts.Raw {
		sections = outline.Filter(res.Flat, res.Outline)
	}
	doc := newDocument(res, sections)
	if opts.Raw {
		doc.Preamble = strings.TrimSpace(res.Tree.Preamble)
	}
	if opts.JSON {
		return writeJSON(w, doc)
	}
	renderDocument(w, doc)
	return nil
}
