package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/texgest/internal/latex"
	"github.com/dgallion1/texgest/internal/outline"
	"github.com/dgallion1/texgest/internal/pipeline"
	"github.com/dgallion1/texgest/internal/version"
	"github.com/spf13/cobra"
)

var (
	markersFile  string
	fallback     string
	matchTimeout time.Duration
	docTimeout   time.Duration
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "texgest",
	Short: "Extract the section structure of LaTeX papers",
	Long: `texgest splits LaTeX sources (and Markdown, HTML or DOCX documents) into
their sections, keeps the sections named by a reference outline, and rewrites
LaTeX markup into plain text.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("texgest %s\n", version.String()))

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&markersFile, "markers", "", "YAML file overriding the sectioning commands and environments")
	pf.StringVar(&fallback, "fallback", "Abstract,Conclusion,Conclusions", "Titles appended to every reference outline")
	pf.DurationVar(&matchTimeout, "match-timeout", 5*time.Second, "Time budget for a single pattern match")
	pf.DurationVar(&docTimeout, "timeout", 2*time.Minute, "Time budget for one document")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")
}

// Execute runs the root command. Interrupts cancel in-flight documents.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newProcessor() (*pipeline.Processor, error) {
	spec := latex.DefaultMarkerSpec()
	if markersFile != "" {
		var err error
		if spec, err = latex.LoadMarkerSpec(markersFile); err != nil {
			return nil, err
		}
	}
	return pipeline.NewProcessor(spec, outline.ParseList(fallback), matchTimeout)
}
