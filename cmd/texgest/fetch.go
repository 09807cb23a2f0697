package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/texgest/internal/arxiv"
	"github.com/dgallion1/texgest/internal/outline"
	"github.com/dgallion1/texgest/internal/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type fetchOptions struct {
	Parallel int
	Out      string
	Outline  string
	NoPDF    bool
}

var (
	fetchOpts  fetchOptions
	arxivURL   string
	arxivAPI   string
	searchMax  int
	searchJSON bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch ID...",
	Short: "Download arXiv papers and extract their sections",
	Long: `Fetch downloads the source bundle and rendered PDF of each arXiv identifier,
extracts the sections named by the PDF bookmarks and writes <id>.json into the
output directory. Documents are independent; one failure does not stop the rest.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proc, err := newProcessor()
		if err != nil {
			return err
		}
		client := arxiv.NewClient(arxivURL, arxivAPI)
		defer client.Close()
		return runFetch(cmd.Context(), cmd.OutOrStdout(), client, proc, args, fetchOpts, newLogger())
	},
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search arXiv and list matching papers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := arxiv.NewClient(arxivURL, arxivAPI)
		defer client.Close()
		papers, err := client.Search(cmd.Context(), strings.Join(args, " "), searchMax)
		if err != nil {
			return err
		}
		if searchJSON {
			return writeJSON(cmd.OutOrStdout(), papers)
		}
		for _, p := range papers {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", sectionStyle.Render(p.ID), p.Title)
		}
		return nil
	},
}

func init() {
	f := fetchCmd.Flags()
	f.IntVarP(&fetchOpts.Parallel, "parallel", "p", 4, "Documents processed concurrently")
	f.StringVarP(&fetchOpts.Out, "out", "o", ".", "Directory for the <id>.json files")
	f.StringVar(&fetchOpts.Outline, "outline", "", "Explicit titles to keep instead of the PDF bookmarks")
	f.BoolVar(&fetchOpts.NoPDF, "no-pdf", false, "Skip the PDF download and keep every section")

	for _, c := range []*cobra.Command{fetchCmd, searchCmd} {
		c.Flags().StringVar(&arxivURL, "arxiv-url", "https://arxiv.org", "arXiv base URL")
		c.Flags().StringVar(&arxivAPI, "arxiv-api-url", "http://export.arxiv.org/api/query", "arXiv Atom API URL")
	}
	searchCmd.Flags().IntVarP(&searchMax, "max", "n", 10, "Maximum results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Write JSON")

	rootCmd.AddCommand(fetchCmd, searchCmd)
}

func runFetch(ctx context.Context, w io.Writer, client *arxiv.Client, proc *pipeline.Processor, ids []string, opts fetchOptions, log *slog.Logger) error {
	if err := os.MkdirAll(opts.Out, 0o755); err != nil {
		return err
	}
	titles := outline.ParseList(opts.Outline)
	withPDF := !opts.NoPDF && len(titles) == 0

	results := make([]fetchResult, len(ids))
	var g errgroup.Group
	g.SetLimit(max(opts.Parallel, 1))
	for i, id := range ids {
		g.Go(func() error {
			results[i] = fetchOne(ctx, client, proc, id, titles, withPDF, opts.Out, log)
			return results[i].Err
		})
	}
	err := g.Wait()
	renderFetchSummary(w, results)
	if err == nil {
		return nil
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	return fmt.Errorf("%d of %d documents failed", failed, len(ids))
}

func fetchOne(ctx context.Context, client *arxiv.Client, proc *pipeline.Processor, id string, titles []string, withPDF bool, dir string, log *slog.Logger) fetchResult {
	res := fetchResult{ID: id}
	if !arxiv.ValidID(id) {
		res.Err = fmt.Errorf("%w: %q", arxiv.ErrInvalidID, id)
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, docTimeout)
	defer cancel()

	src, pdf, err := pipeline.FetchArxiv(ctx, client, id, withPDF, nil, log)
	if err != nil {
		res.Err = err
		return res
	}
	name := strings.ReplaceAll(id, "/", "_")
	out, err := proc.Process(ctx, pipeline.Input{
		Filename: name + ".tar.gz",
		Data:     src,
		PDF:      pdf,
		Outline:  titles,
	}, pipeline.Hooks{})
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", pipeline.Classify(err), err)
		return res
	}

	doc := newDocument(out, out.Sections)
	doc.ArxivID = id
	res.Path = filepath.Join(dir, name+".json")
	res.Sections = out.Sections.Len()
	f, err := os.Create(res.Path)
	if err != nil {
		res.Err = err
		return res
	}
	defer f.Close()
	if err := writeJSON(f, doc); err != nil {
		res.Err = fmt.Errorf("write %s: %w", res.Path, err)
	}
	log.Info("fetched", "arxiv_id", id, "sections", res.Sections, "outline_mode", out.OutlineMode)
	return res
}
