package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/caselight/internal/cli"
	"github.com/Veraticus/caselight/internal/common"
	"github.com/Veraticus/caselight/internal/notes"
	"github.com/Veraticus/caselight/internal/settings"
	"github.com/Veraticus/caselight/internal/synchronizer"
	"github.com/Veraticus/caselight/internal/view"
)

type applyOptions struct {
	output  string
	inPlace bool
	table   bool
}

func applyCmd() *cobra.Command {
	var opts applyOptions

	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Highlight a saved case list once",
		Long: `Evaluate every row of a saved case list view against the current rules
and notes, and write the highlighted view.

Without --output or --in-place the highlighted HTML is written to stdout.
With --table a summary of the decisions is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the highlighted view to this file")
	cmd.Flags().BoolVar(&opts.inPlace, "in-place", false, "overwrite the input file")
	cmd.Flags().BoolVar(&opts.table, "table", false, "print the decisions as a table")
	cmd.MarkFlagsMutuallyExclusive("output", "in-place")

	return cmd
}

func runApply(ctx context.Context, out io.Writer, path string, opts applyOptions) error {
	store, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cache, err := settings.NewCache(ctx, store)
	if err != nil {
		return err
	}
	defer cache.Close()

	noteStore, err := notes.New(ctx, store)
	if err != nil {
		return err
	}
	defer noteStore.Close()

	runner := synchronizer.New(applySource(path, out, opts), cache, noteStore, cfg.Sync)
	res, err := runner.RunOnce(ctx)
	if errors.Is(err, common.ErrViewIncomplete) {
		return common.NewUserError(fmt.Sprintf("No case list table found in %s", path), err)
	}
	if err != nil {
		return err
	}

	if opts.table {
		if res.Disabled {
			_, err = fmt.Fprintln(out, cli.FormatWarning("Highlighting is disabled; cleared previous highlighting"))
			return err
		}
		_, err = fmt.Fprint(out, cli.RenderDecisions(res.Rows))
		return err
	}
	if opts.output != "" || opts.inPlace {
		fmt.Fprintln(os.Stderr, cli.FormatSuccess(fmt.Sprintf("Highlighted %d rows", len(res.Rows))))
	}
	return nil
}

func applySource(path string, out io.Writer, opts applyOptions) synchronizer.Source {
	switch {
	case opts.inPlace:
		return view.NewFile(path, path)
	case opts.output != "":
		return view.NewFile(path, opts.output)
	case opts.table:
		return &writerSource{path: path, w: io.Discard}
	default:
		return &writerSource{path: path, w: out}
	}
}

// writerSource reads a view file and renders the result to a stream.
type writerSource struct {
	w    io.Writer
	path string
}

func (s *writerSource) Load(ctx context.Context) (*view.Document, error) {
	return view.NewFile(s.path, "").Load(ctx)
}

func (s *writerSource) Save(_ context.Context, doc *view.Document) error {
	return doc.Render(s.w)
}

func (s *writerSource) InPlace() bool { return false }
