package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/caselight/internal/cli"
	"github.com/Veraticus/caselight/internal/common"
	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/notes"
	"github.com/Veraticus/caselight/internal/refresh"
	"github.com/Veraticus/caselight/internal/settings"
	"github.com/Veraticus/caselight/internal/synchronizer"
	"github.com/Veraticus/caselight/internal/view"
	"github.com/Veraticus/caselight/internal/watch"
)

type watchOptions struct {
	output  string
	inPlace bool
}

func watchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Keep a case list highlighted as it changes",
		Long: `Watch a case list view file and re-apply highlighting whenever the file,
the rules, or the notes change. When auto-refresh is enabled the view is
also reloaded from its target on every interval.

Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the highlighted view to this file")
	cmd.Flags().BoolVar(&opts.inPlace, "in-place", false, "overwrite the watched file")
	cmd.MarkFlagsMutuallyExclusive("output", "in-place")

	return cmd
}

func runWatch(ctx context.Context, path string, opts watchOptions) error {
	if !opts.inPlace && opts.output == "" {
		return fmt.Errorf("watch needs --output or --in-place")
	}

	ctx = cli.NewInterruptHandler(os.Stdout, "Stopped watching").HandleInterrupts(ctx)

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

	output := opts.output
	if opts.inPlace {
		output = path
	}
	file := view.NewFile(path, output)
	logger := common.Component("cmd")

	runner := synchronizer.New(file, cache, noteStore, cfg.Sync,
		synchronizer.WithPassHook(func(res synchronizer.Result, err error) {
			if err != nil {
				logger.Debug("Pass did not complete", "pass", res.PassID, "error", err)
				return
			}
			if res.Changed {
				logger.Info("View updated", "pass", res.PassID, "rows", len(res.Rows), "cleaned", res.Cleaned)
			}
		}),
	)

	alarms := refresh.NewTickerAlarms(ctx)
	defer alarms.Close()

	refresher := refresh.NewRefresher(store, alarms, file.Path(),
		refresh.OnReload(func() { runner.Signal(synchronizer.SignalApply) }),
	)

	cache.OnUpdate(func(model.Settings) {
		runner.Signal(synchronizer.SignalSettings)
		if err := refresher.Sync(ctx); err != nil {
			logger.Error("Failed to update auto-refresh", "error", err)
		}
	})
	noteStore.OnUpdate(func() { runner.Signal(synchronizer.SignalSettings) })

	if err := refresher.Sync(ctx); err != nil {
		return err
	}

	watcher, err := watch.New(file, runner, watch.OnRemoved(func(removed string) {
		if err := refresher.TargetRemoved(ctx, removed); err != nil {
			logger.Error("Failed to disable auto-refresh", "error", err)
		}
	}))
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Start(ctx); err != nil {
		return err
	}

	runner.Start(ctx)
	defer runner.Stop()

	fmt.Println(cli.FormatInfo(fmt.Sprintf("Watching %s (writing %s)", file.Path(), file.Output())))

	return store.Watch(ctx, cfg.PollInterval)
}
