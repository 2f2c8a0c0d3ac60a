package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/caselight/internal/cli"
	"github.com/Veraticus/caselight/internal/refresh"
	"github.com/Veraticus/caselight/internal/service"
	"github.com/Veraticus/caselight/internal/settings"
)

func refreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Configure automatic reloading of the watched view",
		Long: `While caselight watch is running with auto-refresh enabled, the view
file is reloaded from its target on every interval. The target is a file
path or an http(s) URL. A target that disappears disables auto-refresh.`,
	}

	cmd.AddCommand(refreshEnableCmd())
	cmd.AddCommand(refreshDisableCmd())
	cmd.AddCommand(refreshStatusCmd())
	cmd.AddCommand(refreshRunCmd())

	return cmd
}

func refreshEnableCmd() *cobra.Command {
	var interval int

	cmd := &cobra.Command{
		Use:   "enable <target>",
		Short: "Enable auto-refresh from a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be at least 1 minute, got %d", interval)
			}
			return withStore(cmd.Context(), func(store service.Store) error {
				if err := settings.EnableRefresh(cmd.Context(), store, args[0], interval); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Refreshing %s every %d minutes", args[0], interval)))
				return err
			})
		},
	}

	cmd.Flags().IntVarP(&interval, "interval", "i", settings.DefaultRefreshInterval, "refresh interval in minutes")
	return cmd
}

func refreshDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable auto-refresh",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(store service.Store) error {
				if err := settings.DisableRefresh(cmd.Context(), store); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Auto-refresh disabled"))
				return err
			})
		},
	}
}

func refreshStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show auto-refresh settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(store service.Store) error {
				s, err := settings.Load(cmd.Context(), store)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), cli.RenderRefresh(s.Refresh))
				return err
			})
		},
	}
}

func refreshRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <view-file>",
		Short: "Reload a view file from the target once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store service.Store) error {
				s, err := settings.Load(cmd.Context(), store)
				if err != nil {
					return err
				}
				if !s.Refresh.Enabled {
					return fmt.Errorf("auto-refresh is not enabled")
				}

				alarms := refresh.NewTickerAlarms(cmd.Context())
				defer alarms.Close()

				refresher := refresh.NewRefresher(store, alarms, args[0])
				if err := refresher.OnAlarm(cmd.Context(), refresh.AlarmName); err != nil {
					return err
				}

				after, err := settings.Load(cmd.Context(), store)
				if err != nil {
					return err
				}
				msg := cli.FormatSuccess("Reloaded " + args[0] + " from " + s.Refresh.Target)
				if !after.Refresh.Enabled {
					msg = cli.FormatWarning("Target is gone; auto-refresh disabled")
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
				return err
			})
		},
	}
}
