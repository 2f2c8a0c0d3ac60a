package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/caselight/internal/cli"
	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/service"
	"github.com/Veraticus/caselight/internal/settings"
)

// rulesFile is the YAML layout used by rules export and import.
type rulesFile struct {
	Enabled *bool         `yaml:"highlightEnabled,omitempty"`
	Rules   model.Ruleset `yaml:",inline"`
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage highlighting rules",
		Long: `List and edit the highlighting rules.

Builtin rules are evaluated in priority order: action-needed, platinum,
account rules, first-response, jira-closed, last-modified. The first
enabled rule that matches a row decides its color.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesRemoveCmd())
	cmd.AddCommand(rulesSetCmd())
	cmd.AddCommand(rulesToggleCmd(true))
	cmd.AddCommand(rulesToggleCmd(false))
	cmd.AddCommand(rulesExportCmd())
	cmd.AddCommand(rulesImportCmd())

	return cmd
}

// withStore opens the settings store for the duration of fn.
func withStore(ctx context.Context, fn func(store service.Store) error) error {
	store, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(store service.Store) error {
				s, err := settings.Load(cmd.Context(), store)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), cli.RenderRules(s))
				return err
			})
		},
	}
}

func rulesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <account> <color>",
		Short: "Add or update an account rule",
		Long: `Color rows whose Account Name matches <account>, ignoring case.
An existing rule for the same account has its color replaced.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store service.Store) error {
				rules, err := settings.UpsertAccountRule(cmd.Context(), store, args[0], model.Color(args[1]))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved account rule for %q (%d account rules)", args[0], len(rules))))
				return err
			})
		},
	}
}

func rulesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove an account rule by index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], err)
			}
			return withStore(cmd.Context(), func(store service.Store) error {
				rules, err := settings.DeleteAccountRule(cmd.Context(), store, index)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Removed account rule %d (%d remaining)", index, len(rules))))
				return err
			})
		},
	}
}

func rulesSetCmd() *cobra.Command {
	var (
		color   string
		enabled bool
	)

	cmd := &cobra.Command{
		Use:   "set <rule>",
		Short: "Change a builtin rule's color or state",
		Long: `Change a builtin rule. <rule> is one of action-needed, platinum,
first-response, jira-closed, last-modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := settings.ResolveRuleKey(args[0])
			if err != nil {
				return err
			}
			colorSet := cmd.Flags().Changed("color")
			enabledSet := cmd.Flags().Changed("enabled")
			if !colorSet && !enabledSet {
				return fmt.Errorf("nothing to change: pass --color or --enabled")
			}

			var normalized model.Color
			if colorSet {
				normalized, err = model.Color(color).Normalize()
				if err != nil {
					return err
				}
			}

			return withStore(cmd.Context(), func(store service.Store) error {
				rule, err := settings.UpdateRule(cmd.Context(), store, key, func(r *model.BuiltinRule) {
					if colorSet {
						r.Color = normalized
					}
					if enabledSet {
						r.Enabled = enabled
					}
				})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s: enabled=%t color=%s", key, rule.Enabled, rule.Color)))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "rule color (#rgb or #rrggbb)")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "whether the rule is evaluated")

	return cmd
}

func rulesToggleCmd(on bool) *cobra.Command {
	use, verb := "disable", "Disable"
	if on {
		use, verb = "enable", "Enable"
	}

	return &cobra.Command{
		Use:   use + " [rule]",
		Short: verb + " highlighting, or a single builtin rule",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store service.Store) error {
				if len(args) == 0 {
					if err := settings.SetEnabled(cmd.Context(), store, on); err != nil {
						return err
					}
					_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(verb+"d highlighting"))
					return err
				}

				key, err := settings.ResolveRuleKey(args[0])
				if err != nil {
					return err
				}
				if _, err := settings.UpdateRule(cmd.Context(), store, key, func(r *model.BuiltinRule) {
					r.Enabled = on
				}); err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(verb+"d "+key))
				return err
			})
		},
	}
}

func rulesExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all rules as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(store service.Store) error {
				s, err := settings.Load(cmd.Context(), store)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", output, err)
					}
					defer func() { _ = f.Close() }()
					w = f
				}
				return exportRules(w, s)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func rulesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all rules from a YAML file",
		Long:  `Replace every rule with the contents of a file written by rules export. Use - for stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			file, err := decodeRules(r)
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), func(store service.Store) error {
				if err := settings.SaveRuleset(cmd.Context(), store, file.Rules); err != nil {
					return err
				}
				if file.Enabled != nil {
					if err := settings.SetEnabled(cmd.Context(), store, *file.Enabled); err != nil {
						return err
					}
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Imported rules (%d account rules)", len(file.Rules.Accounts))))
				return err
			})
		},
	}
}

func exportRules(w io.Writer, s model.Settings) error {
	enabled := s.Enabled
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rulesFile{Enabled: &enabled, Rules: s.Rules}); err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}
	return enc.Close()
}

// decodeRules reads a rules file. Builtin rules missing from the file keep
// their defaults.
func decodeRules(r io.Reader) (rulesFile, error) {
	file := rulesFile{Rules: settings.Defaults().Rules}
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return rulesFile{}, fmt.Errorf("failed to decode rules: %w", err)
	}
	return file, nil
}
