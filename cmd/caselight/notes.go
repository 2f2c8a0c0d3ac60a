package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/caselight/internal/cli"
	"github.com/Veraticus/caselight/internal/notes"
	"github.com/Veraticus/caselight/internal/service"
)

func notesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage per-case notes",
		Long: `Attach free-text notes to cases. A case with a note is never colored
and shows a note marker next to its case number.`,
	}

	cmd.AddCommand(notesGetCmd())
	cmd.AddCommand(notesSetCmd())
	cmd.AddCommand(notesListCmd())
	cmd.AddCommand(notesClearCmd())

	return cmd
}

// withNotes opens the note store for the duration of fn.
func withNotes(cmd *cobra.Command, fn func(n *notes.Store) error) error {
	return withStore(cmd.Context(), func(store service.Store) error {
		n, err := notes.New(cmd.Context(), store)
		if err != nil {
			return err
		}
		defer n.Close()
		return fn(n)
	})
}

func notesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <case>",
		Short: "Print the note for a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNotes(cmd, func(n *notes.Store) error {
				text, ok := n.Get(args[0])
				if !ok {
					return fmt.Errorf("no note for case %s", args[0])
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			})
		},
	}
}

func notesSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <case> [text]",
		Short: "Set or clear the note for a case",
		Long: `Set the note for a case. Without text the current note is shown and
the new one is read from stdin. Empty text removes the note.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseNumber := args[0]
			return withNotes(cmd, func(n *notes.Store) error {
				var text string
				if len(args) > 1 {
					text = strings.Join(args[1:], " ")
				} else {
					current, _ := n.Get(caseNumber)
					var err error
					text, err = cli.PromptNote(cmd.Context(), cmd.OutOrStdout(), cli.NewLineReader(cmd.InOrStdin()), caseNumber, current)
					if err != nil {
						return err
					}
				}

				if err := n.Set(cmd.Context(), caseNumber, text); err != nil {
					return err
				}

				msg := "Saved note for case " + caseNumber
				if strings.TrimSpace(text) == "" {
					msg = "Removed note for case " + caseNumber
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
				return err
			})
		},
	}
}

func notesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all notes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withNotes(cmd, func(n *notes.Store) error {
				_, err := fmt.Fprint(cmd.OutOrStdout(), cli.RenderNotes(n.List()))
				return err
			})
		},
	}
}

func notesClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every note",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withNotes(cmd, func(n *notes.Store) error {
				if err := n.ClearAll(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Cleared all notes"))
				return err
			})
		},
	}
}
