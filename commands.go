// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/quickly-poll/cliparse"
	"github.com/danielhkuo/quickly-poll/models"
)

// newRootCmd builds the command tree. The returned app is populated by the
// root pre-run hook and must be closed after Execute.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "quickly-poll",
		Short: "Manage multi-option polls and toggle votes",
		Long: `quickly-poll runs the poll engine against a SQLite file or a Postgres database.
Polls are created as drafts unless --activate-on-create is set. Only one poll
is active at a time; activating another one displaces it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cliparse.LoadEnvFiles(); err != nil {
				return err
			}
			cfg, err := cliparse.Resolve(cmd.Flags(), os.Getenv)
			if err != nil {
				return err
			}
			return a.setup(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}
	cliparse.RegisterFlags(root.PersistentFlags())

	// --- Poll management ---
	createCmd := &cobra.Command{
		Use:   "create <question> <option> <option> [option...]",
		Short: "Create a poll",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := a.engine.CreatePoll(cmd.Context(), a.cfg.Privileged(), args[0], args[1:], a.cfg.ActivateOnCreate)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created poll %d (%s)\n", created.Poll.ID, created.Poll.State)
			printOptions(out, created.Options)
			return nil
		},
	}

	activateCmd := &cobra.Command{
		Use:   "activate <poll-id>",
		Short: "Make a poll the active poll",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID, err := parseID("poll", args[0])
			if err != nil {
				return err
			}
			if err := a.engine.ActivatePoll(cmd.Context(), a.cfg.Privileged(), pollID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "poll %d is active\n", pollID)
			return nil
		},
	}

	closeCmd := &cobra.Command{
		Use:   "close <poll-id>",
		Short: "Close a poll",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID, err := parseID("poll", args[0])
			if err != nil {
				return err
			}
			if err := a.engine.ClosePoll(cmd.Context(), a.cfg.Privileged(), pollID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "poll %d is closed\n", pollID)
			return nil
		},
	}

	endCmd := &cobra.Command{
		Use:   "end",
		Short: "Close whichever poll is active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID, err := a.engine.CloseActivePoll(cmd.Context(), a.cfg.Privileged())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "poll %d is closed\n", pollID)
			return nil
		},
	}

	activeCmd := &cobra.Command{
		Use:   "active",
		Short: "Show the active poll",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			poll, found, err := a.engine.GetActivePoll(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintln(out, "no active poll")
				return nil
			}
			fmt.Fprintf(out, "poll %d: %s\n", poll.Poll.ID, poll.Poll.Question)
			printOptions(out, poll.Options)
			return nil
		},
	}

	// --- Voting ---
	voteCmd := &cobra.Command{
		Use:   "vote <poll-id> <option-id>",
		Short: "Toggle the acting user's vote for an option",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID, err := parseID("poll", args[0])
			if err != nil {
				return err
			}
			optionID, err := parseID("option", args[1])
			if err != nil {
				return err
			}
			sel, err := a.engine.ToggleVote(cmd.Context(), a.cfg.Voter(), pollID, optionID)
			if err != nil {
				return err
			}
			action := "removed"
			if sel.Added {
				action = "added"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s option %d, selected: %s\n", action, optionID, formatIDs(sel.OptionIDs))
			return nil
		},
	}

	submitCmd := &cobra.Command{
		Use:   "submit <poll-id>",
		Short: "Finish voting on a poll",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID, err := parseID("poll", args[0])
			if err != nil {
				return err
			}
			sel, err := a.engine.SubmitBallot(cmd.Context(), a.cfg.Voter(), pollID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ballot submitted, selected: %s\n", formatIDs(sel.OptionIDs))
			return nil
		},
	}

	// --- Results ---
	var showVoters, showBreakdown bool
	resultsCmd := &cobra.Command{
		Use:   "results <poll-id>",
		Short: "Show vote counts for a poll",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID, err := parseID("poll", args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if showVoters {
				res, err := a.engine.GetVoterResults(cmd.Context(), pollID)
				if err != nil {
					return err
				}
				for _, opt := range res.Options {
					names := make([]string, 0, len(opt.Voters))
					for _, v := range opt.Voters {
						names = append(names, voterLabel(v))
					}
					fmt.Fprintf(out, "%s (%d): %s\n", opt.Text, opt.Count(), strings.Join(names, ", "))
				}
				return nil
			}

			lines, err := a.engine.ResultLines(cmd.Context(), pollID, showBreakdown)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	resultsCmd.Flags().BoolVar(&showVoters, "voters", false, "List who voted for each option")
	resultsCmd.Flags().BoolVar(&showBreakdown, "breakdown", false, "One line per option and voter")
	resultsCmd.MarkFlagsMutuallyExclusive("voters", "breakdown")

	var exportDir string
	exportCmd := &cobra.Command{
		Use:   "export <poll-id>",
		Short: "Write a poll's results to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID, err := parseID("poll", args[0])
			if err != nil {
				return err
			}
			dir := a.cfg.ExportDir
			if cmd.Flags().Changed("dir") {
				dir = exportDir
			}
			path, err := a.engine.ExportResults(cmd.Context(), a.cfg.Privileged(), pollID, dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Output directory (env EXPORT_DIR)")

	root.AddCommand(createCmd, activateCmd, closeCmd, endCmd, activeCmd, voteCmd, submitCmd, resultsCmd, exportCmd)
	return root, a
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s id %q", models.ErrValidation, kind, raw)
	}
	return id, nil
}

func printOptions(out io.Writer, options []models.Option) {
	for _, opt := range options {
		fmt.Fprintf(out, "  [%d] %s\n", opt.ID, opt.Text)
	}
}

func formatIDs(ids []int64) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

func voterLabel(v models.Voter) string {
	if v.Name != "" {
		return v.Name
	}
	return "user " + strconv.FormatInt(v.UserID, 10)
}

// exitMessage turns well-known errors into a short line for the operator
func exitMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrNotPrivileged):
		return "not allowed: this user is not in ADMIN_IDS"
	case errors.Is(err, models.ErrNoActivePoll):
		return "there is no active poll"
	case errors.Is(err, models.ErrStorage):
		return "database error, see logs: " + err.Error()
	}
	return err.Error()
}
