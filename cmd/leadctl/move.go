package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadpipe/internal/core"
)

func newMoveCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move LEAD STAGE",
		Short: "Move a lead to another pipeline stage",
		Long: "Move a lead to another pipeline stage. STAGE accepts the same names as\n" +
			"the import, e.g. won, fechado or \"Proposta\". Moving a lead onto its\n" +
			"current stage changes nothing.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			op, err := root.operator()
			if err != nil {
				return err
			}

			svc, cleanup, err := root.openService(ctx, root.logger(cmd))
			if err != nil {
				return err
			}
			defer cleanup()

			board, err := svc.Board(ctx, op)
			if err != nil {
				return err
			}
			return moveLead(cmd, board, args[0], args[1])
		},
	}
}

// moveLead performs a single drag from the lead's column onto target.
func moveLead(cmd *cobra.Command, board *core.Board, leadID, target string) error {
	before, ok := board.Lead(leadID)
	if !ok {
		return fmt.Errorf("lead %s: %w", leadID, core.ErrLeadNotOnBoard)
	}
	if err := board.DragStart(leadID); err != nil {
		return err
	}
	outcome, err := board.DragEnd(cmd.Context(), target)
	if err != nil {
		return err
	}

	after, _ := board.Lead(leadID)
	switch outcome {
	case core.OutcomeMoved:
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", before.Name, before.Stage, after.Stage)
	default:
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: already in %s\n", before.Name, before.Stage)
	}
	return err
}
