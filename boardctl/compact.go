package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newCompactCommand(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "compact [board-id...]",
		Short: "Renumber list and card positions to 0..n-1",
		Long: `Rewrite list and card positions on the given boards so that every sibling
group is numbered 0..n-1. Moves keep positions dense only opportunistically;
compaction removes the gaps left behind by deletions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("pass board ids or --all")
			}
			b, err := opts.open()
			if err != nil {
				return err
			}
			defer b.Close()

			ctx := cmd.Context()
			if all {
				boards, err := b.store.ListBoards(ctx, "", true)
				if err != nil {
					return err
				}
				for _, bd := range boards {
					args = append(args, bd.ID)
				}
			}
			for _, id := range args {
				res, err := b.svc.CompactBoard(ctx, id)
				if err != nil {
					return fmt.Errorf("compact %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d lists, %d cards renumbered\n", id, res.Lists, res.Cards)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "compact every board")
	return cmd
}
