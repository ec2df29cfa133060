package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"prism-board/domain"
)

func newAdminCommand(opts *rootOptions) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "admin <user-id>",
		Short: "Grant or revoke the admin flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.open()
			if err != nil {
				return err
			}
			defer b.Close()

			err = b.store.SetAdmin(cmd.Context(), args[0], !revoke)
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("user %s has no profile yet", args[0])
			}
			if err != nil {
				return err
			}
			state := "granted"
			if revoke {
				state = "revoked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s for %s\n", state, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove the admin flag")
	return cmd
}
