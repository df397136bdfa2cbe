package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/petpals/internal/engine"
)

func newMigrateCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Push a user's local-only documents to the remote store",
		Long:  "Copies every cached document of the user that the remote store does not have yet. Documents that already exist remotely are left alone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := d.layer.MigrateLocalOnlyToRemote(cmd.Context(), engine.UserKey(userID))
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d document(s) for %s\n", n, userID)
			return err
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id")
	cmd.MarkFlagRequired("user")
	return cmd
}
