package root

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/petpals/internal/clock"
	"github.com/dukerupert/petpals/internal/engine"
)

func newStatusCmd() *cobra.Command {
	var userID string
	var flush bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a user's progression and sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, cleanup, err := open(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if flush {
				n, err := d.layer.FlushPending(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "flushed queued writes, %d still queued\n\n", n)
			}

			root := engine.UserKey(userID)
			keys, err := d.local.Keys(root)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Documents for %s\n", userID)
			for _, key := range keys {
				if key != root && !strings.HasPrefix(key, root+"/") {
					continue
				}
				doc, err := d.layer.Local(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "- %-40s v%-4d queued=%d\n", key, doc.Version, d.layer.Pending(key))
			}
			fmt.Fprintln(out)

			eng := engine.New(userID, d.layer, clock.System(), d.cfg.EngineConfig(), nil, d.logger)
			u, err := eng.User(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Level %d (%d coins, %d to next)\n", u.Level.Level, u.Level.Coins, u.Level.CoinsToNext)
			fmt.Fprintf(out, "Balance %d, %d pet(s), streak %d (longest %d)\n", u.Balance, u.PetCount, u.Streak.Streak, u.Streak.Longest)

			pets, err := eng.Pets(ctx)
			if err != nil {
				return err
			}
			for _, p := range pets {
				fmt.Fprintf(out, "- %s %q lvl %d mood=%s quest=%s asleep=%t\n",
					p.ID, p.DisplayName, p.Level.Level, p.Mood.Mood, p.Quest.Activity, p.Sleep.Asleep)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id")
	cmd.Flags().BoolVar(&flush, "flush", false, "retry queued remote writes first")
	cmd.MarkFlagRequired("user")
	return cmd
}
