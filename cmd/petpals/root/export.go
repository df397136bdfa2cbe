package root

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/petpals/internal/engine"
	"github.com/dukerupert/petpals/internal/snapshot"
)

const passphraseEnv = "PETPALS_EXPORT_PASSPHRASE"

func passphrase(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv(passphraseEnv); v != "" {
		return v, nil
	}
	return "", errors.New("passphrase required (--passphrase or " + passphraseEnv + ")")
}

func newExportCmd() *cobra.Command {
	var userID, out, pass string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's cached documents to an encrypted file",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := passphrase(pass)
			if err != nil {
				return err
			}
			d, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			b, err := snapshot.Export(d.local, engine.UserKey(userID), time.Now())
			if err != nil {
				return err
			}

			f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := snapshot.Write(f, b, secret); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries for %s to %s\n", len(b.Entries), userID, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id")
	cmd.Flags().StringVarP(&out, "out", "o", "petpals-export.bin", "output file")
	cmd.Flags().StringVar(&pass, "passphrase", "", "encryption passphrase (or "+passphraseEnv+")")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newImportCmd() *cobra.Command {
	var pass string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Restore an encrypted export into the local cache",
		Long:  "Restores documents the local cache does not have in a newer version. Run it while no server is using the same cache; the next read or migrate reconciles the restored documents with the remote store.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := passphrase(pass)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			b, err := snapshot.Read(f, secret)
			if err != nil {
				return err
			}

			d, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := snapshot.Import(d.local, b)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d, skipped %d entries under %s\n", res.Restored, res.Skipped, b.Root)
			return nil
		},
	}
	cmd.Flags().StringVar(&pass, "passphrase", "", "encryption passphrase (or "+passphraseEnv+")")
	return cmd
}
