package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "petpals",
	Short:         "Pet progression engine with local-first sync",
	Long:          "Petpals keeps each user's pets, coins, moods, sleep and streaks in a local cache and mirrors them to a shared document store.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("PETPALS_CONFIG"), "path to a TOML config file")

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newStatusCmd(),
		newExportCmd(),
		newImportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}
