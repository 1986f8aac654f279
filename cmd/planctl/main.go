package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "planctl",
	Short: "Administration of the equipment planning backend",
	Long: `planctl manages the equipment planning database.

Available subcommands:
  migrate - Apply, roll back or inspect schema migrations
  seed    - Load demo projects and equipment
  import  - Import equipment from an .xlsx file
  summary - Print fleet status and upcoming plans`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "planctl", "Author recorded on created records")
	summaryCmd.Flags().IntVar(&summaryDays, "days", 7, "Horizon for upcoming plans, in days")
	rootCmd.AddCommand(migrateCmd, seedCmd, importCmd, summaryCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
