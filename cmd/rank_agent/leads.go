package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/lead-ranker/internal/config"
	"github.com/jonathan/lead-ranker/internal/observability"
)

var (
	leadsConfigPath  string
	leadsDatabaseURL string
)

var leadsCommand = &cobra.Command{
	Use:   "leads <company>",
	Short: "Show a company's stored leads in ranked order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadMergedConfig(leadsConfigPath, func(cfg *config.Config) {
			if leadsDatabaseURL != "" {
				cfg.DatabaseURL = leadsDatabaseURL
			}
		})
		if err != nil {
			return err
		}
		database, err := connectDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		company, err := database.GetCompanyByName(ctx, args[0])
		if err != nil {
			return err
		}
		if company == nil {
			return fmt.Errorf("company not found: %s", args[0])
		}

		ranked, err := database.ListRankedLeads(ctx, company.ID)
		if err != nil {
			return err
		}
		if len(ranked) == 0 {
			fmt.Printf("Company %s has no leads.\n", company.Name)
			return nil
		}
		observability.NewPrinter(os.Stdout).PrintRankedLeads(*company, ranked)
		return nil
	},
}

func init() {
	leadsCommand.Flags().StringVar(&leadsConfigPath, "config", "", "Path to config.json file")
	leadsCommand.Flags().StringVar(&leadsDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(leadsCommand)
}
