package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/lead-ranker/internal/config"
	"github.com/jonathan/lead-ranker/internal/ingestion"
)

var importCommand = &cobra.Command{
	Use:   "import <leads.json>",
	Short: "Load a lead file into the database",
	Long: `Upserts the file's company and leads. The company is keyed by normalized
name and the leads by (company, name, title), so re-importing a refreshed file
updates records in place instead of duplicating them. Imported companies start
pending and are picked up by 'rank --all-pending'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadMergedConfig(importConfigPath, func(cfg *config.Config) {
			if importDatabaseURL != "" {
				cfg.DatabaseURL = importDatabaseURL
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

		imported, err := ingestion.LoadLeadFile(args[0])
		if err != nil {
			return err
		}

		company, err := database.UpsertCompany(ctx, imported.Company)
		if err != nil {
			return fmt.Errorf("failed to save company: %w", err)
		}
		for _, lead := range imported.Leads {
			lead.CompanyID = company.ID
			if _, err := database.UpsertLead(ctx, lead); err != nil {
				return fmt.Errorf("failed to save lead %s: %w", lead.FullName, err)
			}
		}

		fmt.Printf("Imported %s: %d leads.\n", company.Name, len(imported.Leads))
		return nil
	},
}

var (
	importConfigPath  string
	importDatabaseURL string
)

func init() {
	importCommand.Flags().StringVar(&importConfigPath, "config", "", "Path to config.json file")
	importCommand.Flags().StringVar(&importDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(importCommand)
}
