package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jonathan/lead-ranker/internal/config"
	"github.com/jonathan/lead-ranker/internal/db"
	"github.com/jonathan/lead-ranker/internal/observability"
	"github.com/jonathan/lead-ranker/internal/ranking"
)

var promptCommand = &cobra.Command{
	Use:   "prompt",
	Short: "Inspect and manage instruction-document versions",
}

var (
	promptConfigPath  string
	promptDatabaseURL string
)

var promptListCommand = &cobra.Command{
	Use:   "list",
	Short: "List all versions with metrics; the active one is starred",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		database, err := promptDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		versions, err := database.ListVersions(ctx)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Println("No versions yet; ranking uses the built-in default document.")
			return nil
		}
		observability.NewPrinter(os.Stdout).PrintVersionList(versions)
		return nil
	},
}

var promptShowCommand = &cobra.Command{
	Use:   "show [version]",
	Short: "Print a version's full text (active version if omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, err := promptDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		if len(args) == 0 {
			active, err := database.ActiveVersion(ctx)
			if err != nil {
				return err
			}
			if active == nil {
				fmt.Println(ranking.DefaultInstructionDocument())
				return nil
			}
			fmt.Println(active.Text)
			return nil
		}

		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("version must be a number: %s", args[0])
		}
		version, err := database.GetVersion(ctx, number)
		if err != nil {
			return err
		}
		if version == nil {
			return fmt.Errorf("version not found: %d", number)
		}
		fmt.Println(version.Text)
		return nil
	},
}

var promptActivateCommand = &cobra.Command{
	Use:   "activate <version>",
	Short: "Make a specific version the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, err := promptDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("version must be a number: %s", args[0])
		}
		version, err := database.GetVersion(ctx, number)
		if err != nil {
			return err
		}
		if version == nil {
			return fmt.Errorf("version not found: %d", number)
		}
		if err := database.ActivateVersion(ctx, version.ID); err != nil {
			return err
		}
		fmt.Printf("Version %d is now active.\n", number)
		return nil
	},
}

var promptResetCommand = &cobra.Command{
	Use:   "reset",
	Short: "Create and activate a fresh version from the built-in default document",
	Long: `Appends a new version containing the built-in default instruction document
and activates it. Existing versions are kept; a reset is just another version
in the history, so it can itself be rolled back.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		database, err := promptDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		version, err := database.CreateVersion(ctx, ranking.DefaultInstructionDocument(), nil, "reset to default document")
		if err != nil {
			return err
		}
		if err := database.ActivateVersion(ctx, version.ID); err != nil {
			return err
		}
		fmt.Printf("Reset: version %d created from the default document and activated.\n", version.Version)
		return nil
	},
}

func init() {
	promptCommand.PersistentFlags().StringVar(&promptConfigPath, "config", "", "Path to config.json file")
	promptCommand.PersistentFlags().StringVar(&promptDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	promptCommand.AddCommand(promptListCommand)
	promptCommand.AddCommand(promptShowCommand)
	promptCommand.AddCommand(promptActivateCommand)
	promptCommand.AddCommand(promptResetCommand)
	rootCmd.AddCommand(promptCommand)
}

func promptDB(ctx context.Context) (*db.DB, error) {
	cfg, err := loadMergedConfig(promptConfigPath, func(cfg *config.Config) {
		if promptDatabaseURL != "" {
			cfg.DatabaseURL = promptDatabaseURL
		}
	})
	if err != nil {
		return nil, err
	}
	return connectDB(ctx, cfg)
}
