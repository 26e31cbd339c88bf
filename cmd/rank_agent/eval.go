package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/lead-ranker/internal/config"
	"github.com/jonathan/lead-ranker/internal/ingestion"
	"github.com/jonathan/lead-ranker/internal/metrics"
	"github.com/jonathan/lead-ranker/internal/observability"
	"github.com/jonathan/lead-ranker/internal/optimizer"
	"github.com/jonathan/lead-ranker/internal/ranking"
)

var evalCommand = &cobra.Command{
	Use:   "eval",
	Short: "Score the current instruction document against a labeled eval set",
	Long: `Ranks the eval set with the active instruction document (or the built-in
default when no database is configured) and reports precision, recall, F1 and
NDCG@3 against the labeled ground truth. No versions are created: this is a
read-only health check of the current prompt.`,
	RunE: runEvalCmd,
}

var (
	evalConfigPath  string
	evalSetPath     string
	evalModel       string
	evalConcurrency int
	evalVerbose     bool
	evalDatabaseURL string
)

func init() {
	evalCommand.Flags().StringVar(&evalConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	evalCommand.Flags().StringVarP(&evalSetPath, "eval-set", "e", "", "Path to labeled eval set JSON file")
	evalCommand.Flags().StringVarP(&evalModel, "model", "m", "", "Model used for ranking")
	evalCommand.Flags().IntVar(&evalConcurrency, "concurrency", 0, "Companies evaluated in parallel")
	evalCommand.Flags().BoolVarP(&evalVerbose, "verbose", "v", false, "Print detailed debug information")
	evalCommand.Flags().StringVar(&evalDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional; used to look up the active document)")

	rootCmd.AddCommand(evalCommand)
}

func runEvalCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadMergedConfig(evalConfigPath, func(cfg *config.Config) {
		if cmd.Flags().Changed("eval-set") {
			cfg.EvalSet = evalSetPath
		}
		if cmd.Flags().Changed("model") {
			cfg.Model = evalModel
		}
		if cmd.Flags().Changed("concurrency") {
			cfg.Concurrency = evalConcurrency
		}
		if cmd.Flags().Changed("verbose") {
			cfg.Verbose = evalVerbose
		}
		if cmd.Flags().Changed("db-url") {
			cfg.DatabaseURL = evalDatabaseURL
		}
	})
	if err != nil {
		return err
	}
	if cfg.EvalSet == "" {
		return fmt.Errorf("--eval-set is required (via flag or config)")
	}

	labeled, err := ingestion.LoadEvalSet(cfg.EvalSet)
	if err != nil {
		return err
	}

	// The active stored document is preferred, but a database is not
	// required: without one the built-in default is scored.
	doc := ranking.DefaultInstructionDocument()
	if cfg.DatabaseURL != "" || os.Getenv("DATABASE_URL") != "" {
		database, err := connectDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		active, err := database.ActiveVersion(ctx)
		if err != nil {
			return err
		}
		if active != nil {
			doc = active.Text
		}
	}

	client, llmCfg := buildClient(cfg)
	model := cfg.Model
	if model == "" {
		model = llmCfg.DefaultModel()
	}

	evaluator := &optimizer.Evaluator{
		Client:      client,
		Model:       model,
		Concurrency: cfg.Concurrency,
		Verbose:     cfg.Verbose,
	}

	fmt.Printf("Evaluating %d labeled leads...\n", len(labeled))
	predictions, err := evaluator.Predict(ctx, labeled, doc)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	report := metrics.Evaluate(labeled, predictions)
	observability.NewPrinter(os.Stdout).PrintMetricsReport(report)
	return nil
}
