package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/lead-ranker/internal/config"
	"github.com/jonathan/lead-ranker/internal/ingestion"
	"github.com/jonathan/lead-ranker/internal/observability"
	"github.com/jonathan/lead-ranker/internal/optimizer"
	"github.com/jonathan/lead-ranker/internal/types"
)

var optimizeCommand = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize the ranking instruction document against a labeled eval set",
	Long: `Runs the evaluate-critique-edit loop: ranks the eval set with the active
instruction document, scores predictions against ground truth, asks a model to
diagnose the errors, applies the critique as surgical edits, and repeats until
convergence or the iteration bound. The best version seen ends up active.

Requires a database (versions are persisted) and a labeled eval set file.`,
	RunE: runOptimizeCmd,
}

var (
	optimizeConfigPath    string
	optimizeEvalSet       string
	optimizeModel         string
	optimizeMaxIterations int
	optimizeConcurrency   int
	optimizeVerbose       bool
	optimizeDatabaseURL   string
)

func init() {
	optimizeCommand.Flags().StringVar(&optimizeConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	optimizeCommand.Flags().StringVarP(&optimizeEvalSet, "eval-set", "e", "", "Path to labeled eval set JSON file")
	optimizeCommand.Flags().StringVarP(&optimizeModel, "model", "m", "", "Model for ranking, critique and editing")
	optimizeCommand.Flags().IntVar(&optimizeMaxIterations, "max-iterations", 0, "Iteration bound for the loop")
	optimizeCommand.Flags().IntVar(&optimizeConcurrency, "concurrency", 0, "Companies evaluated in parallel")
	optimizeCommand.Flags().BoolVarP(&optimizeVerbose, "verbose", "v", false, "Print detailed debug information")
	optimizeCommand.Flags().StringVar(&optimizeDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(optimizeCommand)
}

func runOptimizeCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadMergedConfig(optimizeConfigPath, func(cfg *config.Config) {
		if cmd.Flags().Changed("eval-set") {
			cfg.EvalSet = optimizeEvalSet
		}
		if cmd.Flags().Changed("model") {
			cfg.Model = optimizeModel
		}
		if cmd.Flags().Changed("max-iterations") {
			cfg.MaxIterations = optimizeMaxIterations
		}
		if cmd.Flags().Changed("concurrency") {
			cfg.Concurrency = optimizeConcurrency
		}
		if cmd.Flags().Changed("verbose") {
			cfg.Verbose = optimizeVerbose
		}
		if cmd.Flags().Changed("db-url") {
			cfg.DatabaseURL = optimizeDatabaseURL
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

	database, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	client, llmCfg := buildClient(cfg)
	model := cfg.Model
	if model == "" {
		model = llmCfg.DefaultModel()
	}

	loop := &optimizer.Loop{
		Evaluator: &optimizer.Evaluator{
			Client:      client,
			Model:       model,
			Concurrency: cfg.Concurrency,
			Verbose:     cfg.Verbose,
		},
		Gradients:     &optimizer.Generator{Client: client, Model: model},
		Editor:        &optimizer.Editor{Client: client, Model: model},
		Store:         database,
		MaxIterations: cfg.MaxIterations,
		Verbose:       cfg.Verbose,
	}

	runID, err := database.CreateOptimizationRun(ctx, len(labeled), model)
	if err != nil {
		return err
	}

	fmt.Printf("Optimizing against %d labeled leads...\n", len(labeled))
	result, runErr := loop.Run(ctx, labeled)

	status := types.StatusCompleted
	var converged bool
	var bestID *uuid.UUID
	var history []optimizer.Iteration
	if result != nil {
		history = result.Iterations
		converged = result.Converged
		if result.Best != nil {
			bestID = &result.Best.ID
		}
	}
	if runErr != nil {
		status = types.StatusFailed
	}

	if err := database.FinishOptimizationRun(ctx, runID, status, converged, bestID, history, runErr); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("optimization failed: %w", runErr)
	}

	observability.NewPrinter(os.Stdout).PrintOptimizationResult(result)
	return nil
}
