package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/lead-ranker/internal/config"
	"github.com/jonathan/lead-ranker/internal/db"
	"github.com/jonathan/lead-ranker/internal/ingestion"
	"github.com/jonathan/lead-ranker/internal/llm"
	"github.com/jonathan/lead-ranker/internal/observability"
	"github.com/jonathan/lead-ranker/internal/ranking"
	"github.com/jonathan/lead-ranker/internal/types"
)

var rankCommand = &cobra.Command{
	Use:   "rank",
	Short: "Rank leads for one company or every pending company",
	Long: `Scores and orders a company's leads against the persona rubric: deterministic
prefilter first, then batched LLM ranking with the active instruction document.

Two input modes:
  --leads file.json     file mode, no database needed; results print as JSON
  --company "Acme"      DB mode, ranks one stored company
  --all-pending         DB mode, ranks every company with pending status

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runRankCmd,
}

var (
	rankConfigPath  string
	rankLeadsFile   string
	rankCompany     string
	rankAllPending  bool
	rankModel       string
	rankBatchSize   int
	rankMaxAttempts int
	rankVerbose     bool
	rankDatabaseURL string
	rankOutput      string
)

func init() {
	rankCommand.Flags().StringVar(&rankConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	rankCommand.Flags().StringVarP(&rankLeadsFile, "leads", "l", "", "Path to leads JSON file (file mode)")
	rankCommand.Flags().StringVarP(&rankCompany, "company", "c", "", "Company name to rank (DB mode)")
	rankCommand.Flags().BoolVar(&rankAllPending, "all-pending", false, "Rank every company with pending status (DB mode)")
	rankCommand.Flags().StringVarP(&rankModel, "model", "m", "", "Model to rank with (defaults to the configured ordering)")
	rankCommand.Flags().IntVar(&rankBatchSize, "batch-size", 0, "Leads per LLM call")
	rankCommand.Flags().IntVar(&rankMaxAttempts, "max-attempts", 0, "Attempts per batch before giving up")
	rankCommand.Flags().BoolVarP(&rankVerbose, "verbose", "v", false, "Print detailed debug information")
	rankCommand.Flags().StringVar(&rankDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rankCommand.Flags().StringVarP(&rankOutput, "output", "o", "", "Write file-mode results to this path instead of stdout")

	rootCmd.AddCommand(rankCommand)
}

func runRankCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadMergedConfig(rankConfigPath, func(cfg *config.Config) {
		if cmd.Flags().Changed("leads") {
			cfg.Leads = rankLeadsFile
		}
		if cmd.Flags().Changed("company") {
			cfg.Company = rankCompany
		}
		if cmd.Flags().Changed("model") {
			cfg.Model = rankModel
		}
		if cmd.Flags().Changed("batch-size") {
			cfg.BatchSize = rankBatchSize
		}
		if cmd.Flags().Changed("max-attempts") {
			cfg.MaxAttempts = rankMaxAttempts
		}
		if cmd.Flags().Changed("verbose") {
			cfg.Verbose = rankVerbose
		}
		if cmd.Flags().Changed("db-url") {
			cfg.DatabaseURL = rankDatabaseURL
		}
	})
	if err != nil {
		return err
	}

	modes := 0
	for _, set := range []bool{cfg.Leads != "", cfg.Company != "", rankAllPending} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return fmt.Errorf("exactly one of --leads, --company or --all-pending must be provided")
	}

	client, llmCfg := buildClient(cfg)
	model := cfg.Model
	if model == "" {
		model = llmCfg.DefaultModel()
	}

	orchestrator := &ranking.Orchestrator{
		Client:      client,
		Model:       model,
		BatchSize:   cfg.BatchSize,
		MaxAttempts: cfg.MaxAttempts,
		Verbose:     cfg.Verbose,
	}

	if cfg.Leads != "" {
		return rankFromFile(ctx, cfg, orchestrator)
	}
	return rankFromDB(ctx, cfg, orchestrator, rankAllPending)
}

// rankFromFile runs the pipeline on a lead file with no persistence and
// prints the ranked results as JSON.
func rankFromFile(ctx context.Context, cfg config.Config, orchestrator *ranking.Orchestrator) error {
	imported, err := ingestion.LoadLeadFile(cfg.Leads)
	if err != nil {
		return err
	}

	fmt.Printf("Ranking %d leads for %s...\n", len(imported.Leads), imported.Company.Name)
	outcome, err := orchestrator.Rank(ctx, imported.Company, imported.Leads, ranking.DefaultInstructionDocument())
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}

	if cfg.Verbose {
		observability.NewPrinter(os.Stdout).PrintRankingOutcome(imported.Company, outcome)
	}

	type namedResult struct {
		FullName string `json:"full_name"`
		Title    string `json:"title"`
		types.RankingResult
	}
	named := make([]namedResult, 0, len(outcome.Results))
	byID := make(map[string]types.Lead, len(imported.Leads))
	for _, lead := range imported.Leads {
		byID[lead.ID.String()] = lead
	}
	for _, result := range outcome.Results {
		lead := byID[result.LeadID.String()]
		named = append(named, namedResult{FullName: lead.FullName, Title: lead.Title, RankingResult: result})
	}

	encoded, err := json.MarshalIndent(named, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if rankOutput != "" {
		if err := os.WriteFile(rankOutput, encoded, 0644); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		fmt.Printf("Wrote %d results to %s\n", len(named), rankOutput)
		return nil
	}
	fmt.Println(string(encoded))
	return nil
}

// rankFromDB ranks one stored company, or every pending one under an
// umbrella job record.
func rankFromDB(ctx context.Context, cfg config.Config, orchestrator *ranking.Orchestrator, allPending bool) error {
	database, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	orchestrator.Sink = database

	// DB-backed runs rank with the active instruction document; before any
	// optimization has run there is none, so the built-in default applies.
	doc := ranking.DefaultInstructionDocument()
	stored, err := database.ActiveVersion(ctx)
	if err != nil {
		return err
	}
	if stored != nil {
		doc = stored.Text
	}

	printer := observability.NewPrinter(os.Stdout)

	if !allPending {
		company, err := database.GetCompanyByName(ctx, cfg.Company)
		if err != nil {
			return err
		}
		if company == nil {
			return fmt.Errorf("company not found: %s", cfg.Company)
		}
		leads, err := database.ListLeadsByCompany(ctx, company.ID)
		if err != nil {
			return err
		}
		if len(leads) == 0 {
			return fmt.Errorf("company %s has no leads", company.Name)
		}

		fmt.Printf("Ranking %d leads for %s...\n", len(leads), company.Name)
		outcome, err := ranking.RunCompany(ctx, database, orchestrator, uuid.Nil, *company, leads, doc)
		if err != nil {
			return fmt.Errorf("ranking failed: %w", err)
		}
		printer.PrintRankingOutcome(*company, outcome)
		return nil
	}

	companies, err := database.ListCompanies(ctx, types.StatusPending, 0)
	if err != nil {
		return err
	}
	if len(companies) == 0 {
		fmt.Println("No pending companies.")
		return nil
	}

	jobID, err := database.CreateRankingJob(ctx, len(companies), orchestrator.Model)
	if err != nil {
		return err
	}

	fmt.Printf("Ranking %d pending companies...\n", len(companies))
	failures := 0
	for _, company := range companies {
		leads, err := database.ListLeadsByCompany(ctx, company.ID)
		if err != nil {
			return err
		}
		if len(leads) == 0 {
			continue
		}

		outcome, err := ranking.RunCompany(ctx, database, orchestrator, jobID, company, leads, doc)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "  %s failed: %v\n", company.Name, err)
			continue
		}
		if cfg.Verbose {
			printer.PrintRankingOutcome(company, outcome)
		} else {
			fmt.Printf("  %s: %d leads ranked\n", company.Name, len(outcome.Results))
		}
	}

	status := types.StatusCompleted
	if failures == len(companies) {
		status = types.StatusFailed
	} else if failures > 0 {
		status = types.StatusPartiallyCompleted
	}
	if err := database.FinishRankingJob(ctx, jobID, status, nil); err != nil {
		return err
	}
	fmt.Printf("Done: %d companies, %d failed.\n", len(companies), failures)
	return nil
}

// buildClient assembles the fallback completion client from config and
// environment.
func buildClient(cfg config.Config) (llm.Client, *llm.Config) {
	llmCfg := llm.DefaultConfig()
	if cfg.BaseURL != "" {
		llmCfg.BaseURL = cfg.BaseURL
	}
	llmCfg.GeminiAPIKey = cfg.GeminiAPIKey
	llmCfg.OpenAIAPIKey = cfg.OpenAIAPIKey
	return llm.NewFallbackClient(llmCfg), llmCfg
}

// connectDB opens the pool from config or the DATABASE_URL environment
// variable.
func connectDB(ctx context.Context, cfg config.Config) (*db.DB, error) {
	url := cfg.DatabaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("database URL required: set --db-url, config database_url, or DATABASE_URL")
	}
	return db.Connect(ctx, url)
}

// loadMergedConfig loads an optional config file, applies CLI overrides via
// apply, and validates the result.
func loadMergedConfig(path string, apply func(*config.Config)) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
