// Package main provides the entry point for the lead ranking agent CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rank_agent",
	Short: "Lead ranking and prompt optimization agent",
	Long:  "rank_agent scores and orders B2B sales leads against a persona rubric using LLM ranking with deterministic prefiltering, and improves its own instruction document through an evaluate-critique-edit loop.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
