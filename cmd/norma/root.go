package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "norma",
	Short: "Legal document analysis engine",
	Long: `Norma segments regulatory legal acts into chapters, articles, and
paragraphs, then runs a configurable set of independent expert analyses
(relevance, constitutionality, system integration, legal technique,
anti-corruption, gender) over every article, tracking completeness so
no article is ever silently skipped.

Analysis calls are classified by size and kind and routed across the
configured model backends: a large-context tier for full documents, a
reasoning tier for deep review, and a general tier for summaries.`,
}

// Execute runs the root command.
func Execute() {
	// A local .env supplies provider keys during development; absence
	// is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
