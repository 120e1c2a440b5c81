package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initForce bool

const starterConfig = `# norma project configuration.
# Precedence: environment variables > this file > ~/.config/norma/config.yaml

# Provider credentials are usually supplied via environment variables
# (ANTHROPIC_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY) or a local .env.
#anthropic:
#  model: claude-sonnet-4-5-20250929
#  use_bedrock: false
#gemini:
#  model: gemini-2.5-flash
#openai:
#  model: gpt-4.1

default_backend: gpt-4.1

#backends:
#  - id: gemini-2.5-flash
#    max_context: 1048576
#    safe_tokens: 900000
#    cost: low
#    strengths: [large_documents, quick_response]
#    priority: 2
#    available: true

classifier:
  large_document_tokens: 150000
  quick_max_tokens: 256

expertise:
  workers: 4
  # skip: ["Гендерная Экспертиза"]
  # stages_file: expert-stages.yaml

pipeline:
  history_size: 10
  # stages_file: pipeline-stages.yaml
`

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a starter .norma.yaml",
	Long: `Init creates a commented .norma.yaml in the target directory (default:
the current directory) so the backend table, classifier thresholds, and
expertise settings can be adjusted per project.

Examples:
  norma init
  norma init ./myproject
  norma init --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing .norma.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", targetDir, err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("create %s: %w", absPath, err)
	}

	configPath := filepath.Join(absPath, ".norma.yaml")
	if _, err := os.Stat(configPath); err == nil && !initForce {
		color.Yellow("✗ %s already exists (use --force to overwrite)", configPath)
		return fmt.Errorf("config already exists")
	}

	if err := os.WriteFile(configPath, []byte(starterConfig), 0644); err != nil {
		return fmt.Errorf("write %s: %w", configPath, err)
	}

	color.Green("✓ wrote %s", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Export provider keys (ANTHROPIC_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY)")
	fmt.Println("  2. norma backends   # verify credential status")
	fmt.Println("  3. norma analyze <file|url>")
	return nil
}
