package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/qazlegal/norma/internal/pipeline"
	"github.com/qazlegal/norma/pkg/models"
)

var (
	pipelinePreset   string
	pipelineQuestion string
	pipelineJSON     bool
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline <file|url>",
	Short: "Run a sequential multi-model pipeline over a document",
	Long: `Pipeline runs the document through an ordered sequence of stages,
each stage's output feeding the next. Stages are classified and routed
independently, so extraction can land on the large-context backend
while analysis goes to the reasoning tier.

Presets:
  legal  extraction -> legal analysis -> concise summary (default)
  qa     relevant-section indexing -> answer -> formatting
         (requires --question)

A custom stage file configured via pipeline.stages_file replaces the
preset.

Examples:
  norma pipeline law.txt
  norma pipeline law.txt --preset qa --question "Кто субъект статьи 5?"`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	pipelineCmd.Flags().StringVar(&pipelinePreset, "preset", "legal", "Stage preset: legal or qa")
	pipelineCmd.Flags().StringVar(&pipelineQuestion, "question", "", "Question for the qa preset")
	pipelineCmd.Flags().BoolVar(&pipelineJSON, "json", false, "Emit the full run record as JSON")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine()
	if err != nil {
		return err
	}
	if w, err := eng.watchAvailability(); err != nil {
		log.Printf("[cli] config watch disabled: %v", err)
	} else if w != nil {
		defer w.Close()
	}

	text, _, err := loadDocument(ctx, args[0])
	if err != nil {
		return err
	}

	var preset []models.StageDescriptor
	vars := map[string]string{}
	switch pipelinePreset {
	case "legal":
		preset = pipeline.LegalAnalysisStages()
	case "qa":
		if pipelineQuestion == "" {
			return fmt.Errorf("the qa preset requires --question")
		}
		preset = pipeline.DocumentQAStages()
		vars["question"] = pipelineQuestion
	default:
		return fmt.Errorf("unknown preset %q (want legal or qa)", pipelinePreset)
	}

	stages, err := eng.cfg.PipelineStages(preset)
	if err != nil {
		return err
	}

	name := "legal-analysis"
	if pipelinePreset == "qa" {
		name = "document-qa"
	}
	exec, err := pipeline.New(name, stages, eng.classifier, eng.router, eng.backends, eng.cfg.Pipeline.HistorySize)
	if err != nil {
		return err
	}

	run, runErr := exec.Execute(ctx, text, vars)

	if pipelineJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return err
		}
		return runErr
	}

	for i, rec := range run.Records {
		label := color.GreenString("ok")
		if !rec.Success {
			label = color.RedString("failed: %s", rec.ErrorDetail)
		}
		fmt.Printf("%d/%d %-30s %-20s %s\n", i+1, len(stages), rec.StageName, rec.BackendID, label)
	}

	if runErr != nil {
		color.Red("\npipeline aborted at stage %d: %v", run.FailedStage+1, runErr)
		return runErr
	}

	fmt.Println()
	fmt.Println(run.FinalOutput)
	return nil
}
