package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/qazlegal/norma/internal/expertise"
	"github.com/qazlegal/norma/internal/fetch"
	"github.com/qazlegal/norma/internal/segment"
)

var (
	analyzeSkip      []string
	analyzeJSON      bool
	analyzeSummarize bool
	analyzeLogPath   string
	analyzeStages    []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url>",
	Short: "Run the full expert analysis over a legal document",
	Long: `Analyze segments the document into chapters, articles, and paragraphs,
then runs every configured expertise stage over every article, in a
bounded worker pool. The completeness report at the end shows exactly
which articles were analyzed and which (if any) were missed.

The argument is a local file path or an http(s) URL.

Examples:
  norma analyze law.txt
  norma analyze https://adilet.zan.kz/rus/docs/Z2100000123
  norma analyze law.txt --skip "Гендерная Экспертиза" --json
  norma analyze law.txt --stage "Фильтр Релевантности" --summarize`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringArrayVar(&analyzeSkip, "skip", nil, "Stage name to skip (repeatable)")
	analyzeCmd.Flags().StringArrayVar(&analyzeStages, "stage", nil, "Run only the named stage (repeatable)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Emit the full result matrix as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeSummarize, "summarize", false, "Generate a condensed final report from the findings")
	analyzeCmd.Flags().StringVar(&analyzeLogPath, "log", "", "Write a detailed run trace to this file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	text, title, err := loadDocument(ctx, args[0])
	if err != nil {
		return err
	}

	result := segment.New().Parse(text)
	stats := result.Stats()
	if stats.Articles == 0 {
		return fmt.Errorf("no articles found in %s; nothing to analyze", args[0])
	}

	bold := color.New(color.Bold)
	if title != "" {
		bold.Println(title)
	}
	fmt.Printf("Segmented: %d chapters, %d articles, %d paragraphs\n",
		stats.Chapters, stats.Articles, stats.Paragraphs)
	for _, w := range result.Warnings {
		color.Yellow("warning: %s", w)
	}

	stages, err := eng.cfg.ExpertStages()
	if err != nil {
		return err
	}
	stages, err = restrictStages(stages, analyzeStages)
	if err != nil {
		return err
	}

	orch, err := eng.newOrchestrator()
	if err != nil {
		return err
	}
	if analyzeLogPath != "" {
		logger, err := expertise.NewRunLogger(analyzeLogPath)
		if err != nil {
			return err
		}
		defer logger.Close()
		orch.SetLogger(logger)
	}

	skip := append([]string{}, eng.cfg.Expertise.Skip...)
	skip = append(skip, analyzeSkip...)

	res, runErr := orch.Run(ctx, result.Fragments, stages, skip)
	if res == nil {
		return runErr
	}

	if analyzeJSON {
		return emitAnalysisJSON(res)
	}
	printAnalysis(res)

	if analyzeSummarize && len(res.Findings()) > 0 {
		bold.Println("\nСводный отчёт")
		summary, err := orch.Summarize(ctx, res)
		if err != nil {
			color.Red("summarize failed: %v", err)
		} else {
			fmt.Println(summary)
		}
	}

	return runErr
}

// loadDocument reads the document from a URL or local file.
func loadDocument(ctx context.Context, src string) (text, title string, err error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		doc, err := fetch.New().Fetch(ctx, src)
		if err != nil {
			return "", "", err
		}
		return doc.Text, doc.Title, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", src, err)
	}
	return string(data), "", nil
}

// restrictStages keeps only the named stages when --stage is given.
func restrictStages(stages []expertise.Stage, only []string) ([]expertise.Stage, error) {
	if len(only) == 0 {
		return stages, nil
	}
	want := make(map[string]bool, len(only))
	for _, n := range only {
		want[n] = true
	}
	var out []expertise.Stage
	for _, st := range stages {
		if want[st.Name()] {
			out = append(out, st)
			delete(want, st.Name())
		}
	}
	if len(want) > 0 {
		var unknown []string
		for n := range want {
			unknown = append(unknown, n)
		}
		return nil, fmt.Errorf("unknown stage(s): %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

func printAnalysis(res *expertise.Result) {
	bold := color.New(color.Bold)

	bold.Println("\nЭтапы экспертизы")
	for _, s := range res.StageSummaries {
		status := color.GreenString("ok")
		if s.Failed > 0 {
			status = color.YellowString("%d failed", s.Failed)
		}
		fmt.Printf("  %-40s %d/%d  %s\n", s.Stage, s.Successful, s.Total, status)
	}

	bold.Println("\nПолнота анализа")
	fmt.Println(res.Checklist)
	fmt.Printf("\n%d/%d (%.0f%%)\n", res.Report.Analyzed, res.Report.Total, res.Report.Percentage*100)
	if len(res.Report.MissingIDs) > 0 {
		color.Red("missing: %s", strings.Join(res.Report.MissingIDs, ", "))
	}
	if len(res.AnalyzedWithErrors) > 0 {
		color.Yellow("analyzed with errors: %s", strings.Join(res.AnalyzedWithErrors, ", "))
	}

	fmt.Println()
	if res.Report.IsComplete && len(res.AnalyzedWithErrors) == 0 && !res.Interrupted {
		color.Green("%s", res.Summary())
	} else {
		color.Yellow("%s", res.Summary())
	}
}

func emitAnalysisJSON(res *expertise.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Summary            string      `json:"summary"`
		Report             interface{} `json:"report"`
		StageSummaries     interface{} `json:"stage_summaries"`
		AnalyzedWithErrors []string    `json:"analyzed_with_errors,omitempty"`
		Matrix             interface{} `json:"matrix"`
	}{
		Summary:            res.Summary(),
		Report:             res.Report,
		StageSummaries:     res.StageSummaries,
		AnalyzedWithErrors: res.AnalyzedWithErrors,
		Matrix:             res.Matrix,
	})
}
