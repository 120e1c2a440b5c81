// Package classify estimates the size and category of a unit of LLM
// work from its text, so the router can pick a suitable backend.
package classify

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/qazlegal/norma/pkg/models"
)

// Characters-per-token ratios. Cyrillic text tokenizes denser than
// Latin, so it gets the looser ratio.
const (
	latinCharsPerToken    = 4
	cyrillicCharsPerToken = 2
	cyrillicShareCutoff   = 0.3
)

// Config holds classification thresholds and keyword sets. These are
// supplied by configuration, never baked into the logic.
type Config struct {
	// LargeDocumentTokens is the estimate above which a task is
	// classified large_document regardless of keywords.
	LargeDocumentTokens int `mapstructure:"large_document_tokens"`
	// QuickMaxTokens is the estimate below which a definitional
	// question may be classified quick.
	QuickMaxTokens int `mapstructure:"quick_max_tokens"`
	// DocumentKeywords mark tasks that carry full document text.
	DocumentKeywords []string `mapstructure:"document_keywords"`
	// ReasoningKeywords mark deep-analysis tasks.
	ReasoningKeywords []string `mapstructure:"reasoning_keywords"`
	// QuickKeywords mark short definitional questions.
	QuickKeywords []string `mapstructure:"quick_keywords"`
}

// DefaultConfig returns the built-in thresholds and keyword sets.
func DefaultConfig() Config {
	return Config{
		LargeDocumentTokens: 150_000,
		QuickMaxTokens:      256,
		DocumentKeywords: []string{
			"закон", "кодекс", "документ", "нпа", "нормативный",
			"правовой акт", "полный текст",
			"law", "code", "document", "full text",
		},
		ReasoningKeywords: []string{
			"анализ", "анализируй", "рассуждение", "объясни", "почему",
			"сравни", "оцени", "критика", "аргумент", "логика",
			"вывод", "заключение", "противоречи", "коллизи",
			"analysis", "reasoning", "explain", "why", "compare",
			"evaluate", "critique", "conclusion",
		},
		QuickKeywords: []string{
			"что такое", "определение", "краткий", "да или нет",
			"what is", "definition", "brief", "yes or no",
		},
	}
}

// Classifier buckets tasks by size and keywords. Classification is a
// pure function: identical inputs always yield identical results.
type Classifier struct {
	cfg Config
}

// New creates a Classifier with the given thresholds. Zero thresholds
// fall back to the defaults.
func New(cfg Config) *Classifier {
	def := DefaultConfig()
	if cfg.LargeDocumentTokens <= 0 {
		cfg.LargeDocumentTokens = def.LargeDocumentTokens
	}
	if cfg.QuickMaxTokens <= 0 {
		cfg.QuickMaxTokens = def.QuickMaxTokens
	}
	if len(cfg.DocumentKeywords) == 0 {
		cfg.DocumentKeywords = def.DocumentKeywords
	}
	if len(cfg.ReasoningKeywords) == 0 {
		cfg.ReasoningKeywords = def.ReasoningKeywords
	}
	if len(cfg.QuickKeywords) == 0 {
		cfg.QuickKeywords = def.QuickKeywords
	}
	return &Classifier{cfg: cfg}
}

// EstimateTokens estimates the token count of text using a fixed
// characters-per-token heuristic that differs by script.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	total := utf8.RuneCountInString(text)
	cyrillic := 0
	for _, r := range text {
		if unicode.Is(unicode.Cyrillic, r) {
			cyrillic++
		}
	}

	if float64(cyrillic)/float64(total) > cyrillicShareCutoff {
		return total / cyrillicCharsPerToken
	}
	return total / latinCharsPerToken
}

// Classify buckets a task by its primary text plus auxiliary context.
// Buckets, in priority order: large_document by size or document
// keywords, reasoning by keywords, quick for short definitional
// questions, otherwise general.
func (c *Classifier) Classify(primaryText, auxiliaryContext string) models.TaskProfile {
	total := primaryText
	if auxiliaryContext != "" {
		total += "\n" + auxiliaryContext
	}
	estimate := EstimateTokens(total)
	lower := strings.ToLower(primaryText)

	profile := models.TaskProfile{EstimatedTokens: estimate}

	switch {
	case estimate > c.cfg.LargeDocumentTokens:
		profile.Category = models.CategoryLargeDocument
		profile.Rationale = fmt.Sprintf("estimated %d tokens exceeds large-document threshold %d",
			estimate, c.cfg.LargeDocumentTokens)
	case matchesAny(lower, c.cfg.DocumentKeywords):
		profile.Category = models.CategoryLargeDocument
		profile.Rationale = "document keywords matched"
	case matchesAny(lower, c.cfg.ReasoningKeywords):
		profile.Category = models.CategoryReasoning
		profile.Rationale = "reasoning keywords matched"
	case estimate <= c.cfg.QuickMaxTokens && matchesAny(lower, c.cfg.QuickKeywords):
		profile.Category = models.CategoryQuick
		profile.Rationale = "short definitional question"
	default:
		profile.Category = models.CategoryGeneral
		profile.Rationale = "no classification keywords matched"
	}

	return profile
}

// Profile builds a task profile for a stage with a preset category
// hint, keeping the size estimate from the rendered prompt.
func (c *Classifier) Profile(hint models.TaskCategory, text string) models.TaskProfile {
	if hint == "" {
		return c.Classify(text, "")
	}
	return models.TaskProfile{
		EstimatedTokens: EstimateTokens(text),
		Category:        hint,
		Rationale:       "stage category hint",
	}
}

func matchesAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
