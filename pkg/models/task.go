package models

// TaskCategory represents the classified kind of a unit of LLM work.
type TaskCategory string

const (
	// CategoryLargeDocument is for tasks carrying a large document context.
	CategoryLargeDocument TaskCategory = "large_document"
	// CategoryReasoning is for deep analysis and reasoning tasks.
	CategoryReasoning TaskCategory = "reasoning"
	// CategoryQuick is for short, definitional or yes/no style tasks.
	CategoryQuick TaskCategory = "quick"
	// CategoryGeneral is the fallback for everything else.
	CategoryGeneral TaskCategory = "general"
)

// Valid returns true if the category is a known value.
func (c TaskCategory) Valid() bool {
	switch c {
	case CategoryLargeDocument, CategoryReasoning, CategoryQuick, CategoryGeneral:
		return true
	default:
		return false
	}
}

// TaskProfile describes one unit of work handed to a backend. It is a
// pure function of its input text plus the classifier thresholds: the
// classifier fills EstimatedTokens, Category and Rationale, and the
// router fills ChosenBackend.
type TaskProfile struct {
	// EstimatedTokens is the heuristic token count of the input.
	EstimatedTokens int `json:"estimated_tokens"`
	// Category is the classified task kind.
	Category TaskCategory `json:"category"`
	// ChosenBackend is the backend id selected by the router.
	ChosenBackend string `json:"chosen_backend,omitempty"`
	// Rationale explains how the classification and routing were made.
	Rationale string `json:"rationale,omitempty"`
}
