package models

// FragmentType represents the structural kind of a document fragment.
type FragmentType string

const (
	// FragmentChapter is a chapter or section heading unit.
	FragmentChapter FragmentType = "chapter"
	// FragmentArticle is a single article of the document.
	FragmentArticle FragmentType = "article"
	// FragmentParagraph is a numbered paragraph nested inside an article.
	FragmentParagraph FragmentType = "paragraph"
)

// Valid returns true if the fragment type is a known value.
func (t FragmentType) Valid() bool {
	switch t {
	case FragmentChapter, FragmentArticle, FragmentParagraph:
		return true
	default:
		return false
	}
}

// Fragment is one structural unit of a parsed document. Fragments are
// immutable once produced by the segmenter; a re-parse yields a new set.
type Fragment struct {
	// Type is the structural kind of this fragment.
	Type FragmentType `json:"type"`
	// Number is the display token of the unit ("15", "15.1", "7-а").
	// It is opaque: callers must not assume a strict integer sequence.
	Number string `json:"number"`
	// Title is the heading text, if the unit has one.
	Title string `json:"title,omitempty"`
	// Text is the full text of the unit.
	Text string `json:"text"`
	// FullPath is the human-readable location ("Глава 3 -> Статья 15").
	FullPath string `json:"full_path"`
	// ParentNumber is a weak back-reference to the enclosing unit's
	// number. It does not imply ownership.
	ParentNumber string `json:"parent_number,omitempty"`
	// CharStart is the byte offset where the unit begins in the source.
	CharStart int `json:"char_start"`
	// CharEnd is the byte offset where the unit ends in the source.
	CharEnd int `json:"char_end"`
}

// ID returns the tracking identifier for this fragment, e.g. "article_15".
func (f Fragment) ID() string {
	return string(f.Type) + "_" + f.Number
}
