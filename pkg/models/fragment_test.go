package models

import "testing"

func TestFragmentTypeValid(t *testing.T) {
	tests := []struct {
		name     string
		ftype    FragmentType
		expected bool
	}{
		{"chapter is valid", FragmentChapter, true},
		{"article is valid", FragmentArticle, true},
		{"paragraph is valid", FragmentParagraph, true},
		{"empty is invalid", FragmentType(""), false},
		{"unknown is invalid", FragmentType("preamble"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ftype.Valid(); got != tt.expected {
				t.Errorf("Valid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFragmentID(t *testing.T) {
	tests := []struct {
		name     string
		fragment Fragment
		expected string
	}{
		{
			name:     "article",
			fragment: Fragment{Type: FragmentArticle, Number: "15"},
			expected: "article_15",
		},
		{
			name:     "paragraph with compound number",
			fragment: Fragment{Type: FragmentParagraph, Number: "15.1"},
			expected: "paragraph_15.1",
		},
		{
			name:     "non-integer display token",
			fragment: Fragment{Type: FragmentArticle, Number: "7-а"},
			expected: "article_7-а",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fragment.ID(); got != tt.expected {
				t.Errorf("ID() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTaskCategoryValid(t *testing.T) {
	valid := []TaskCategory{CategoryLargeDocument, CategoryReasoning, CategoryQuick, CategoryGeneral}
	for _, c := range valid {
		if !c.Valid() {
			t.Errorf("category %q should be valid", c)
		}
	}

	if TaskCategory("huge").Valid() {
		t.Error("unknown category should be invalid")
	}
}
