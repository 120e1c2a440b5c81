package tracker

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/qazlegal/norma/pkg/models"
)

func articles(numbers ...string) []models.Fragment {
	var out []models.Fragment
	for i, n := range numbers {
		out = append(out, models.Fragment{
			Type:      models.FragmentArticle,
			Number:    n,
			CharStart: i * 100,
			CharEnd:   i*100 + 50,
		})
	}
	return out
}

func TestReportBeforeAnyMark(t *testing.T) {
	tr := New(articles("1", "2", "3", "4", "5"))

	rep := tr.Report()
	if rep.Total != 5 {
		t.Errorf("Total = %d, want 5", rep.Total)
	}
	if rep.Analyzed != 0 {
		t.Errorf("Analyzed = %d, want 0", rep.Analyzed)
	}
	if rep.Percentage != 0 {
		t.Errorf("Percentage = %v, want 0", rep.Percentage)
	}
	if rep.IsComplete {
		t.Error("IsComplete = true before any mark")
	}
	if len(rep.MissingIDs) != 5 {
		t.Errorf("MissingIDs = %v, want all 5", rep.MissingIDs)
	}
}

func TestMarkIdempotent(t *testing.T) {
	tr := New(articles("1", "2"))

	dup, err := tr.Mark("article_1", "first payload")
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if dup {
		t.Error("first mark flagged as duplicate")
	}

	dup, err = tr.Mark("article_1", "second payload")
	if err != nil {
		t.Fatalf("repeat Mark: %v", err)
	}
	if !dup {
		t.Error("repeat mark not flagged as duplicate")
	}

	entry, ok := tr.Entry("article_1")
	if !ok {
		t.Fatal("entry not found")
	}
	if !entry.Analyzed {
		t.Error("Analyzed reverted to false")
	}
	if entry.Payload != "second payload" {
		t.Errorf("Payload = %v, want overwritten payload", entry.Payload)
	}

	rep := tr.Report()
	if rep.Analyzed != 1 {
		t.Errorf("Analyzed = %d after double mark of one fragment, want 1", rep.Analyzed)
	}
}

func TestMarkUnknownFragment(t *testing.T) {
	tr := New(articles("1"))

	_, err := tr.Mark("article_99", nil)
	if !errors.Is(err, ErrUnknownFragment) {
		t.Errorf("err = %v, want ErrUnknownFragment", err)
	}

	if rep := tr.Report(); rep.Analyzed != 0 {
		t.Errorf("unknown mark changed state: %+v", rep)
	}
}

func TestMissingInDocumentOrder(t *testing.T) {
	tr := New(articles("1", "2", "3", "4"))

	if _, err := tr.Mark("article_3", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Mark("article_1", nil); err != nil {
		t.Fatal(err)
	}

	missing := tr.Missing()
	want := []string{"article_2", "article_4"}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("missing[%d] = %q, want %q", i, missing[i], want[i])
		}
	}
}

func TestPercentageMonotonic(t *testing.T) {
	tr := New(articles("1", "2", "3"))

	prev := tr.Report().Percentage
	for _, id := range []string{"article_2", "article_2", "article_1", "article_3"} {
		if _, err := tr.Mark(id, nil); err != nil {
			t.Fatal(err)
		}
		pct := tr.Report().Percentage
		if pct < prev {
			t.Errorf("percentage decreased: %v -> %v", prev, pct)
		}
		prev = pct
	}

	if !tr.IsComplete() {
		t.Error("tracker should be complete")
	}
	if prev != 1.0 {
		t.Errorf("final percentage = %v, want 1.0", prev)
	}
}

func TestOnlyTrackableTypesCounted(t *testing.T) {
	frags := []models.Fragment{
		{Type: models.FragmentChapter, Number: "1"},
		{Type: models.FragmentArticle, Number: "1"},
		{Type: models.FragmentParagraph, Number: "1.1"},
		{Type: models.FragmentArticle, Number: "2"},
	}

	tr := New(frags)
	if rep := tr.Report(); rep.Total != 2 {
		t.Errorf("default trackable total = %d, want 2 articles", rep.Total)
	}

	trAll := New(frags, models.FragmentArticle, models.FragmentParagraph)
	if rep := trAll.Report(); rep.Total != 3 {
		t.Errorf("articles+paragraphs total = %d, want 3", rep.Total)
	}
}

func TestEmptyTrackerIsComplete(t *testing.T) {
	tr := New(nil)

	rep := tr.Report()
	if !rep.IsComplete {
		t.Error("empty tracker should report complete")
	}
	if rep.Percentage != 1.0 {
		t.Errorf("empty tracker percentage = %v, want 1.0", rep.Percentage)
	}
}

func TestConcurrentMarks(t *testing.T) {
	const n = 50
	var nums []string
	for i := 1; i <= n; i++ {
		nums = append(nums, fmt.Sprintf("%d", i))
	}
	tr := New(articles(nums...))

	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := tr.Mark(fmt.Sprintf("article_%d", i), i); err != nil {
				t.Errorf("Mark(%d): %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	rep := tr.Report()
	if rep.Analyzed != n || !rep.IsComplete {
		t.Errorf("after concurrent marks: %+v", rep)
	}
}

func TestChecklistText(t *testing.T) {
	frags := []models.Fragment{
		{Type: models.FragmentArticle, Number: "1", Title: "Понятия", ParentNumber: "1"},
		{Type: models.FragmentArticle, Number: "2", ParentNumber: "1"},
	}
	tr := New(frags)
	if _, err := tr.Mark("article_1", nil); err != nil {
		t.Fatal(err)
	}

	text := tr.ChecklistText()
	for _, want := range []string{"✅ Статья 1: Понятия", "⬜ Статья 2", "Всего статей: 2", "Глава 1:"} {
		if !strings.Contains(text, want) {
			t.Errorf("checklist missing %q:\n%s", want, text)
		}
	}
}
