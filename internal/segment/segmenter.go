// Package segment parses raw legal document text into an ordered
// sequence of structural fragments (chapters, articles, paragraphs).
// The resulting table of contents is what the completeness tracker is
// built from, so a header the segmenter misses is a unit the analysis
// can silently skip.
package segment

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/qazlegal/norma/pkg/models"
)

// Header patterns. RE2 \b is ASCII-only, so Cyrillic keyword boundaries
// are checked manually against the preceding byte.
var (
	chapterRe = regexp.MustCompile(`(?i)(глава|раздел|chapter|section)\s+(\d+(?:[.\-][0-9а-яёa-z]+)*)`)
	articleRe = regexp.MustCompile(`(?i)(статья|article)\s+(\d+(?:[.\-][0-9а-яёa-z]+)*)`)
	// Abbreviated article forms only count at line starts. Mid-line
	// "ст. 5" is a citation ("в соответствии со ст. 5"), not a header.
	articleAbbrevRe = regexp.MustCompile(`(?mi)^[ \t]*(ст\.|art\.)[ \t]*(\d+(?:[.\-][0-9а-яёa-z]+)*)`)
	// Unnumbered article headings only count at line starts; anywhere
	// else the keyword is almost certainly prose.
	unnumberedRe = regexp.MustCompile(`(?mi)^[ \t]*(статья|article)[ \t]*[.:]`)
	paragraphRe  = regexp.MustCompile(`(?m)^[ \t]*(\d+)[ \t]*[.)][ \t]+`)
)

// Result holds the outcome of one parse. Fragments are ordered by
// ascending CharStart; Warnings carry low-severity defects such as
// duplicate article numbers.
type Result struct {
	Fragments []models.Fragment
	Warnings  []string
}

// Stats summarizes a parse result.
type Stats struct {
	// TotalFragments is the number of fragments of all types.
	TotalFragments int
	// Chapters, Articles and Paragraphs count fragments per type.
	Chapters   int
	Articles   int
	Paragraphs int
	// ArticleNumbers lists article display numbers in natural order.
	ArticleNumbers []string
}

// Segmenter parses document text into fragments. The zero value is not
// usable; construct with New.
type Segmenter struct{}

// New creates a Segmenter.
func New() *Segmenter {
	return &Segmenter{}
}

// header is an internal match of a recognized structural marker.
type header struct {
	typ       models.FragmentType
	number    string // empty for unnumbered articles
	start     int    // byte offset of the marker
	markerEnd int    // byte offset just past the marker and number
}

// Parse splits document text into structural fragments. It never fails:
// text without recognizable structure yields an empty fragment list,
// letting the caller decide whether to treat the whole text as one unit.
func (s *Segmenter) Parse(text string) *Result {
	res := &Result{}
	if strings.TrimSpace(text) == "" {
		return res
	}

	headers := findHeaders(text)
	if len(headers) == 0 {
		log.Printf("[segment] no recognizable structure in %d bytes of text", len(text))
		return res
	}

	// Assign sequential pseudo-numbers to unnumbered articles.
	pseudo := 0
	for i := range headers {
		if headers[i].number == "" {
			pseudo++
			headers[i].number = fmt.Sprintf("unnumbered-%d", pseudo)
		}
	}

	seen := make(map[string]bool)
	var currentChapter string

	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1].start
		}
		raw := text[h.start:end]
		body := strings.TrimRight(raw, " \t\r\n")
		charEnd := h.start + len(body)

		frag := models.Fragment{
			Type:      h.typ,
			Number:    h.number,
			Title:     extractTitle(text, h.markerEnd, charEnd),
			Text:      strings.TrimSpace(body),
			CharStart: h.start,
			CharEnd:   charEnd,
		}

		switch h.typ {
		case models.FragmentChapter:
			currentChapter = h.number
			frag.FullPath = "Глава " + h.number
		case models.FragmentArticle:
			frag.ParentNumber = currentChapter
			if currentChapter != "" {
				frag.FullPath = "Глава " + currentChapter + " -> Статья " + h.number
			} else {
				frag.FullPath = "Статья " + h.number
			}
		}

		if id := frag.ID(); seen[id] {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("duplicate %s number %q", frag.Type, frag.Number))
		} else {
			seen[id] = true
		}

		res.Fragments = append(res.Fragments, frag)

		if h.typ == models.FragmentArticle {
			paras := s.parseParagraphs(text, frag, charEnd)
			for _, p := range paras {
				if id := p.ID(); seen[id] {
					res.Warnings = append(res.Warnings,
						fmt.Sprintf("duplicate %s number %q", p.Type, p.Number))
				} else {
					seen[id] = true
				}
			}
			res.Fragments = append(res.Fragments, paras...)
		}
	}

	log.Printf("[segment] parsed %d fragments (%d warnings)", len(res.Fragments), len(res.Warnings))
	return res
}

// parseParagraphs recognizes numbered paragraph markers nested inside an
// article body. Paragraph offsets overlap the enclosing article but not
// each other.
func (s *Segmenter) parseParagraphs(text string, article models.Fragment, articleEnd int) []models.Fragment {
	body := text[article.CharStart:articleEnd]
	matches := paragraphRe.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return nil
	}

	var out []models.Fragment
	for i, m := range matches {
		start := article.CharStart + m[0]
		end := articleEnd
		if i+1 < len(matches) {
			end = article.CharStart + matches[i+1][0]
		}
		num := body[m[2]:m[3]]
		raw := strings.TrimRight(text[start:end], " \t\r\n")

		out = append(out, models.Fragment{
			Type:         models.FragmentParagraph,
			Number:       article.Number + "." + num,
			Text:         strings.TrimSpace(raw),
			FullPath:     article.FullPath + " -> Пункт " + num,
			ParentNumber: article.Number,
			CharStart:    start,
			CharEnd:      start + len(raw),
		})
	}
	return out
}

// findHeaders locates every chapter and article marker in the text,
// ordered by offset.
func findHeaders(text string) []header {
	var headers []header

	collect := func(re *regexp.Regexp, typ models.FragmentType) {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if !boundaryBefore(text, m[0]) {
				continue
			}
			headers = append(headers, header{
				typ:       typ,
				number:    text[m[4]:m[5]],
				start:     m[0],
				markerEnd: m[5],
			})
		}
	}
	collect(chapterRe, models.FragmentChapter)
	collect(articleRe, models.FragmentArticle)

	// Line-anchored abbreviations: the header offset is the keyword,
	// not the leading indent the anchor consumed.
	for _, m := range articleAbbrevRe.FindAllStringSubmatchIndex(text, -1) {
		headers = append(headers, header{
			typ:       models.FragmentArticle,
			number:    text[m[4]:m[5]],
			start:     m[2],
			markerEnd: m[5],
		})
	}

	// Unnumbered article headings, skipping positions already claimed
	// by a numbered match.
	claimed := make(map[int]bool, len(headers))
	for _, h := range headers {
		claimed[h.start] = true
	}
	for _, m := range unnumberedRe.FindAllStringSubmatchIndex(text, -1) {
		if claimed[m[2]] {
			continue
		}
		headers = append(headers, header{
			typ:       models.FragmentArticle,
			start:     m[2], // keyword offset, excluding leading indent
			markerEnd: m[1],
		})
	}

	sort.SliceStable(headers, func(i, j int) bool { return headers[i].start < headers[j].start })

	// Drop headers that begin inside the marker of the previous one
	// ("Статья" inside "Статья 5." can double-match with the unnumbered
	// pattern on odd inputs).
	dedup := headers[:0]
	lastEnd := -1
	for _, h := range headers {
		if h.start < lastEnd {
			continue
		}
		dedup = append(dedup, h)
		lastEnd = h.markerEnd
	}
	return dedup
}

// boundaryBefore reports whether the byte before offset is a plausible
// word boundary for a header keyword. Needed because RE2 word
// boundaries do not understand Cyrillic.
func boundaryBefore(text string, offset int) bool {
	if offset == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:offset])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// extractTitle returns the heading text after a header marker, up to the
// end of the marker's line or the fragment end, whichever comes first.
func extractTitle(text string, markerEnd, fragEnd int) string {
	end := fragEnd
	if nl := strings.IndexByte(text[markerEnd:fragEnd], '\n'); nl >= 0 {
		end = markerEnd + nl
	}
	title := strings.TrimSpace(text[markerEnd:end])
	title = strings.TrimLeft(title, ".:")
	return strings.TrimSpace(title)
}

// Articles returns the article fragments of the result, in document order.
func (r *Result) Articles() []models.Fragment {
	var out []models.Fragment
	for _, f := range r.Fragments {
		if f.Type == models.FragmentArticle {
			out = append(out, f)
		}
	}
	return out
}

// Stats computes per-type counts for the result.
func (r *Result) Stats() Stats {
	st := Stats{TotalFragments: len(r.Fragments)}
	for _, f := range r.Fragments {
		switch f.Type {
		case models.FragmentChapter:
			st.Chapters++
		case models.FragmentArticle:
			st.Articles++
			st.ArticleNumbers = append(st.ArticleNumbers, f.Number)
		case models.FragmentParagraph:
			st.Paragraphs++
		}
	}
	sort.SliceStable(st.ArticleNumbers, func(i, j int) bool {
		return CompareNumbers(st.ArticleNumbers[i], st.ArticleNumbers[j]) < 0
	})
	return st
}

// TableOfContents renders a human-readable outline of the parsed
// articles and paragraphs.
func (r *Result) TableOfContents() []string {
	var toc []string
	for _, f := range r.Fragments {
		switch f.Type {
		case models.FragmentArticle:
			title := f.Title
			if title == "" {
				title = "(без заголовка)"
			}
			toc = append(toc, fmt.Sprintf("Статья %s: %s", f.Number, title))
		case models.FragmentParagraph:
			toc = append(toc, fmt.Sprintf("  Пункт %s", f.Number))
		}
	}
	return toc
}
