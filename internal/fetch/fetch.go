// Package fetch retrieves legal documents over HTTP and extracts plain
// text from HTML pages. It is a collaborator of the analysis core; any
// failure here is opaque to segmentation and expertise.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	// DefaultTimeout bounds one document download.
	DefaultTimeout = 30 * time.Second
	// maxBodyBytes caps the response body; legal texts are large but
	// not unbounded.
	maxBodyBytes = 8 << 20
)

var (
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
	multiSpaceRe   = regexp.MustCompile(`[ \t]{2,}`)
)

// Document is a retrieved document ready for segmentation.
type Document struct {
	// Title is the page <h1> or <title>, if any.
	Title string
	// Text is the extracted plain text.
	Text string
	// Metadata carries transport-level details (url, content type,
	// byte size).
	Metadata map[string]string
}

// Client downloads documents. The zero-value behavior is provided by
// New; inject a custom *http.Client for tests.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// New creates a client with the default timeout.
func New() *Client {
	return &Client{
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
}

// NewWithHTTPClient creates a client over a caller-provided transport.
func NewWithHTTPClient(hc *http.Client, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: hc, timeout: timeout}
}

// Fetch downloads the document at url and extracts its text. HTML
// responses are reduced to plain text; plain-text responses pass
// through unchanged.
func (c *Client) Fetch(ctx context.Context, url string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "norma/1.0 (+https://github.com/qazlegal/norma)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	doc := &Document{
		Metadata: map[string]string{
			"url":          url,
			"content_type": resp.Header.Get("Content-Type"),
			"bytes":        fmt.Sprintf("%d", len(body)),
		},
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/plain") {
		doc.Text = strings.TrimSpace(string(body))
	} else {
		title, text, err := extractText(string(body))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", url, err)
		}
		doc.Title = title
		doc.Text = text
	}

	log.Printf("[fetch] retrieved %s (%d chars)", url, len(doc.Text))
	return doc, nil
}

// extractText walks the HTML tree collecting visible text, skipping
// script/style subtrees. The first <h1> (or, failing that, <title>)
// becomes the document title.
func extractText(htmlContent string) (title, text string, err error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", "", err
	}

	var sb strings.Builder
	var h1, pageTitle string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "h1":
				if h1 == "" {
					h1 = strings.TrimSpace(nodeText(n))
				}
			case "title":
				if pageTitle == "" {
					pageTitle = strings.TrimSpace(nodeText(n))
				}
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.Data) {
			sb.WriteString("\n")
		}
	}
	walk(root)

	title = h1
	if title == "" {
		title = pageTitle
	}
	return title, cleanText(sb.String()), nil
}

// nodeText concatenates the text nodes under n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6", "li", "tr", "table", "section", "article":
		return true
	}
	return false
}

// cleanText collapses runaway whitespace left over from tag removal.
func cleanText(s string) string {
	s = multiSpaceRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = multiNewlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
