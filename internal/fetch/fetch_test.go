package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Закон Республики Казахстан</title>
<style>body { color: red; }</style>
<script>console.log("noise");</script>
</head>
<body>
<h1>О нормативных правовых актах</h1>
<div class="document">
<p>Статья 1. Основные понятия.</p>
<p>Статья 2. Законодательство.</p>
</div>
</body>
</html>`

func newTestClient(srv *httptest.Server) *Client {
	return NewWithHTTPClient(srv.Client(), 5*time.Second)
}

func TestFetchHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	doc, err := newTestClient(srv).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if doc.Title != "О нормативных правовых актах" {
		t.Errorf("Title = %q, want the <h1> text", doc.Title)
	}
	if !strings.Contains(doc.Text, "Статья 1. Основные понятия.") {
		t.Errorf("Text missing article 1: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "Статья 2. Законодательство.") {
		t.Errorf("Text missing article 2: %q", doc.Text)
	}
	if strings.Contains(doc.Text, "console.log") || strings.Contains(doc.Text, "color: red") {
		t.Errorf("Text should not contain script/style content: %q", doc.Text)
	}
	if doc.Metadata["url"] != srv.URL {
		t.Errorf("Metadata url = %q", doc.Metadata["url"])
	}
}

func TestFetchTitleFallsBackToTitleTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>Запасное название</title></head><body><p>текст</p></body></html>"))
	}))
	defer srv.Close()

	doc, err := newTestClient(srv).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.Title != "Запасное название" {
		t.Errorf("Title = %q, want <title> fallback", doc.Title)
	}
}

func TestFetchPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Статья 1. Текст.\n"))
	}))
	defer srv.Close()

	doc, err := newTestClient(srv).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.Text != "Статья 1. Текст." {
		t.Errorf("Text = %q", doc.Text)
	}
	if doc.Title != "" {
		t.Errorf("plain text has no title, got %q", doc.Title)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).Fetch(context.Background(), srv.URL); err == nil {
		t.Error("Fetch should fail on HTTP 404")
	}
}

func TestFetchContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestClient(srv).Fetch(ctx, srv.URL); err == nil {
		t.Error("Fetch should fail when the context is cancelled")
	}
}
