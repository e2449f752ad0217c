package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jobsift/internal/fetch"
)

func TestFetchDescription_ExtractsTitleAndText(t *testing.T) {
	page := `<!doctype html>
<html>
<head>
  <title>  Backend   Engineer &amp; Platform </title>
  <style>body { color: red; }</style>
  <script>trackVisitor();</script>
</head>
<body>
  <h1>Backend Engineer</h1>
  <p>We build services in <b>Go</b> and run them on Kubernetes.</p>
  <p>Salary &gt; market rate. Fully&nbsp;remote.</p>
</body>
</html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/html" {
			t.Errorf("Accept header = %q", got)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := fetch.NewHTTPFetcher(5 * time.Second)
	res, err := f.FetchDescription(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchDescription: %v", err)
	}
	if res.Title != "Backend Engineer & Platform" {
		t.Errorf("title = %q", res.Title)
	}
	for _, want := range []string{"Go", "Kubernetes", "Salary > market rate", "Fully remote"} {
		if !strings.Contains(res.Description, want) {
			t.Errorf("description missing %q: %q", want, res.Description)
		}
	}
	for _, avoid := range []string{"trackVisitor", "color: red", "<p>", "<b>"} {
		if strings.Contains(res.Description, avoid) {
			t.Errorf("description leaked %q: %q", avoid, res.Description)
		}
	}
}

func TestFetchDescription_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := fetch.NewHTTPFetcher(5 * time.Second)
	if _, err := f.FetchDescription(context.Background(), srv.URL); err == nil {
		t.Error("FetchDescription accepted a 404")
	}
}

func TestFetchDescription_NoTitleTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>Plain posting body.</body></html>`))
	}))
	defer srv.Close()

	f := fetch.NewHTTPFetcher(5 * time.Second)
	res, err := f.FetchDescription(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchDescription: %v", err)
	}
	if res.Title != "" {
		t.Errorf("title = %q, want empty", res.Title)
	}
	if res.Description != "Plain posting body." {
		t.Errorf("description = %q", res.Description)
	}
}

func TestFetchDescription_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	f := fetch.NewHTTPFetcher(5 * time.Second)
	if _, err := f.FetchDescription(ctx, srv.URL); err == nil {
		t.Error("FetchDescription ignored context cancellation")
	}
}
