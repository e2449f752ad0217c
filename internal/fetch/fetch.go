// Package fetch is the description-retrieval collaborator. The triage flow
// depends only on the Fetcher interface; HTTPFetcher is the plain HTTP
// implementation. Per-ATS selector logic lives with the page scanner, not
// here.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Result is the extracted page content.
type Result struct {
	Title       string
	Description string
}

type Fetcher interface {
	FetchDescription(ctx context.Context, url string) (Result, error)
}

type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

const maxFetchBytes = 4 << 20

func (f *HTTPFetcher) FetchDescription(ctx context.Context, url string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "jobsift/1.0")
	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	html := string(body)
	return Result{
		Title:       extractTitle(html),
		Description: extractText(html),
	}, nil
}

var (
	titleRe  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]+>`)
)

func extractTitle(html string) string {
	m := titleRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return collapseWhitespace(unescapeBasic(m[1]))
}

// extractText is a crude HTML-to-text pass: drop script/style blocks, strip
// tags, collapse whitespace. Good enough for keyword scoring; it is not a
// readability engine.
func extractText(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = tagRe.ReplaceAllString(text, " ")
	return collapseWhitespace(unescapeBasic(text))
}

func unescapeBasic(s string) string {
	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return r.Replace(s)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
