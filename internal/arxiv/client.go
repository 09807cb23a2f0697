// Package arxiv fetches paper metadata, source bundles and reference PDFs
// from arXiv.
package arxiv

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrCaptcha means arXiv answered with a CAPTCHA page instead of content.
var ErrCaptcha = errors.New("arxiv: CAPTCHA required")

// ErrInvalidID rejects identifiers that are not arXiv ids.
var ErrInvalidID = errors.New("arxiv: invalid identifier")

// MaxDownloadBytes limits e-print and PDF downloads.
var MaxDownloadBytes int64 = 100 << 20

var idRe = regexp.MustCompile(`^(?:\d{4}\.\d{4,5}|[a-z\-]+(?:\.[A-Z]{2})?/\d{7})(?:v\d+)?$`)

// ValidID reports whether id looks like a new- or old-style arXiv id.
func ValidID(id string) bool { return idRe.MatchString(id) }

// Client talks to the arXiv web and export API hosts.
type Client struct {
	baseURL    string
	apiURL     string
	userAgent  string
	httpClient *http.Client
}

func NewClient(baseURL, apiURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiURL:    apiURL,
		userAgent: "texgest/1.0",
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Paper is one search result.
type Paper struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	PDFURL  string `json:"pdf_url"`
}

type atomFeed struct {
	Entries []atomEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type atomEntry struct {
	ID      string     `xml:"http://www.w3.org/2005/Atom id"`
	Title   string     `xml:"http://www.w3.org/2005/Atom title"`
	Summary string     `xml:"http://www.w3.org/2005/Atom summary"`
	Links   []atomLink `xml:"http://www.w3.org/2005/Atom link"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

// Search runs an "all:" query against the export API.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Paper, error) {
	q := url.Values{}
	q.Set("search_query", "all:"+query)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(max))

	body, err := c.get(ctx, c.apiURL+"?"+q.Encode(), 8<<20)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		p := Paper{
			Title:   collapse(e.Title),
			Summary: strings.TrimSpace(e.Summary),
		}
		for _, l := range e.Links {
			if l.Title == "pdf" {
				p.PDFURL = l.Href
			}
		}
		p.ID = idFromURL(e.ID)
		if p.ID == "" {
			p.ID = idFromURL(p.PDFURL)
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// Source downloads the e-print bundle for id.
func (c *Client) Source(ctx context.Context, id string) ([]byte, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	body, err := c.get(ctx, c.baseURL+"/e-print/"+id, MaxDownloadBytes)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", id, err)
	}
	return body, nil
}

// PDF downloads the rendered paper for id.
func (c *Client) PDF(ctx context.Context, id string) ([]byte, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	body, err := c.get(ctx, c.baseURL+"/pdf/"+id, MaxDownloadBytes)
	if err != nil {
		return nil, fmt.Errorf("pdf %s: %w", id, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, u string, limit int64) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if bytes.Contains(body, []byte("reCAPTCHA")) {
		return nil, ErrCaptcha
	}
	return body, nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// idFromURL takes the last path element of an abs/ or pdf/ URL.
func idFromURL(u string) string {
	u = strings.TrimSpace(u)
	for _, marker := range []string{"/abs/", "/pdf/"} {
		if i := strings.Index(u, marker); i >= 0 {
			return strings.TrimSuffix(u[i+len(marker):], ".pdf")
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
