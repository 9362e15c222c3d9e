// Package client is a small Go client for the orgbridge HTTP API. It
// mirrors the server's routes one method per endpoint and decodes the
// JSON bodies the handlers emit.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running orgbridge server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New builds a client for the server at baseURL. An empty apiKey sends
// no Authorization header, matching a server started without one.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Listing is the body of a directory response from GET /api/files.
type Listing struct {
	Path        string   `json:"path"`
	Directories []string `json:"directories"`
	Files       []string `json:"files"`
}

// QueryRequest is the body for POST /api/query. Empty Files searches
// the whole org directory.
type QueryRequest struct {
	Files    []string `json:"files,omitempty"`
	Todo     bool     `json:"todo,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Title    string   `json:"title,omitempty"`
	MinLevel int      `json:"min_level,omitempty"`
	MaxLevel int      `json:"max_level,omitempty"`
}

// QueryResult is the result record: indexes into a shared headline
// table, ancestors included.
type QueryResult struct {
	Results   []int            `json:"results"`
	Headlines []map[string]any `json:"headlines"`
}

// AgendaEntry is one row of GET /api/agenda.
type AgendaEntry struct {
	Path        string   `json:"path"`
	Begin       int      `json:"begin"`
	Level       int      `json:"level"`
	Title       string   `json:"title"`
	TodoKeyword string   `json:"todo_keyword"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

// NavigateRequest is the body for POST /api/navigate. File is relative
// to the server's org directory; the remaining fields narrow the
// target within it.
type NavigateRequest struct {
	File     string `json:"file"`
	ID       string `json:"id,omitempty"`
	CustomID string `json:"custom_id,omitempty"`
	Text     string `json:"text,omitempty"`
	Position int    `json:"position,omitempty"`
}

// Health checks the server is up.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", "", nil)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError("health", resp)
	}
	return nil
}

// Listing lists a directory under the org root. Pass "" for the root.
func (c *Client) Listing(ctx context.Context, dir string) (*Listing, error) {
	path := "/api/files"
	if dir != "" {
		path += "/" + escapePath(dir)
	}
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("list "+dir, resp)
	}
	var l Listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return &l, nil
}

// Document fetches an org file as a document record.
func (c *Client) Document(ctx context.Context, file string) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/files/"+escapePath(file), "", nil)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", file, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("document "+file, resp)
	}
	var record map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return record, nil
}

// Query runs a headline search on the server.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("query", resp)
	}
	var result QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode query result: %w", err)
	}
	return &result, nil
}

// Agenda lists open todo headlines. limit 0 means all.
func (c *Client) Agenda(ctx context.Context, limit int) ([]AgendaEntry, error) {
	path := "/api/agenda"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, fmt.Errorf("agenda: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("agenda", resp)
	}
	var body struct {
		Entries []AgendaEntry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode agenda: %w", err)
	}
	return body.Entries, nil
}

// Navigate asks the server's editor to jump to a target. A target
// nothing matches returns (false, nil); the server reports that as 404
// with found=false rather than an error.
func (c *Client) Navigate(ctx context.Context, req NavigateRequest) (bool, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("marshal target: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/navigate", "application/json", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("navigate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return false, apiError("navigate", resp)
	}
	var out struct {
		Found bool `json:"found"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode navigate: %w", err)
	}
	return out.Found, nil
}

// Import uploads a foreign document and returns the converted record.
func (c *Client) Import(ctx context.Context, filename string, src io.Reader, title string) (map[string]any, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if title != "" {
		if err := mw.WriteField("title", title); err != nil {
			return nil, fmt.Errorf("build upload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/import", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("import "+filename, resp)
	}
	var record map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode import: %w", err)
	}
	return record, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.httpClient.Do(req)
}

// apiError reads a failed response into an error, preferring the
// handler's {"error": ...} body over raw bytes.
func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, e.Error)
	}
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}

// escapePath escapes each segment of a relative file path, keeping the
// separators so chi's wildcard still sees the full path.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
