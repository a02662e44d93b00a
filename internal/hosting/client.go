package hosting

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Repo is a handle to a hosted repository. It is pure data; deriving one does
// not touch the network.
type Repo struct {
	Owner   string `json:"owner"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

var ErrNotFound = errors.New("hosting: not found")

// Client talks to the GitHub REST v3 API.
type Client struct {
	apiBase    string
	user       string
	token      string
	httpClient *http.Client
}

func NewClient(apiBase, user, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiBase:    strings.TrimRight(apiBase, "/"),
		user:       user,
		token:      token,
		httpClient: httpClient,
	}
}

// RepoHandle derives the handle for a task's repository without any API call.
// Round 2 relies on this: the repository already exists from round 1.
func (c *Client) RepoHandle(task string) Repo {
	return Repo{
		Owner:   c.user,
		Name:    task,
		HTMLURL: fmt.Sprintf("https://github.com/%s/%s", c.user, task),
	}
}

// PagesURL derives the static-site URL by the fixed hosting convention.
func (c *Client) PagesURL(task string) string {
	return fmt.Sprintf("https://%s.github.io/%s/", c.user, task)
}

// CreateRepo creates the repository for a task, or returns the handle if it
// already exists (the API answers 422 for a name collision).
func (c *Client) CreateRepo(ctx context.Context, task, description string) (Repo, error) {
	body := map[string]any{
		"name":        task,
		"description": description,
		"auto_init":   true,
	}
	res, err := c.do(ctx, http.MethodPost, "/user/repos", body)
	if err != nil {
		return Repo{}, err
	}
	defer drainAndClose(res)
	switch res.StatusCode {
	case http.StatusCreated:
		return c.RepoHandle(task), nil
	case http.StatusUnprocessableEntity:
		// Name already taken on this account: treat as get-or-create.
		return c.RepoHandle(task), nil
	default:
		return Repo{}, statusError("create repo", res)
	}
}

// GetFile reads a file's current content, ErrNotFound when absent.
func (c *Client) GetFile(ctx context.Context, repo Repo, path string) ([]byte, error) {
	res, err := c.do(ctx, http.MethodGet, c.contentsPath(repo, path), nil)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(res)
	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		return nil, statusError("get file", res)
	}
	var out struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Encoding != "base64" {
		return nil, fmt.Errorf("get file: unexpected encoding %q", out.Encoding)
	}
	return base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
}

// CommitText creates or updates a text file.
func (c *Client) CommitText(ctx context.Context, repo Repo, path, content, message string) error {
	return c.CommitBinary(ctx, repo, path, []byte(content), message)
}

// CommitBinary creates or updates a file from raw bytes. The contents API
// needs the current blob SHA for updates, so an existing file is looked up
// first.
func (c *Client) CommitBinary(ctx context.Context, repo Repo, path string, data []byte, message string) error {
	body := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(data),
	}
	if sha, err := c.fileSHA(ctx, repo, path); err == nil && sha != "" {
		body["sha"] = sha
	}
	res, err := c.do(ctx, http.MethodPut, c.contentsPath(repo, path), body)
	if err != nil {
		return err
	}
	defer drainAndClose(res)
	if res.StatusCode != http.StatusCreated && res.StatusCode != http.StatusOK {
		return statusError("commit "+path, res)
	}
	return nil
}

// EnablePages turns on the static-site publish feature for a task repo.
func (c *Client) EnablePages(ctx context.Context, task string) (bool, error) {
	repo := c.RepoHandle(task)
	body := map[string]any{
		"source": map[string]any{"branch": "main", "path": "/"},
	}
	res, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/pages", repo.Owner, repo.Name), body)
	if err != nil {
		return false, err
	}
	defer drainAndClose(res)
	switch res.StatusCode {
	case http.StatusCreated, http.StatusNoContent:
		return true, nil
	case http.StatusConflict:
		// Already enabled.
		return true, nil
	default:
		return false, statusError("enable pages", res)
	}
}

// LatestCommitSHA returns the SHA of the most recent commit on the default
// branch, ErrNotFound when the repository has none.
func (c *Client) LatestCommitSHA(ctx context.Context, repo Repo) (string, error) {
	res, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s/commits?per_page=1", repo.Owner, repo.Name), nil)
	if err != nil {
		return "", err
	}
	defer drainAndClose(res)
	if res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusConflict {
		return "", ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		return "", statusError("list commits", res)
	}
	var out []struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", ErrNotFound
	}
	return out[0].SHA, nil
}

func (c *Client) contentsPath(repo Repo, path string) string {
	return fmt.Sprintf("/repos/%s/%s/contents/%s", repo.Owner, repo.Name, escapePath(path))
}

func (c *Client) fileSHA(ctx context.Context, repo Repo, path string) (string, error) {
	res, err := c.do(ctx, http.MethodGet, c.contentsPath(repo, path), nil)
	if err != nil {
		return "", err
	}
	defer drainAndClose(res)
	if res.StatusCode != http.StatusOK {
		return "", ErrNotFound
	}
	var out struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.httpClient.Do(req)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func statusError(op string, res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%s failed with status %d: %s", op, res.StatusCode, strings.TrimSpace(string(raw)))
}

func drainAndClose(res *http.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
