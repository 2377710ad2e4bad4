// Package registry provides client functionality for communicating with the
// Jivas package registry.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultURL is the production package registry.
// Can be overridden via the JVCLI_REGISTRY_URL environment variable.
const DefaultURL = "https://api.jivas.com"

// Client communicates with the package registry.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	AuthToken  string
}

// NewClient creates a registry client. An empty baseURL falls back to the
// JVCLI_REGISTRY_URL environment variable, then DefaultURL. token may be
// empty; unauthenticated calls simply omit the Authorization header.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("JVCLI_REGISTRY_URL")
	}
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		AuthToken: token,
	}
}

// --- Wire types ---

// Namespaces lists the namespaces an account may publish under.
type Namespaces struct {
	Default string   `json:"default"`
	Groups  []string `json:"groups"`
}

// Credentials is returned by Signup and Login.
type Credentials struct {
	Token      string     `json:"token"`
	Namespaces Namespaces `json:"namespaces"`
	Email      string     `json:"email"`
}

// SearchResult holds one page of package search hits.
type SearchResult struct {
	Packages []map[string]any `json:"packages"`
	Total    int              `json:"total,omitempty"`
}

// PublishResponse is returned after uploading a package archive.
type PublishResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is returned for API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// --- API methods ---

// Signup registers a new account and returns its credentials.
func (c *Client) Signup(username, email, password string) (*Credentials, error) {
	req := struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}{username, email, password}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.post("/signup", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var creds Credentials
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &creds, nil
}

// Login authenticates with an email address or username.
func (c *Client) Login(emailOrUsername, password string) (*Credentials, error) {
	req := struct {
		EmailOrUsername string `json:"emailOrUsername"`
		Password        string `json:"password"`
	}{emailOrUsername, password}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.post("/login", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var creds Credentials
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &creds, nil
}

// PackageInfo fetches the descriptor of a published package version.
// version may be empty to request the latest release.
func (c *Client) PackageInfo(name, version string) (map[string]any, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("version", version)

	resp, err := c.get("/info?" + q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return info, nil
}

// DownloadPackage fetches a published package. The version may be an exact
// release or a specifier the registry resolves. When info is true only the
// descriptor comes back; otherwise the response carries the package file.
func (c *Client) DownloadPackage(name, version string, info bool) (map[string]any, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("info", strconv.FormatBool(info))
	q.Set("version", version)

	resp, err := c.get("/download?" + q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var pkg map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return pkg, nil
}

// HasPackage reports whether name resolves in the registry at the given
// specifier. Every failure maps to absent, making the method value usable
// as a deps.Lookup.
func (c *Client) HasPackage(name, specifier string) bool {
	pkg, err := c.DownloadPackage(name, specifier, false)
	return err == nil && pkg != nil
}

// CreateNamespace registers a new namespace owned by the caller.
func (c *Client) CreateNamespace(name string) (map[string]any, error) {
	req := struct {
		Name string `json:"name"`
	}{name}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.post("/namespace", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return result, nil
}

// Search queries published packages. An empty query lists everything,
// paged by limit and offset.
func (c *Client) Search(query string, limit, offset int) (*SearchResult, error) {
	req := struct {
		Query  string `json:"q"`
		Limit  int    `json:"limit"`
		Offset int    `json:"offset"`
	}{query, limit, offset}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.post("/packages/search", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// Publish uploads a package archive under the given namespace.
// visibility is "public" or "private".
func (c *Client) Publish(archivePath, visibility, namespace string) (*PublishResponse, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(archivePath))
	if err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	if err := mw.WriteField("visibility", visibility); err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if err := mw.WriteField("namespace", namespace); err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}

	req, err := http.NewRequest("POST", c.BaseURL+"/publish", &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result PublishResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// --- Helper methods ---

func (c *Client) get(path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}
	return c.HTTPClient.Do(req)
}

func (c *Client) post(path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest("POST", c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}
	return c.HTTPClient.Do(req)
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		if errResp.Message != "" {
			return fmt.Errorf("%s: %s", errResp.Error, errResp.Message)
		}
		return fmt.Errorf("%s", errResp.Error)
	}
	return fmt.Errorf("registry error: %d %s", resp.StatusCode, string(body))
}
