package extranet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/nse-datasync/extranet-sync/config"
)

const (
	loginPath    = "/login/2.0"
	contentPath  = "/member/content/2.0"
	downloadPath = "/member/file/download/2.0"

	userAgent = "NSE DataSync Pro/2.0"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrLoginFailed = errors.New("login rejected by extranet")
)

// Client owns the single HTTP session to the member extranet: retry policy,
// default headers and the bearer token captured at login. One client per bot
// instance; it is not shared across segments but is safe for use from the
// scheduler goroutine.
type Client struct {
	baseURL    string
	memberCode string
	loginID    string
	password   string
	secretKey  string

	httpClient      *http.Client
	listTimeout     time.Duration
	downloadTimeout time.Duration

	mu    sync.Mutex
	token string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:         cfg.BaseURL,
		memberCode:      cfg.MemberCode,
		loginID:         cfg.LoginID,
		password:        cfg.Password,
		secretKey:       cfg.SecretKey,
		listTimeout:     cfg.ListTimeout,
		downloadTimeout: cfg.DownloadTimeout,
		httpClient: &http.Client{
			Transport: newRetryTransport(http.DefaultTransport),
		},
	}
}

// Login authenticates with the extranet and installs the returned token as a
// bearer header on all subsequent calls. Safe to call repeatedly; it simply
// re-authenticates. On failure the token is left unset.
func (c *Client) Login(ctx context.Context) error {
	slog.Info("Attempting login", "memberCode", c.memberCode)

	encrypted, err := EncryptPassword(c.password, c.secretKey)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}

	payload := map[string]string{
		"memberCode": c.memberCode,
		"loginId":    c.loginID,
		"password":   encrypted,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal login payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login request failed: HTTP %d", resp.StatusCode)
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}

	if !result.success() || result.Token == "" {
		return fmt.Errorf("%w: code=%s status=%s", ErrLoginFailed, result.code(), result.Status)
	}

	c.mu.Lock()
	c.token = result.Token
	c.mu.Unlock()

	slog.Info("Login successful", "memberCode", c.memberCode)
	return nil
}

// Logout invalidates the session token.
func (c *Client) Logout() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) bearerToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// listFolder performs one listing call. A nil response with status 404 means
// the path does not exist on the remote.
func (c *Client) listFolder(ctx context.Context, segment, folderPath string) (*apiResponse, int, error) {
	token := c.bearerToken()
	if token == "" {
		return nil, 0, ErrNotLoggedIn
	}

	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("segment", segment)
	q.Set("folderPath", folderPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+contentPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build listing request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("listing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode listing response: %w", err)
	}
	return &result, resp.StatusCode, nil
}

// CheckAccess probes the segment's root path and reports whether the member
// is entitled to it. Denial codes, unknown codes, non-200 responses and
// transport errors all count as "no access".
func (c *Client) CheckAccess(ctx context.Context, segment string) bool {
	result, status, err := c.listFolder(ctx, segment, "/")
	if err != nil {
		slog.Error("Segment access check failed", "segment", segment, "error", err)
		return false
	}
	if result == nil {
		slog.Warn("Segment access check rejected", "segment", segment, "status", status)
		return false
	}

	switch result.code() {
	case CodeSuccess:
		slog.Info("Segment access granted", "segment", segment)
		return true
	case CodeNoAccess:
		slog.Warn("No access to segment", "segment", segment, "code", CodeNoAccess)
		return false
	case CodeNotEligible:
		slog.Warn("Member not eligible for segment", "segment", segment, "code", CodeNotEligible)
		return false
	default:
		slog.Warn("Unknown segment access status", "segment", segment, "code", result.code())
		return false
	}
}

// Download streams one file's content to dst and returns the byte count. The
// date query parameter, when non-empty, is passed through as derived by the
// caller.
func (c *Client) Download(ctx context.Context, segment, folderPath, filename, date string, dst io.Writer) (int64, error) {
	token := c.bearerToken()
	if token == "" {
		return 0, ErrNotLoggedIn
	}

	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("segment", segment)
	q.Set("folderPath", folderPath)
	q.Set("filename", filename)
	if date != "" {
		q.Set("date", date)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+downloadPath+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, downloadError(resp)
	}

	buf := make([]byte, 8192)
	written, err := io.CopyBuffer(dst, resp.Body, buf)
	if err != nil {
		return written, fmt.Errorf("stream download: %w", err)
	}
	return written, nil
}

// downloadError extracts the most specific error available from a failed
// download response: the API code, then the message, then the HTTP status.
func downloadError(resp *http.Response) error {
	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if code := result.code(); code != "" {
			return fmt.Errorf("API error code: %s", code)
		}
		if result.Message != "" {
			return fmt.Errorf("%s", result.Message)
		}
	}
	return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
}
