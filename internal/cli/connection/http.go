package connection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/yndnr/statehttpd/internal/infra/buildinfo"
	"github.com/yndnr/statehttpd/internal/infra/tlsroots"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// Options configures an HTTPClient.
type Options struct {
	Server      string
	Username    string
	Password    string
	CAFile      string
	Insecure    bool
	SessionFile string
	Timeout     time.Duration
}

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL     string
	client      *http.Client
	username    string
	password    string
	sessionFile string
	cookie      *http.Cookie
}

// NewHTTPClient creates a new HTTP client.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	baseURL := strings.TrimSuffix(opts.Server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if strings.HasPrefix(baseURL, "https://") {
		tlsCfg, err := tlsroots.ClientConfig(opts.CAFile, opts.Insecure)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsCfg
	}

	c := &HTTPClient{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: timeout, Transport: transport},
		username:    opts.Username,
		password:    opts.Password,
		sessionFile: opts.SessionFile,
	}
	c.cookie = readCookie(opts.SessionFile)
	return c, nil
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

// PostForm posts url-encoded fields.
func (c *HTTPClient) PostForm(ctx context.Context, path string, values url.Values) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded")
}

// PostJSON posts body encoded as JSON.
func (c *HTTPClient) PostJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := gojson.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json")
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.addHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if err := c.storeSession(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("store session: %w", err)
	}
	return resp, nil
}

// addHeaders adds authentication and common headers.
func (c *HTTPClient) addHeaders(req *http.Request) {
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent("statehttpd-cli"))
}

// storeSession keeps the session cookie from resp. An expired cookie
// removes the session file.
func (c *HTTPClient) storeSession(resp *http.Response) error {
	for _, ck := range resp.Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			c.cookie = nil
			if c.sessionFile == "" {
				return nil
			}
			if err := os.Remove(c.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			return nil
		}
		c.cookie = &http.Cookie{Name: ck.Name, Value: ck.Value}
		if c.sessionFile == "" {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(c.sessionFile), 0o700); err != nil {
			return err
		}
		return os.WriteFile(c.sessionFile, []byte(ck.Name+"="+ck.Value+"\n"), 0o600)
	}
	return nil
}

func readCookie(path string) *http.Cookie {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	name, value, ok := strings.Cut(strings.TrimSpace(string(data)), "=")
	if !ok || name == "" || value == "" {
		return nil
	}
	return &http.Cookie{Name: name, Value: value}
}

// HasSession reports whether a session cookie is held.
func (c *HTTPClient) HasSession() bool {
	return c.cookie != nil
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx response carrying the server's error envelope.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

// ParseResponse decodes a JSON response body into target. Error statuses
// return an *APIError.
func ParseResponse(resp *http.Response, target any) error {
	data, err := ReadResponse(resp)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if err := gojson.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// ReadResponse returns the raw body of a successful response.
func ReadResponse(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = gojson.Unmarshal(data, apiErr)
		return nil, apiErr
	}
	return data, nil
}
