package oada

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the connection settings for a Client.
type Config struct {
	// Domain is the store's hostname, without scheme. A pasted
	// "https://" prefix is tolerated and stripped.
	Domain string

	// Token is the bearer token sent with every request.
	Token string

	// HTTPClient overrides the default HTTP client. Optional.
	HTTPClient *http.Client
}

// Client performs typed get/put/post operations against an OADA document
// store. It is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Response is the raw result of a Get.
type Response struct {
	Data        []byte
	ContentType string
}

// NewClient creates a client for the given store.
// Returns an error if the domain or token is empty.
func NewClient(cfg Config) (*Client, error) {
	domain := strings.TrimPrefix(strings.TrimSpace(cfg.Domain), "https://")
	domain = strings.TrimSuffix(domain, "/")
	if domain == "" {
		return nil, fmt.Errorf("domain cannot be empty")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
		// Local development stores serve self-signed certificates.
		if domain == "localhost" || strings.HasPrefix(domain, "localhost:") {
			httpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
	}

	return &Client{
		baseURL:    "https://" + domain,
		token:      cfg.Token,
		httpClient: httpClient,
	}, nil
}

// Get fetches a resource and returns its raw bytes and content type.
// Returns ErrNotFound if the resource does not exist.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: reading body: %w", path, err)
	}
	if err := c.checkStatus(resp, path, body); err != nil {
		return nil, err
	}

	return &Response{Data: body, ContentType: resp.Header.Get("Content-Type")}, nil
}

// GetJSON fetches a resource and unmarshals its JSON body into v.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		return fmt.Errorf("GET %s: decoding body: %w", path, err)
	}
	return nil
}

// Post creates a new resource under path (typically "/resources") and
// returns the Content-Location of the created resource, with its leading
// slash stripped so it can be used directly as a resource id.
func (c *Client) Post(ctx context.Context, path, contentType string, body []byte) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, contentType, body)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("POST %s: reading body: %w", path, err)
	}
	if err := c.checkStatus(resp, path, respBody); err != nil {
		return "", err
	}

	loc := resp.Header.Get("Content-Location")
	if loc == "" {
		return "", fmt.Errorf("POST %s: no content-location in response", path)
	}
	return strings.TrimPrefix(loc, "/"), nil
}

// PostJSON creates a new resource from a JSON document and returns its
// resource id.
func (c *Client) PostJSON(ctx context.Context, path string, v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("POST %s: encoding body: %w", path, err)
	}
	return c.Post(ctx, path, "application/json", body)
}

// Put upserts a JSON subtree at path.
func (c *Client) Put(ctx context.Context, path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("PUT %s: encoding body: %w", path, err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, path, "application/json", body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("PUT %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("PUT %s: reading body: %w", path, err)
	}
	return c.checkStatus(resp, path, respBody)
}

// BaseURL returns the resolved https base URL of the store.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path, contentType string, body []byte) (*http.Request, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) checkStatus(resp *http.Response, path string, body []byte) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	default:
		return &StatusError{Code: resp.StatusCode, Path: path, Body: string(body)}
	}
}
