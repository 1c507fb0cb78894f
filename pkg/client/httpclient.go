package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenSource supplies bearer tokens for authenticated requests. It is an
// injected capability rather than ambient global state: the same HttpClient
// works unauthenticated when no source is attached.
type TokenSource interface {
	// Token returns a currently valid access token, refreshing if needed.
	Token(ctx context.Context) (string, error)
	// Invalidate discards the cached access token so the next Token call
	// performs a refresh. Called after a 401 response.
	Invalidate()
}

type HttpClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
}

func NewHttpClient(baseURL string) *HttpClient {
	return &HttpClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HttpClient) WithTokens(tokens TokenSource) *HttpClient {
	c.Tokens = tokens
	return c
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

func (r *Response) ToString() string {
	return fmt.Sprintf("status=%d body=%s", r.StatusCode, string(r.Body))
}

func (c *HttpClient) GET(ctx context.Context, path string) (*Response, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *HttpClient) POST(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

func (c *HttpClient) PUT(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPut, path, body)
}

func (c *HttpClient) PATCH(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPatch, path, body)
}

func (c *HttpClient) DELETE(ctx context.Context, path string) (*Response, error) {
	return c.request(ctx, http.MethodDelete, path, nil)
}

func (c *HttpClient) request(ctx context.Context, method, path string, body any) (*Response, error) {
	var payload []byte
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = jsonData
	}

	resp, err := c.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	// One retry after a forced token refresh. Mirrors the backend's
	// short-lived access tokens: a 401 usually means the token expired
	// between Token() and the server reading it.
	if resp.StatusCode == http.StatusUnauthorized && c.Tokens != nil {
		c.Tokens.Invalidate()
		return c.do(ctx, method, path, payload)
	}

	return resp, nil
}

func (c *HttpClient) do(ctx context.Context, method, path string, payload []byte) (*Response, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.Tokens != nil {
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Response: resp,
		Body:     respBody,
	}, nil
}

func (c *HttpClient) WaitForHealthy(maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		resp, err := c.HTTPClient.Get(c.BaseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		<-ticker.C
	}

	return fmt.Errorf("service did not become healthy within %v", maxWait)
}

// DecodeList unpacks a list response. The backend paginates most list
// endpoints as {count, results} but returns bare arrays from a few older
// ones; both shapes are accepted.
func DecodeList[T any](resp *Response) ([]T, error) {
	if resp.IsError() {
		return nil, fmt.Errorf("list request failed: %s", GetErrorMessage(resp))
	}

	var items []T
	if err := json.Unmarshal(resp.Body, &items); err == nil {
		return items, nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, fmt.Errorf("could not decode list response:\n%+v\n%s", resp.ToString(), err)
	}
	return page.Results, nil
}

// DecodeObject unpacks a single-object response.
func DecodeObject[T any](resp *Response) (*T, error) {
	if resp.IsError() {
		return nil, fmt.Errorf("request failed: %s", GetErrorMessage(resp))
	}

	var obj T
	if err := json.Unmarshal(resp.Body, &obj); err != nil {
		return nil, fmt.Errorf("could not decode response:\n%+v\n%s", resp.ToString(), err)
	}
	return &obj, nil
}

func GetErrorMessage(resp *Response) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Code    string `json:"code"`
	}
	if err := resp.DecodeJSON(&errResp); err != nil {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}

	if errResp.Message != "" {
		return errResp.Message
	}
	if errResp.Error != "" {
		return errResp.Error
	}
	if errResp.Detail != "" {
		return errResp.Detail
	}
	if errResp.Code != "" {
		return errResp.Code
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
