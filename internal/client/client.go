// Package client talks to the portal's admin REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/field"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

// Client is safe for concurrent use once configured.
type Client struct {
	base  string
	token string
	http  *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient replaces the transport, e.g. for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) Token() string { return c.token }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// send performs req and returns the response when its status is 2xx;
// otherwise the error body is decoded into an *errs.Error.
func (c *Client) send(req *http.Request, table string) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	var body models.ErrorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if json.Unmarshal(data, &body) != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
		if body.Error == "" {
			body.Error = resp.Status
		}
	}
	return nil, statusError(resp.StatusCode, table, body)
}

func statusError(status int, table string, body models.ErrorBody) error {
	switch {
	case status == http.StatusNotFound:
		return errs.NotFound("%s", body.Error)
	case status == http.StatusForbidden:
		return errs.Forbidden()
	case status == http.StatusUnauthorized:
		return errs.Unauthorized(body.Error)
	case status == http.StatusBadRequest && len(body.Fields) > 0:
		return errs.Validation(body.Fields)
	case status < 500:
		return errs.BadRequest("%s", body.Error)
	}
	msg := body.Error
	if body.Details != "" {
		msg += ": " + body.Details
	}
	return errs.Store(table, errors.New(msg))
}

func (c *Client) doJSON(ctx context.Context, method, path, table string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.send(req, table)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Login exchanges admin credentials for a token and keeps it for later
// calls.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) Schemas(ctx context.Context) ([]string, error) {
	var names []string
	err := c.doJSON(ctx, http.MethodGet, "/api/schemas", "", nil, &names)
	return names, err
}

func (c *Client) Schema(ctx context.Context, table string) (*schema.Schema, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/schemas/"+url.PathEscape(table), table, nil, &raw); err != nil {
		return nil, err
	}
	return schema.Parse(raw)
}

func tablePath(table string) string {
	return "/api/tables/" + url.PathEscape(table)
}

func (c *Client) List(ctx context.Context, table string, q models.ListQuery) (models.ListResult, error) {
	var out models.ListResult
	path := tablePath(table)
	if v := q.Values().Encode(); v != "" {
		path += "?" + v
	}
	err := c.doJSON(ctx, http.MethodGet, path, table, nil, &out)
	return out, err
}

// Get fetches one row. Numbers arrive as float64.
func (c *Client) Get(ctx context.Context, table, id string) (models.TableRow, error) {
	var out models.TableRow
	err := c.doJSON(ctx, http.MethodGet, tablePath(table)+"/"+url.PathEscape(id), table, nil, &out)
	return out, err
}

func (c *Client) Create(ctx context.Context, table string, payload map[string]any) (int64, error) {
	var out models.CreateResult
	if err := c.doJSON(ctx, http.MethodPost, tablePath(table), table, payload, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) Update(ctx context.Context, table, id string, payload map[string]any) error {
	return c.doJSON(ctx, http.MethodPut, tablePath(table)+"/"+url.PathEscape(id), table, payload, nil)
}

func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.doJSON(ctx, http.MethodDelete, tablePath(table)+"/"+url.PathEscape(id), table, nil, nil)
}

// Export streams the table's CSV into w.
func (c *Client) Export(ctx context.Context, table string, q models.ListQuery, w io.Writer) error {
	v := url.Values{}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	for col, term := range q.Search {
		v.Set(col+"_like", term)
	}
	path := tablePath(table) + "/export"
	if enc := v.Encode(); enc != "" {
		path += "?" + enc
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.send(req, table)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

// Upload posts r as a multipart file and returns the stored file's URL.
func (c *Client) Upload(ctx context.Context, endpoint field.Endpoint, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload/"+string(endpoint), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.send(req, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var out models.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return out.URL, nil
}
