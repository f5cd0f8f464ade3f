// Package client talks to the tool-sharing REST backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the backend used when none is configured.
const DefaultBaseURL = "http://localhost:8000/api"

// Client is a thin wrapper over the backend API. A Client is safe for
// concurrent use; WithToken returns a copy stamped with a session token.
type Client struct {
	baseURL string
	http    *http.Client
	token   string

	// OnUnauthorized is called once for every 401 response, before the
	// error is returned to the caller.
	OnUnauthorized func(ctx context.Context)
}

// New creates a client for the API rooted at baseURL (for example
// "http://localhost:8000/api"). A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// WithToken returns a copy of the client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the token the client authenticates with, if any.
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Image is a file attached to a multipart tool request.
type Image struct {
	Filename string
	MIME     string
	Data     []byte
}

// do sends a request and decodes a 2xx JSON body into out (if non-nil).
// fallback is the message used when the error payload carries none.
func (c *Client) do(ctx context.Context, method, path string, body any, out any, fallback string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.send(req, out, fallback)
}

// doMultipart sends fields and an optional image as multipart/form-data.
func (c *Client) doMultipart(ctx context.Context, method, path string, fields [][2]string, img *Image, out any, fallback string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("writing field %s: %w", f[0], err)
		}
	}

	if img != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, img.Filename))
		h.Set("Content-Type", img.MIME)
		part, err := mw.CreatePart(h)
		if err != nil {
			return fmt.Errorf("creating image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return fmt.Errorf("writing image part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	return c.send(req, out, fallback)
}

func (c *Client) send(req *http.Request, out any, fallback string) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Message: fallback, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: resp.StatusCode, Message: fallback, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		slog.Warn("backend rejected credentials", "method", req.Method, "path", req.URL.Path)
		if c.OnUnauthorized != nil {
			c.OnUnauthorized(req.Context())
		}
		return &APIError{Status: resp.StatusCode, Message: messageFromPayload(data, fallback)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: messageFromPayload(data, fallback)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// pageQuery returns "?page=N" for N > 0, or "" for the first page.
func pageQuery(page int) string {
	if page <= 0 {
		return ""
	}
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	return "?" + v.Encode()
}

// IsUnauthorized reports whether err came from a 401 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound reports whether err came from a 404 response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
