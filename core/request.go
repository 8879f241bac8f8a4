package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Request describes an outbound API call. It is treated as immutable:
// the With* and MarkRetried methods return modified copies.
type Request struct {
	ID     string
	Method string
	Path   string
	Header http.Header
	Body   []byte

	retried bool
}

// NewRequest creates a request descriptor with a fresh ID
func NewRequest(method, path string, body []byte) Request {
	return Request{
		ID:     uuid.New().String(),
		Method: method,
		Path:   path,
		Header: http.Header{},
		Body:   body,
	}
}

// NewJSONRequest creates a request whose body is v encoded as JSON
func NewJSONRequest(method, path string, v any) (Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Request{}, fmt.Errorf("failed to encode request body: %w", err)
	}
	return NewRequest(method, path, body), nil
}

// NewFormRequest creates a url-encoded form POST
func NewFormRequest(path string, form url.Values) Request {
	req := NewRequest(http.MethodPost, path, []byte(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// Retried reports whether the request is already an automatic retry
func (r Request) Retried() bool {
	return r.retried
}

// MarkRetried returns a copy of the request with the retry marker set
func (r Request) MarkRetried() Request {
	c := r.clone()
	c.retried = true
	return c
}

// WithHeader returns a copy of the request with the header set
func (r Request) WithHeader(key, value string) Request {
	c := r.clone()
	c.Header.Set(key, value)
	return c
}

// WithQuery returns a copy of the request with the query parameters appended to the path
func (r Request) WithQuery(query url.Values) Request {
	if len(query) == 0 {
		return r
	}
	c := r.clone()
	sep := "?"
	if strings.Contains(c.Path, "?") {
		sep = "&"
	}
	c.Path += sep + query.Encode()
	return c
}

func (r Request) clone() Request {
	c := r
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return c
}

// Response is a successful API response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
