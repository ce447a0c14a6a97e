package jsonfetch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/samvad-hq/getjson/pkg/httpclient"
)

// Response is the settled result of one request. Transport failures produce a
// Response with StatusCode 0 and no body.
type Response struct {
	url        string
	statusCode int
	status     string
	body       []byte
}

func newResponse(url string, raw httpclient.Response) *Response {
	resp := &Response{url: url}
	if raw == nil {
		return resp
	}
	resp.statusCode = raw.StatusCode()
	resp.status = raw.Status()
	resp.body = raw.Body()
	return resp
}

// URL returns the URL the request was issued for.
func (r *Response) URL() string {
	if r == nil {
		return ""
	}
	return r.url
}

// StatusCode returns the HTTP status, or 0 when the request never completed.
func (r *Response) StatusCode() int {
	if r == nil {
		return 0
	}
	return r.statusCode
}

// Status returns the status line, falling back to the canonical text for the code.
func (r *Response) Status() string {
	if r == nil || r.statusCode == 0 {
		return ""
	}
	if r.status != "" {
		return r.status
	}
	return fmt.Sprintf("%d %s", r.statusCode, http.StatusText(r.statusCode))
}

// Body returns the raw response body.
func (r *Response) Body() []byte {
	if r == nil {
		return nil
	}
	return r.body
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.body) == 0 {
		return errors.New("decode json: empty body")
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// JSON decodes the body into the generic encoding/json representation.
func (r *Response) JSON() (any, error) {
	var v any
	if err := r.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
